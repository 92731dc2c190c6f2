package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"xdao.co/stakeledger/capability"
	"xdao.co/stakeledger/fault"
)

func mint(t *testing.T, v *capability.Vault, r *Registry) *Credential {
	t.Helper()
	var c *Credential
	err := v.Authorize(func(p *capability.Proof) error {
		var err error
		c, err = r.Mint(p, Record{AmountStaked: decimal.Zero})
		return err
	})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return c
}

func TestMint_RequiresCapability(t *testing.T) {
	v := capability.NewVault()
	r := New(v.Identity(), Options{})

	if _, err := r.Mint(nil, Record{}); !fault.IsKind(err, fault.KindUnauthorized) {
		t.Fatalf("mint without proof: got %v", err)
	}

	other := capability.NewVault()
	err := other.Authorize(func(p *capability.Proof) error {
		_, err := r.Mint(p, Record{})
		return err
	})
	if !fault.IsKind(err, fault.KindUnauthorized) {
		t.Fatalf("mint with foreign proof: got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("rejected mints must not store records")
	}

	c := mint(t, v, r)
	if c.Address() != r.Address() {
		t.Fatalf("credential address mismatch")
	}
	rec, err := r.Data(c.ID())
	if err != nil || !rec.AmountStaked.IsZero() {
		t.Fatalf("Data: %v %v", rec, err)
	}
}

func TestMint_UniqueIDs(t *testing.T) {
	v := capability.NewVault()
	r := New(v.Identity(), Options{})
	const n = 200
	seen := make(map[uuid.UUID]struct{}, n)
	for i := 0; i < n; i++ {
		c := mint(t, v, r)
		if _, dup := seen[c.ID()]; dup {
			t.Fatalf("duplicate id %s", c.ID())
		}
		seen[c.ID()] = struct{}{}
	}
	if r.Len() != n || len(r.IDs()) != n {
		t.Fatalf("expected %d records, got %d", n, r.Len())
	}
}

func TestMint_RegeneratesCollidingID(t *testing.T) {
	fixed := uuid.MustParse("11111111-1111-4111-8111-111111111111")
	next := uuid.MustParse("22222222-2222-4222-8222-222222222222")
	seq := []uuid.UUID{fixed, fixed, uuid.Nil, next}
	i := 0
	v := capability.NewVault()
	r := New(v.Identity(), Options{NewID: func() uuid.UUID {
		id := seq[i]
		i++
		return id
	}})

	a := mint(t, v, r)
	b := mint(t, v, r)
	if a.ID() != fixed || b.ID() != next {
		t.Fatalf("got ids %s, %s", a.ID(), b.ID())
	}
}

func TestMint_GivesUpOnExhaustedIDSpace(t *testing.T) {
	v := capability.NewVault()
	r := New(v.Identity(), Options{NewID: func() uuid.UUID { return uuid.Nil }})
	err := v.Authorize(func(p *capability.Proof) error {
		_, err := r.Mint(p, Record{})
		return err
	})
	if !fault.IsKind(err, fault.KindInternal) {
		t.Fatalf("expected Internal, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	v := capability.NewVault()
	r := New(v.Identity(), Options{})
	c := mint(t, v, r)

	if err := r.Update(nil, c.ID(), decimal.NewFromInt(5)); !fault.IsKind(err, fault.KindUnauthorized) {
		t.Fatalf("update without proof: got %v", err)
	}

	err := v.Authorize(func(p *capability.Proof) error {
		return r.Update(p, c.ID(), decimal.NewFromInt(5))
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	rec, _ := r.Data(c.ID())
	if !rec.AmountStaked.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("amount: got %s", rec.AmountStaked)
	}

	err = v.Authorize(func(p *capability.Proof) error {
		return r.Update(p, uuid.New(), decimal.NewFromInt(1))
	})
	if !fault.IsKind(err, fault.KindUnknownCredential) {
		t.Fatalf("unknown id: got %v", err)
	}

	err = v.Authorize(func(p *capability.Proof) error {
		return r.Update(p, c.ID(), decimal.NewFromInt(-1))
	})
	if !fault.IsKind(err, fault.KindInvalidAmount) {
		t.Fatalf("negative amount: got %v", err)
	}
}

func TestDeniedActions(t *testing.T) {
	v := capability.NewVault()
	r := New(v.Identity(), Options{})
	c := mint(t, v, r)

	checks := map[string]func(p *capability.Proof) error{
		"burn":     func(p *capability.Proof) error { return r.Burn(p, c.ID()) },
		"recall":   func(p *capability.Proof) error { return r.Recall(p, c.ID()) },
		"set-rule": func(p *capability.Proof) error { return r.SetRule(p, ActionMint, DenyAll) },
	}
	for name, fn := range checks {
		t.Run(name, func(t *testing.T) {
			if err := v.Authorize(fn); !fault.IsKind(err, fault.KindUnauthorized) {
				t.Fatalf("expected Unauthorized even with the capability, got %v", err)
			}
		})
	}
	if !r.Rules().Burn.Denies() || r.Rules().Mint.Denies() {
		t.Fatalf("unexpected rule table")
	}
}

func TestValidate(t *testing.T) {
	v := capability.NewVault()
	r := New(v.Identity(), Options{})
	c := mint(t, v, r)

	p := c.CreateProof()
	if r.OutstandingProofs() != 1 {
		t.Fatalf("expected 1 outstanding proof")
	}
	vp, err := r.Validate(p)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if vp.ID() != c.ID() || vp.Address() != r.Address() {
		t.Fatalf("validated proof mismatch")
	}
	p.Release()
	p.Release()
	if r.OutstandingProofs() != 0 {
		t.Fatalf("expected 0 outstanding proofs, got %d", r.OutstandingProofs())
	}
	if _, err := r.Validate(p); fault.RuleID(err) != "STAKE-PROOF-002" {
		t.Fatalf("released proof: got %v", err)
	}
	if _, err := r.Validate(nil); !fault.IsKind(err, fault.KindInvalidProof) {
		t.Fatalf("nil proof: got %v", err)
	}

	otherVault := capability.NewVault()
	other := New(otherVault.Identity(), Options{})
	foreign := mint(t, otherVault, other).CreateProof()
	defer foreign.Release()
	if _, err := r.Validate(foreign); fault.RuleID(err) != "STAKE-PROOF-003" {
		t.Fatalf("foreign proof: got %v", err)
	}
}

func TestRestore(t *testing.T) {
	v := capability.NewVault()
	addr := uuid.New()
	id := uuid.New()
	records := map[uuid.UUID]Record{id: {AmountStaked: decimal.NewFromInt(7)}}

	r, err := Restore(v.Identity(), addr, Options{Name: "Club Badge"}, records)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	records[id] = Record{AmountStaked: decimal.NewFromInt(99)}
	rec, err := r.Data(id)
	if err != nil || !rec.AmountStaked.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("restored record must be copied: %v %v", rec, err)
	}

	want := Schema{
		Address:       addr,
		Metadata:      map[string]string{"name": "Club Badge"},
		MutableFields: []string{FieldAmountStaked},
	}
	if diff := cmp.Diff(want, r.Schema()); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}

	bad := map[uuid.UUID]Record{uuid.New(): {AmountStaked: decimal.NewFromInt(-1)}}
	if _, err := Restore(v.Identity(), addr, Options{}, bad); !fault.IsKind(err, fault.KindCorruptState) {
		t.Fatalf("negative record: got %v", err)
	}
	if _, err := Restore(v.Identity(), uuid.Nil, Options{}, nil); !fault.IsKind(err, fault.KindCorruptState) {
		t.Fatalf("nil address: got %v", err)
	}
}

func TestValidate_ZeroCredential(t *testing.T) {
	v := capability.NewVault()
	r := New(v.Identity(), Options{})

	p := (&Credential{}).CreateProof()
	if _, err := r.Validate(p); fault.RuleID(err) != "STAKE-PROOF-003" {
		t.Fatalf("zero credential proof: got %v", err)
	}
	p.Release()
	if !p.Released() || r.OutstandingProofs() != 0 {
		t.Fatalf("zero credential proof leaked")
	}
}

func TestReissue(t *testing.T) {
	v := capability.NewVault()
	r := New(v.Identity(), Options{})
	old := mint(t, v, r)

	nv := capability.NewVault()
	restored, err := Restore(nv.Identity(), r.Address(), Options{}, r.Records())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	stale := old.CreateProof()
	defer stale.Release()
	if _, err := restored.Validate(stale); fault.RuleID(err) != "STAKE-PROOF-005" {
		t.Fatalf("credential of the source instance: got %v", err)
	}

	if _, err := restored.Reissue(nil, old.ID()); !fault.IsKind(err, fault.KindUnauthorized) {
		t.Fatalf("Reissue without capability: got %v", err)
	}
	var fresh *Credential
	err = nv.Authorize(func(p *capability.Proof) error {
		if _, err := restored.Reissue(p, uuid.New()); !fault.IsKind(err, fault.KindUnknownCredential) {
			t.Errorf("Reissue of unknown id: got %v", err)
		}
		var err error
		fresh, err = restored.Reissue(p, old.ID())
		return err
	})
	if err != nil {
		t.Fatalf("Reissue: %v", err)
	}
	if fresh.ID() != old.ID() || fresh.Address() != r.Address() {
		t.Fatalf("reissued credential mismatch")
	}
	p := fresh.CreateProof()
	defer p.Release()
	if _, err := restored.Validate(p); err != nil {
		t.Fatalf("reissued credential: %v", err)
	}
	if _, err := r.Validate(p); fault.RuleID(err) != "STAKE-PROOF-005" {
		t.Fatalf("reissued credential on the source instance: got %v", err)
	}
}
