package ledger

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"xdao.co/stakeledger/fault"
	"xdao.co/stakeledger/model"
)

func TestStateRestore_RoundTrip(t *testing.T) {
	l := Instantiate(xrd, Options{BadgeName: "Guild Badge"})
	a := member(t, l)
	b := member(t, l)
	stake(t, l, a, "12.5")
	stake(t, l, b, "7")

	st, err := l.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.PoolBalance != "19.5" || len(st.Credentials) != 2 {
		t.Fatalf("unexpected state: %+v", st)
	}

	restored, creds, err := RestoreWithCredentials(st, Options{})
	if err != nil {
		t.Fatalf("RestoreWithCredentials: %v", err)
	}
	if len(creds) != 2 || creds[a.ID()] == nil || creds[b.ID()] == nil {
		t.Fatalf("expected a reissued credential per member, got %d", len(creds))
	}
	again, err := restored.State()
	if err != nil {
		t.Fatalf("State (restored): %v", err)
	}
	if diff := cmp.Diff(st, again); diff != "" {
		t.Fatalf("state changed across restore (-want +got):\n%s", diff)
	}

	ra, rb := creds[a.ID()], creds[b.ID()]
	stake(t, restored, ra, "0.5")
	requireStake(t, restored, ra, "13")
	out, err := restored.Withdraw(rb.CreateProof())
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if !out.Amount().Equal(decimal.NewFromInt(7)) {
		t.Fatalf("withdrawn: got %s", out.Amount())
	}
	requireBalance(t, restored, "13")
	requireConsistent(t, restored)

	// The original ledger is unaffected.
	requireBalance(t, l, "19.5")
}

func TestRestore_RejectsCredentialsOfSourceLedger(t *testing.T) {
	x := newLedger(t)
	cx := member(t, x)
	stake(t, x, cx, "10")
	st, err := x.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}

	y, err := Restore(st, Options{})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if y.RegistryAddress() != x.RegistryAddress() {
		t.Fatalf("restore changed the registry address")
	}

	_, err = y.Withdraw(cx.CreateProof())
	if fault.RuleID(err) != "STAKE-PROOF-005" {
		t.Fatalf("withdraw with source credential: got %v", err)
	}
	b := coins(t, "3")
	if err := y.Stake(b, cx.CreateProof()); !fault.IsKind(err, fault.KindInvalidProof) {
		t.Fatalf("stake with source credential: got %v", err)
	}
	if b.IsConsumed() {
		t.Fatalf("rejected stake consumed the bucket")
	}
	if n := y.OutstandingProofs(); n != 0 {
		t.Fatalf("%d proofs outstanding on restored ledger", n)
	}
	if n := x.OutstandingProofs(); n != 0 {
		t.Fatalf("%d proofs outstanding on source ledger", n)
	}

	requireStake(t, y, cx, "10")
	requireBalance(t, y, "10")
	requireConsistent(t, y)
	requireStake(t, x, cx, "10")
	requireBalance(t, x, "10")
}

func TestRestore_RejectsCorruptState(t *testing.T) {
	l := newLedger(t)
	c := member(t, l)
	stake(t, l, c, "5")
	good, err := l.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}

	mutate := map[string]func(st *model.LedgerState){
		"version":          func(st *model.LedgerState) { st.Version = 99 },
		"registry address": func(st *model.LedgerState) { st.RegistryAddress = "not-a-uuid" },
		"nil resource":     func(st *model.LedgerState) { st.Resource.Address = "00000000-0000-0000-0000-000000000000" },
		"balance mismatch": func(st *model.LedgerState) { st.PoolBalance = "6" },
		"negative stake": func(st *model.LedgerState) {
			st.Credentials[0].AmountStaked = "-5"
			st.PoolBalance = "-5"
		},
		"bad amount": func(st *model.LedgerState) { st.PoolBalance = "five" },
		"duplicate credential": func(st *model.LedgerState) {
			st.Credentials = append(st.Credentials, st.Credentials[0])
		},
	}
	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			st := good
			st.Credentials = append([]model.CredentialState(nil), good.Credentials...)
			fn(&st)
			if _, err := Restore(st, Options{}); !fault.IsKind(err, fault.KindCorruptState) {
				t.Fatalf("expected CorruptState, got %v", err)
			}
		})
	}
}
