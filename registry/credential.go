package registry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"xdao.co/stakeledger/fault"
)

// Credential is a membership credential. The holder owns it; there is no
// transfer operation.
type Credential struct {
	id       uuid.UUID
	address  uuid.UUID
	instance uuid.UUID
	proofs   *proofTracker
}

// ID returns the credential id.
func (c *Credential) ID() uuid.UUID { return c.id }

// Address returns the address of the registry that minted c.
func (c *Credential) Address() uuid.UUID { return c.address }

// CreateProof returns a proof of possession of c. The proof must be released
// by whoever consumes it.
func (c *Credential) CreateProof() *Proof {
	c.proofs.open()
	return &Proof{id: c.id, address: c.address, instance: c.instance, proofs: c.proofs}
}

// Proof is caller-presented evidence of holding a credential.
type Proof struct {
	mu       sync.Mutex
	id       uuid.UUID
	address  uuid.UUID
	instance uuid.UUID
	proofs   *proofTracker
	released bool
}

// Release ends the proof. Releasing twice is a no-op.
func (p *Proof) Release() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return
	}
	p.released = true
	if p.proofs != nil {
		p.proofs.close()
	}
}

// Released reports whether Release has been called.
func (p *Proof) Released() bool {
	if p == nil {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// ValidatedProof is a proof that passed Validate against a specific registry.
type ValidatedProof struct {
	id      uuid.UUID
	address uuid.UUID
}

// ID returns the id of the proven credential.
func (v ValidatedProof) ID() uuid.UUID { return v.id }

// Address returns the registry the proof was validated against.
func (v ValidatedProof) Address() uuid.UUID { return v.address }

// Validate checks that p proves a credential minted by r. Credentials are
// bound to the registry instance that issued them, so a registry restored
// from the same snapshot rejects them.
func (r *Registry) Validate(p *Proof) (ValidatedProof, error) {
	if p == nil {
		return ValidatedProof{}, fault.New(fault.KindInvalidProof, "STAKE-PROOF-001", "missing credential proof")
	}
	if p.Released() {
		return ValidatedProof{}, fault.New(fault.KindInvalidProof, "STAKE-PROOF-002", "credential proof already released")
	}
	if p.address != r.schema.Address {
		return ValidatedProof{}, fault.New(fault.KindInvalidProof, "STAKE-PROOF-003", "credential proof is for a different registry")
	}
	if p.instance != r.instance {
		return ValidatedProof{}, fault.New(fault.KindInvalidProof, "STAKE-PROOF-005", "credential proof was issued by another instance of this registry")
	}
	r.mu.RLock()
	ok := r.has(p.id)
	r.mu.RUnlock()
	if !ok {
		return ValidatedProof{}, fault.New(fault.KindInvalidProof, "STAKE-PROOF-004", "credential proof names an id this registry never minted")
	}
	return ValidatedProof{id: p.id, address: r.schema.Address}, nil
}

type proofTracker struct {
	n atomic.Int64
}

// A nil tracker belongs to a zero Credential and counts nothing.
func (t *proofTracker) open() {
	if t != nil {
		t.n.Add(1)
	}
}

func (t *proofTracker) close() {
	if t != nil {
		t.n.Add(-1)
	}
}

func (t *proofTracker) outstanding() int {
	if t == nil {
		return 0
	}
	return int(t.n.Load())
}
