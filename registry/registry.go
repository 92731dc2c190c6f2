// Package registry stores membership credential records.
//
// A Registry owns the credential schema, its access rules and the record
// store keyed by credential id. Holders own their *Credential; the registry
// only stores and mutates the data attached to it. Mint and Update require a
// capability proof of the token the registry was gated on; every other
// privileged action is denied.
package registry

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"xdao.co/stakeledger/capability"
	"xdao.co/stakeledger/fault"
)

// DefaultName is the metadata name given to credentials when Options.Name is empty.
const DefaultName = "Member Badge"

// FieldAmountStaked is the only mutable field of the credential schema.
const FieldAmountStaked = "amount_staked"

// Record is the data attached to one credential.
type Record struct {
	AmountStaked decimal.Decimal
}

// Schema describes the credential resource.
type Schema struct {
	Address       uuid.UUID
	Metadata      map[string]string
	MutableFields []string
}

// Options configures New.
type Options struct {
	// Name is stored as the "name" metadata entry.
	Name string
	// NewID generates credential ids. Defaults to uuid.New.
	NewID func() uuid.UUID
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.NewID == nil {
		o.NewID = uuid.New
	}
	return o
}

// Registry is the authoritative credential store.
type Registry struct {
	mu       sync.RWMutex
	schema   Schema
	instance uuid.UUID
	rules    Rules
	records  map[uuid.UUID]Record
	newID    func() uuid.UUID
	proofs   *proofTracker
}

// New returns an empty registry gated on the capability token identity gate.
func New(gate uuid.UUID, opts Options) *Registry {
	return newRegistry(gate, uuid.New(), opts, nil)
}

// Restore rebuilds a registry with a known address and record set. The
// restored registry is a new instance: credentials issued by any earlier
// instance do not validate against it, see Reissue.
func Restore(gate, address uuid.UUID, opts Options, records map[uuid.UUID]Record) (*Registry, error) {
	if address == uuid.Nil {
		return nil, fault.New(fault.KindCorruptState, "STAKE-REG-101", "registry address is required")
	}
	for id, rec := range records {
		if id == uuid.Nil {
			return nil, fault.New(fault.KindCorruptState, "STAKE-REG-102", "credential id must not be nil")
		}
		if rec.AmountStaked.IsNegative() {
			return nil, fault.Newf(fault.KindCorruptState, "STAKE-REG-103", "credential %s has negative stake", id)
		}
	}
	return newRegistry(gate, address, opts, records), nil
}

func newRegistry(gate, address uuid.UUID, opts Options, records map[uuid.UUID]Record) *Registry {
	opts = opts.withDefaults()
	store := make(map[uuid.UUID]Record, len(records))
	for id, rec := range records {
		store[id] = rec
	}
	return &Registry{
		schema: Schema{
			Address:       address,
			Metadata:      map[string]string{"name": opts.Name},
			MutableFields: []string{FieldAmountStaked},
		},
		instance: uuid.New(),
		rules:    gatedRules(gate),
		records:  store,
		newID:    opts.NewID,
		proofs:   &proofTracker{},
	}
}

// Address is the registry's schema identity.
func (r *Registry) Address() uuid.UUID { return r.schema.Address }

// Schema returns a copy of the credential schema.
func (r *Registry) Schema() Schema {
	md := make(map[string]string, len(r.schema.Metadata))
	for k, v := range r.schema.Metadata {
		md[k] = v
	}
	return Schema{
		Address:       r.schema.Address,
		Metadata:      md,
		MutableFields: append([]string(nil), r.schema.MutableFields...),
	}
}

// Rules returns the registry's permission table.
func (r *Registry) Rules() Rules { return r.rules }

// Mint stores a new record and returns the credential for it.
func (r *Registry) Mint(p *capability.Proof, data Record) (*Credential, error) {
	if err := r.rules.rule(ActionMint).check(ActionMint, p); err != nil {
		return nil, err
	}
	if data.AmountStaked.IsNegative() {
		return nil, fault.New(fault.KindInvalidAmount, "STAKE-REG-003", "initial stake must not be negative")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.newID()
	for attempts := 1; id == uuid.Nil || r.has(id); attempts++ {
		if attempts >= 16 {
			return nil, fault.New(fault.KindInternal, "STAKE-REG-004", "could not allocate a unique credential id")
		}
		id = r.newID()
	}
	r.records[id] = data
	return r.credential(id), nil
}

// Reissue returns a credential of this instance for an existing record. It
// is gated like Mint.
func (r *Registry) Reissue(p *capability.Proof, id uuid.UUID) (*Credential, error) {
	if err := r.rules.rule(ActionMint).check(ActionMint, p); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.has(id) {
		return nil, unknown(id)
	}
	return r.credential(id), nil
}

func (r *Registry) credential(id uuid.UUID) *Credential {
	return &Credential{id: id, address: r.schema.Address, instance: r.instance, proofs: r.proofs}
}

// Update sets amount_staked on the record for id.
func (r *Registry) Update(p *capability.Proof, id uuid.UUID, amount decimal.Decimal) error {
	if err := r.rules.rule(ActionUpdate).check(ActionUpdate, p); err != nil {
		return err
	}
	if amount.IsNegative() {
		return fault.Newf(fault.KindInvalidAmount, "STAKE-REG-005", "%s must not be negative", FieldAmountStaked)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return unknown(id)
	}
	rec.AmountStaked = amount
	r.records[id] = rec
	return nil
}

// Burn is denied for ledger registries.
func (r *Registry) Burn(p *capability.Proof, id uuid.UUID) error {
	return r.rules.rule(ActionBurn).check(ActionBurn, p)
}

// Recall is denied for ledger registries.
func (r *Registry) Recall(p *capability.Proof, id uuid.UUID) error {
	return r.rules.rule(ActionRecall).check(ActionRecall, p)
}

// SetRule is governed by the Locked rule, which denies everyone.
func (r *Registry) SetRule(p *capability.Proof, a Action, rule Rule) error {
	return r.rules.Locked.check(Action("set-rule:"+string(a)), p)
}

// Data returns the record for id. Reads are public.
func (r *Registry) Data(id uuid.UUID) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, unknown(id)
	}
	return rec, nil
}

// Len returns the number of credentials ever minted.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// IDs returns all credential ids in ascending byte order.
func (r *Registry) IDs() []uuid.UUID {
	r.mu.RLock()
	out := make([]uuid.UUID, 0, len(r.records))
	for id := range r.records {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Records returns a copy of the record store.
func (r *Registry) Records() map[uuid.UUID]Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]Record, len(r.records))
	for id, rec := range r.records {
		out[id] = rec
	}
	return out
}

// OutstandingProofs returns how many proofs of this registry's credentials
// have been created and not yet released.
func (r *Registry) OutstandingProofs() int { return r.proofs.outstanding() }

func (r *Registry) has(id uuid.UUID) bool {
	_, ok := r.records[id]
	return ok
}

func unknown(id uuid.UUID) error {
	return fault.Newf(fault.KindUnknownCredential, "STAKE-REG-006", "unknown credential %s", id)
}
