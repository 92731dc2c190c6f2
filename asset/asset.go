// Package asset models a single fungible resource as move-only buckets and a pool.
//
// A Bucket is affine: merging it into another bucket or depositing it into a
// pool consumes it, and a consumed bucket rejects every further operation.
// The only legal ways to change quantities are Put (merge) and Take (split).
package asset

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"xdao.co/stakeledger/fault"
)

// DefaultDivisibility is the number of fractional digits an amount may carry.
const DefaultDivisibility = 18

// Resource identifies a fungible resource.
type Resource struct {
	Address      uuid.UUID
	Symbol       string
	Divisibility int32
}

// NewResource returns a resource with a fresh address and DefaultDivisibility.
func NewResource(symbol string) Resource {
	return Resource{Address: uuid.New(), Symbol: symbol, Divisibility: DefaultDivisibility}
}

// CheckAmount validates that amount is non-negative and representable.
func (r Resource) CheckAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fault.Newf(fault.KindInvalidAmount, "STAKE-AMT-001", "negative amount %s", amount)
	}
	if !amount.Truncate(r.Divisibility).Equal(amount) {
		return fault.Newf(fault.KindInvalidAmount, "STAKE-AMT-002", "amount %s exceeds %d fractional digits", amount, r.Divisibility)
	}
	return nil
}

// Mint creates a new bucket of amount. It stands in for the host environment
// that supplies assets; the ledger itself never mints.
func (r Resource) Mint(amount decimal.Decimal) (*Bucket, error) {
	if r.Address == uuid.Nil {
		return nil, fault.New(fault.KindWrongResource, "STAKE-RES-001", "resource has no address")
	}
	if err := r.CheckAmount(amount); err != nil {
		return nil, err
	}
	return &Bucket{resource: r, amount: amount}, nil
}

// Bucket is a move-only quantity of one resource.
type Bucket struct {
	resource Resource
	amount   decimal.Decimal
	consumed bool
}

// Empty returns a zero-amount bucket of r.
func Empty(r Resource) *Bucket {
	return &Bucket{resource: r, amount: decimal.Zero}
}

// Resource returns the bucket's resource.
func (b *Bucket) Resource() Resource { return b.resource }

// Amount returns the held amount; a consumed bucket holds zero.
func (b *Bucket) Amount() decimal.Decimal {
	if b == nil || b.consumed {
		return decimal.Zero
	}
	return b.amount
}

// IsConsumed reports whether b was merged or deposited.
func (b *Bucket) IsConsumed() bool { return b != nil && b.consumed }

// Usable returns an error unless b can still be spent.
func (b *Bucket) Usable() error {
	if b == nil {
		return fault.New(fault.KindConsumed, "STAKE-BKT-001", "nil bucket")
	}
	if b.consumed {
		return fault.New(fault.KindConsumed, "STAKE-BKT-002", "bucket already consumed")
	}
	return nil
}

// Put merges other into b and consumes other.
func (b *Bucket) Put(other *Bucket) error {
	if err := b.Usable(); err != nil {
		return err
	}
	if err := other.Usable(); err != nil {
		return err
	}
	if b == other {
		return fault.New(fault.KindConsumed, "STAKE-BKT-003", "cannot merge a bucket into itself")
	}
	if other.resource.Address != b.resource.Address {
		return fault.New(fault.KindWrongResource, "STAKE-RES-002", "cannot merge buckets of different resources")
	}
	b.amount = b.amount.Add(other.amount)
	other.consume()
	return nil
}

// Take splits amount off b into a new bucket.
func (b *Bucket) Take(amount decimal.Decimal) (*Bucket, error) {
	if err := b.Usable(); err != nil {
		return nil, err
	}
	if err := b.resource.CheckAmount(amount); err != nil {
		return nil, err
	}
	if amount.GreaterThan(b.amount) {
		return nil, fault.Newf(fault.KindInsufficientFunds, "STAKE-BKT-004", "take %s exceeds bucket amount %s", amount, b.amount)
	}
	b.amount = b.amount.Sub(amount)
	return &Bucket{resource: b.resource, amount: amount}, nil
}

func (b *Bucket) consume() {
	b.amount = decimal.Zero
	b.consumed = true
}
