package asset

import (
	"github.com/shopspring/decimal"

	"xdao.co/stakeledger/fault"
)

// Pool accumulates deposits of a single resource.
//
// Balance is always total deposited minus total withdrawn.
type Pool struct {
	resource Resource
	balance  decimal.Decimal
}

// NewPool returns an empty pool for r.
func NewPool(r Resource) *Pool {
	return &Pool{resource: r, balance: decimal.Zero}
}

// Resource returns the pool's resource.
func (p *Pool) Resource() Resource { return p.resource }

// Balance returns the pooled amount.
func (p *Pool) Balance() decimal.Decimal { return p.balance }

// CanDeposit reports whether b would be accepted by Deposit, without consuming it.
func (p *Pool) CanDeposit(b *Bucket) error {
	if err := b.Usable(); err != nil {
		return err
	}
	if b.resource.Address != p.resource.Address {
		return fault.Newf(fault.KindWrongResource, "STAKE-RES-003", "pool holds %s, got bucket of %s", p.resource.Symbol, b.resource.Symbol)
	}
	return nil
}

// Deposit merges b into the pool and consumes b.
func (p *Pool) Deposit(b *Bucket) error {
	if err := p.CanDeposit(b); err != nil {
		return err
	}
	p.balance = p.balance.Add(b.amount)
	b.consume()
	return nil
}

// Withdraw removes amount from the pool and returns it as a new bucket.
//
// InsufficientFunds here means the pool and the credential records disagree.
func (p *Pool) Withdraw(amount decimal.Decimal) (*Bucket, error) {
	if err := p.resource.CheckAmount(amount); err != nil {
		return nil, err
	}
	if amount.GreaterThan(p.balance) {
		return nil, fault.Newf(fault.KindInsufficientFunds, "STAKE-POOL-001", "withdraw %s exceeds pool balance %s", amount, p.balance)
	}
	p.balance = p.balance.Sub(amount)
	return &Bucket{resource: p.resource, amount: amount}, nil
}
