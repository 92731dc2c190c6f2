// Package ledger composes the capability vault, credential registry and asset
// pool into the public staking surface: BecomeMember, Stake and Withdraw.
//
// Every public operation runs under one mutex and either applies all of its
// writes or none of them.
package ledger

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"xdao.co/stakeledger/asset"
	"xdao.co/stakeledger/capability"
	"xdao.co/stakeledger/fault"
	"xdao.co/stakeledger/registry"
)

// Options configures Instantiate and Restore.
type Options struct {
	// Logger receives operation logs. Defaults to a no-op logger.
	Logger *zap.Logger
	// BadgeName is the credential "name" metadata. Defaults to registry.DefaultName.
	BadgeName string
	// NewID overrides credential id generation (tests).
	NewID func() uuid.UUID
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) registryOptions() registry.Options {
	return registry.Options{Name: o.BadgeName, NewID: o.NewID}
}

// Ledger is one staking ledger instance. The zero value is uninitialized.
type Ledger struct {
	mu       sync.Mutex
	vault    *capability.Vault
	registry *registry.Registry
	pool     *asset.Pool
	log      *zap.Logger
}

// Instantiate mints the capability token, creates a registry gated on it and
// an empty pool of resource.
func Instantiate(resource asset.Resource, opts Options) *Ledger {
	opts = opts.withDefaults()
	vault := capability.NewVault()
	reg := registry.New(vault.Identity(), opts.registryOptions())
	l := &Ledger{
		vault:    vault,
		registry: reg,
		pool:     asset.NewPool(resource),
		log:      opts.Logger.With(zap.String("registry", reg.Address().String())),
	}
	l.log.Info("ledger instantiated", zap.String("resource", resource.Symbol))
	return l
}

func (l *Ledger) ready() error {
	if l == nil || l.vault == nil || l.registry == nil || l.pool == nil {
		return fault.New(fault.KindUninitialized, "STAKE-LEDGER-001", "ledger is not instantiated")
	}
	return nil
}

// BecomeMember mints a credential with amount_staked = 0 and hands it to the caller.
func (l *Ledger) BecomeMember() (*registry.Credential, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var cred *registry.Credential
	err := l.vault.Authorize(func(p *capability.Proof) error {
		var err error
		cred, err = l.registry.Mint(p, registry.Record{AmountStaked: decimal.Zero})
		return err
	})
	if err != nil {
		l.log.Error("mint failed", zap.Error(err))
		return nil, err
	}
	l.log.Debug("member joined", zap.Stringer("credential", cred.ID()))
	return cred, nil
}

// Stake deposits b into the pool and adds its amount to the proven
// credential's stake. b is consumed on success and untouched on failure.
// The proof is released before Stake returns.
func (l *Ledger) Stake(b *asset.Bucket, proof *registry.Proof) (err error) {
	defer proof.Release()
	if err := l.ready(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	vp, err := l.registry.Validate(proof)
	if err != nil {
		l.log.Warn("stake rejected", zap.Error(err))
		return err
	}
	if err := l.pool.CanDeposit(b); err != nil {
		return err
	}
	amount := b.Amount()
	if !amount.IsPositive() {
		return fault.New(fault.KindInvalidAmount, "STAKE-LEDGER-002", "stake amount must be positive")
	}
	rec, err := l.registry.Data(vp.ID())
	if err != nil {
		return err
	}

	var j journal
	defer func() {
		if err != nil {
			j.rollback(l.log)
		}
	}()

	if err = l.setStake(vp.ID(), rec.AmountStaked.Add(amount)); err != nil {
		return err
	}
	j.record("restore stake", func() error { return l.setStake(vp.ID(), rec.AmountStaked) })

	if err = l.pool.Deposit(b); err != nil {
		return err
	}

	l.log.Info("staked",
		zap.Stringer("credential", vp.ID()),
		zap.String("amount", amount.String()),
		zap.String("amountStaked", rec.AmountStaked.Add(amount).String()))
	return nil
}

// Withdraw resets the proven credential's stake to zero and returns the
// previously staked amount from the pool. A zero stake yields an empty bucket.
// The proof is released before Withdraw returns.
func (l *Ledger) Withdraw(proof *registry.Proof) (out *asset.Bucket, err error) {
	defer proof.Release()
	if err := l.ready(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	vp, err := l.registry.Validate(proof)
	if err != nil {
		l.log.Warn("withdraw rejected", zap.Error(err))
		return nil, err
	}
	rec, err := l.registry.Data(vp.ID())
	if err != nil {
		return nil, err
	}

	var j journal
	defer func() {
		if err != nil {
			j.rollback(l.log)
		}
	}()

	if err = l.setStake(vp.ID(), decimal.Zero); err != nil {
		return nil, err
	}
	j.record("restore stake", func() error { return l.setStake(vp.ID(), rec.AmountStaked) })

	out, err = l.pool.Withdraw(rec.AmountStaked)
	if err != nil {
		l.log.Error("pool withdraw failed", zap.Stringer("credential", vp.ID()), zap.Error(err))
		return nil, err
	}

	l.log.Info("withdrew",
		zap.Stringer("credential", vp.ID()),
		zap.String("amount", rec.AmountStaked.String()))
	return out, nil
}

func (l *Ledger) setStake(id uuid.UUID, amount decimal.Decimal) error {
	return l.vault.Authorize(func(p *capability.Proof) error {
		return l.registry.Update(p, id, amount)
	})
}

// AmountStaked returns the stake recorded on credential id.
func (l *Ledger) AmountStaked(id uuid.UUID) (decimal.Decimal, error) {
	if err := l.ready(); err != nil {
		return decimal.Zero, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, err := l.registry.Data(id)
	if err != nil {
		return decimal.Zero, err
	}
	return rec.AmountStaked, nil
}

// Balance returns the pool balance.
func (l *Ledger) Balance() (decimal.Decimal, error) {
	if err := l.ready(); err != nil {
		return decimal.Zero, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.Balance(), nil
}

// Members returns every credential id the ledger has minted.
func (l *Ledger) Members() ([]uuid.UUID, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.IDs(), nil
}

// RegistryAddress returns the schema identity proofs are validated against.
func (l *Ledger) RegistryAddress() uuid.UUID {
	if l.ready() != nil {
		return uuid.Nil
	}
	return l.registry.Address()
}

// Resource returns the pooled resource.
func (l *Ledger) Resource() asset.Resource {
	if l.ready() != nil {
		return asset.Resource{}
	}
	return l.pool.Resource()
}

// OutstandingProofs reports unreleased proofs of this ledger's credentials.
func (l *Ledger) OutstandingProofs() int {
	if l.ready() != nil {
		return 0
	}
	return l.registry.OutstandingProofs()
}

// Audit checks that no stake is negative and that the pool balance equals
// the sum of all stakes.
func (l *Ledger) Audit() error {
	if err := l.ready(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return audit(l.registry.Records(), l.pool.Balance())
}

func audit(records map[uuid.UUID]registry.Record, balance decimal.Decimal) error {
	sum := decimal.Zero
	for id, rec := range records {
		if rec.AmountStaked.IsNegative() {
			return fault.Newf(fault.KindInternal, "STAKE-AUDIT-001", "credential %s has negative stake %s", id, rec.AmountStaked)
		}
		sum = sum.Add(rec.AmountStaked)
	}
	if !sum.Equal(balance) {
		return fault.Newf(fault.KindInternal, "STAKE-AUDIT-002", "pool balance %s does not match total stake %s", balance, sum)
	}
	return nil
}
