package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"xdao.co/stakeledger/asset"
	"xdao.co/stakeledger/capability"
	"xdao.co/stakeledger/fault"
	"xdao.co/stakeledger/model"
	"xdao.co/stakeledger/registry"
)

// State returns the durable projection of the ledger. Credentials are sorted by id.
func (l *Ledger) State() (model.LedgerState, error) {
	if err := l.ready(); err != nil {
		return model.LedgerState{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	schema := l.registry.Schema()
	res := l.pool.Resource()
	records := l.registry.Records()

	creds := make([]model.CredentialState, 0, len(records))
	for id, rec := range records {
		creds = append(creds, model.CredentialState{ID: id.String(), AmountStaked: rec.AmountStaked.String()})
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].ID < creds[j].ID })

	return model.LedgerState{
		Version:         model.FormatVersion,
		RegistryAddress: schema.Address.String(),
		Metadata:        schema.Metadata,
		Resource: model.ResourceState{
			Address:      res.Address.String(),
			Symbol:       res.Symbol,
			Divisibility: res.Divisibility,
		},
		PoolBalance: l.pool.Balance().String(),
		Credentials: creds,
	}, nil
}

// Restore rebuilds a ledger from st with a fresh capability token. The
// restored ledger is a new instance: credentials held against the ledger the
// snapshot was taken from are rejected with InvalidProof.
func Restore(st model.LedgerState, opts Options) (*Ledger, error) {
	l, _, err := restore(st, opts, false)
	return l, err
}

// RestoreWithCredentials is Restore that also reissues a credential of the
// new instance for every record, keyed by credential id. The caller is
// responsible for handing them back to their holders.
func RestoreWithCredentials(st model.LedgerState, opts Options) (*Ledger, map[uuid.UUID]*registry.Credential, error) {
	return restore(st, opts, true)
}

func restore(st model.LedgerState, opts Options, reissue bool) (*Ledger, map[uuid.UUID]*registry.Credential, error) {
	opts = opts.withDefaults()
	if st.Version != model.FormatVersion {
		return nil, nil, fault.Newf(fault.KindCorruptState, "STAKE-STATE-001", "unsupported state version %d", st.Version)
	}
	regAddr, err := parseID("registryAddress", st.RegistryAddress)
	if err != nil {
		return nil, nil, err
	}
	resAddr, err := parseID("resource.address", st.Resource.Address)
	if err != nil {
		return nil, nil, err
	}
	res := asset.Resource{Address: resAddr, Symbol: st.Resource.Symbol, Divisibility: st.Resource.Divisibility}

	balance, err := parseAmount(res, "poolBalance", st.PoolBalance)
	if err != nil {
		return nil, nil, err
	}
	records := make(map[uuid.UUID]registry.Record, len(st.Credentials))
	for _, c := range st.Credentials {
		id, err := parseID("credential id", c.ID)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := records[id]; dup {
			return nil, nil, fault.Newf(fault.KindCorruptState, "STAKE-STATE-002", "duplicate credential %s", id)
		}
		amt, err := parseAmount(res, "amountStaked", c.AmountStaked)
		if err != nil {
			return nil, nil, err
		}
		records[id] = registry.Record{AmountStaked: amt}
	}
	if err := audit(records, balance); err != nil {
		return nil, nil, fault.Wrap(fault.KindCorruptState, "STAKE-STATE-003", "state violates pool invariant", err)
	}

	if name := st.Metadata["name"]; name != "" && opts.BadgeName == "" {
		opts.BadgeName = name
	}
	vault := capability.NewVault()
	reg, err := registry.Restore(vault.Identity(), regAddr, opts.registryOptions(), records)
	if err != nil {
		return nil, nil, err
	}
	pool := asset.NewPool(res)
	funds, err := res.Mint(balance)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Deposit(funds); err != nil {
		return nil, nil, err
	}

	l := &Ledger{
		vault:    vault,
		registry: reg,
		pool:     pool,
		log:      opts.Logger.With(zap.String("registry", regAddr.String())),
	}
	var creds map[uuid.UUID]*registry.Credential
	if reissue {
		creds = make(map[uuid.UUID]*registry.Credential, len(records))
		err := vault.Authorize(func(p *capability.Proof) error {
			for id := range records {
				c, err := reg.Reissue(p, id)
				if err != nil {
					return err
				}
				creds[id] = c
			}
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	l.log.Info("ledger restored", zap.Int("credentials", len(records)), zap.String("poolBalance", balance.String()), zap.Bool("reissued", reissue))
	return l, creds, nil
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fault.Wrap(fault.KindCorruptState, "STAKE-STATE-004", "invalid "+field, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fault.New(fault.KindCorruptState, "STAKE-STATE-004", field+" must not be nil")
	}
	return id, nil
}

func parseAmount(res asset.Resource, field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fault.Wrap(fault.KindCorruptState, "STAKE-STATE-005", "invalid "+field, err)
	}
	if err := res.CheckAmount(d); err != nil {
		return decimal.Zero, fault.Wrap(fault.KindCorruptState, "STAKE-STATE-005", "invalid "+field, err)
	}
	return d, nil
}
