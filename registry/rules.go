package registry

import (
	"github.com/google/uuid"

	"xdao.co/stakeledger/capability"
	"xdao.co/stakeledger/fault"
)

// Action names a privileged registry operation.
type Action string

const (
	ActionMint   Action = "mint"
	ActionUpdate Action = "update"
	ActionBurn   Action = "burn"
	ActionRecall Action = "recall"
)

// Rule is an access rule. The zero Rule denies everything.
type Rule struct {
	identity uuid.UUID
}

// DenyAll rejects every caller.
var DenyAll = Rule{}

// RequireCapability admits callers presenting a live proof of the token with identity.
func RequireCapability(identity uuid.UUID) Rule {
	return Rule{identity: identity}
}

// Denies reports whether r rejects every caller.
func (r Rule) Denies() bool { return r.identity == uuid.Nil }

func (r Rule) check(a Action, p *capability.Proof) error {
	if r.Denies() {
		return fault.Newf(fault.KindUnauthorized, "STAKE-REG-001", "%s is not permitted on this registry", a)
	}
	if err := p.Check(r.identity); err != nil {
		return fault.Wrap(fault.KindUnauthorized, "STAKE-REG-002", string(a)+" requires the registry capability", err)
	}
	return nil
}

// Rules is the registry's permission table. Each entry pairs the rule with
// the rule that governs changing it; both locks are DenyAll for a ledger
// registry, so the table is fixed at creation.
type Rules struct {
	Mint   Rule
	Update Rule
	Burn   Rule
	Recall Rule
	Locked Rule
}

func gatedRules(gate uuid.UUID) Rules {
	return Rules{
		Mint:   RequireCapability(gate),
		Update: RequireCapability(gate),
		Burn:   DenyAll,
		Recall: DenyAll,
		Locked: DenyAll,
	}
}

func (rs Rules) rule(a Action) Rule {
	switch a {
	case ActionMint:
		return rs.Mint
	case ActionUpdate:
		return rs.Update
	case ActionBurn:
		return rs.Burn
	case ActionRecall:
		return rs.Recall
	default:
		return DenyAll
	}
}
