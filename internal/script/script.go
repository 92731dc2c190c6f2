// Package script drives a ledger from a line-oriented simulation script.
//
//	# comments and blank lines are ignored
//	member alice             become a member; alice names the credential
//	stake alice 100.5        mint 100.5 of the pooled resource and stake it
//	withdraw alice           withdraw everything alice staked
//	expect-staked alice 0    assert alice's recorded stake
//	expect-balance 0         assert the pool balance
//
// A run resumed from a snapshot binds every existing credential under its id,
// so "withdraw 6f1c..." works without a member step.
//
// Ledger rejections are recorded on the step's receipt and the run goes on.
// Expectation failures and script mistakes stop the run.
package script

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"xdao.co/stakeledger/ledger"
	"xdao.co/stakeledger/registry"
)

type Op string

const (
	OpMember        Op = "member"
	OpStake         Op = "stake"
	OpWithdraw      Op = "withdraw"
	OpExpectStaked  Op = "expect-staked"
	OpExpectBalance Op = "expect-balance"
)

// Step is one parsed script line.
type Step struct {
	Line   int
	Op     Op
	Member string
	Amount decimal.Decimal
}

var memberName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// arity is the number of operands each op takes.
var arity = map[Op]int{
	OpMember:        1,
	OpStake:         2,
	OpWithdraw:      1,
	OpExpectStaked:  2,
	OpExpectBalance: 1,
}

// Parse reads every step from r.
func Parse(r io.Reader) ([]Step, error) {
	var steps []Step
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
		if text == "" {
			continue
		}
		step, err := parseLine(line, strings.Fields(text))
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

func parseLine(line int, fields []string) (Step, error) {
	op := Op(fields[0])
	n, ok := arity[op]
	if !ok {
		return Step{}, fmt.Errorf("script: line %d: unknown operation %q", line, fields[0])
	}
	args := fields[1:]
	if len(args) != n {
		return Step{}, fmt.Errorf("script: line %d: %s takes %d operand(s), got %d", line, op, n, len(args))
	}

	step := Step{Line: line, Op: op}
	if op != OpExpectBalance {
		if !memberName.MatchString(args[0]) {
			return Step{}, fmt.Errorf("script: line %d: invalid member name %q", line, args[0])
		}
		step.Member = args[0]
		args = args[1:]
	}
	if len(args) == 1 {
		amt, err := decimal.NewFromString(args[0])
		if err != nil {
			return Step{}, fmt.Errorf("script: line %d: invalid amount %q", line, args[0])
		}
		step.Amount = amt
	}
	return step, nil
}

// Receipt is the outcome of one step. Amount is the withdrawn amount for
// withdraw steps.
type Receipt struct {
	Step   Step
	Amount decimal.Decimal
	Err    error
}

// Runner executes steps against one ledger.
type Runner struct {
	Ledger *ledger.Ledger
	Log    *zap.Logger

	members map[string]*registry.Credential
}

// Run executes steps in order and returns a receipt per executed step.
func (r *Runner) Run(steps []Step) ([]Receipt, error) {
	if r.Log == nil {
		r.Log = zap.NewNop()
	}
	if r.members == nil {
		r.members = map[string]*registry.Credential{}
	}

	receipts := make([]Receipt, 0, len(steps))
	for _, s := range steps {
		rc, err := r.step(s)
		if err != nil {
			return receipts, err
		}
		if rc.Err != nil {
			r.Log.Info("step rejected", zap.Int("line", s.Line), zap.String("op", string(s.Op)), zap.Error(rc.Err))
		}
		receipts = append(receipts, rc)
	}
	return receipts, nil
}

// Bind makes c available to later steps under name.
func (r *Runner) Bind(name string, c *registry.Credential) error {
	if !memberName.MatchString(name) {
		return fmt.Errorf("script: invalid member name %q", name)
	}
	if r.members == nil {
		r.members = map[string]*registry.Credential{}
	}
	if _, dup := r.members[name]; dup {
		return fmt.Errorf("script: member %q already bound", name)
	}
	r.members[name] = c
	return nil
}

// Credential returns the credential bound to name by a member step or Bind.
func (r *Runner) Credential(name string) (*registry.Credential, bool) {
	c, ok := r.members[name]
	return c, ok
}

func (r *Runner) step(s Step) (Receipt, error) {
	rc := Receipt{Step: s}

	var cred *registry.Credential
	if s.Op != OpMember && s.Op != OpExpectBalance {
		var ok bool
		if cred, ok = r.members[s.Member]; !ok {
			return rc, fmt.Errorf("script: line %d: %q is not a member", s.Line, s.Member)
		}
	}

	switch s.Op {
	case OpMember:
		if _, dup := r.members[s.Member]; dup {
			return rc, fmt.Errorf("script: line %d: member %q already declared", s.Line, s.Member)
		}
		c, err := r.Ledger.BecomeMember()
		if err != nil {
			rc.Err = err
			return rc, nil
		}
		r.members[s.Member] = c

	case OpStake:
		b, err := r.Ledger.Resource().Mint(s.Amount)
		if err != nil {
			rc.Err = err
			return rc, nil
		}
		rc.Err = r.Ledger.Stake(b, cred.CreateProof())

	case OpWithdraw:
		b, err := r.Ledger.Withdraw(cred.CreateProof())
		if err != nil {
			rc.Err = err
			return rc, nil
		}
		rc.Amount = b.Amount()

	case OpExpectStaked:
		got, err := r.Ledger.AmountStaked(cred.ID())
		if err != nil {
			return rc, fmt.Errorf("script: line %d: %w", s.Line, err)
		}
		if !got.Equal(s.Amount) {
			return rc, fmt.Errorf("script: line %d: %s has %s staked, expected %s", s.Line, s.Member, got, s.Amount)
		}

	case OpExpectBalance:
		got, err := r.Ledger.Balance()
		if err != nil {
			return rc, fmt.Errorf("script: line %d: %w", s.Line, err)
		}
		if !got.Equal(s.Amount) {
			return rc, fmt.Errorf("script: line %d: pool balance is %s, expected %s", s.Line, got, s.Amount)
		}
	}
	return rc, nil
}
