package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"xdao.co/stakeledger/asset"
	"xdao.co/stakeledger/cidutil"
	"xdao.co/stakeledger/internal/script"
	"xdao.co/stakeledger/ledger"
	"xdao.co/stakeledger/model"
	"xdao.co/stakeledger/registry"
	"xdao.co/stakeledger/snapshot"
)

func cmdRun(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(errOut)
	envFlags := registerEnvFlags(fs)
	var fromState, fromSeal string
	var jsonOut bool
	fs.BoolVar(&jsonOut, "json", false, "Print a JSON run report instead of text receipts")
	fs.StringVar(&fromState, "from-state", "", "Resume from the state stored under this CID")
	fs.StringVar(&fromSeal, "from-seal", "", "Resume from the sealed state stored under this CID")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: stakeledger run [--config <file>] [--from-state <CID> | --from-seal <CID>] <script>")
		return 2
	}
	if fromState != "" && fromSeal != "" {
		fmt.Fprintln(errOut, "--from-state and --from-seal are mutually exclusive")
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read script: %v\n", err)
		return 1
	}
	steps, err := script.Parse(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	e, err := loadEnv(*envFlags)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer e.close()

	opts := ledger.Options{Logger: e.log, BadgeName: e.cfg.Ledger.BadgeName}
	var l *ledger.Ledger
	var held map[uuid.UUID]*registry.Credential
	if fromState != "" || fromSeal != "" {
		st, err := loadState(e, fromState, fromSeal, e.cfg.Seal.TrustedKey)
		if err != nil {
			fmt.Fprintf(errOut, "load state: %v\n", err)
			return 1
		}
		if l, held, err = ledger.RestoreWithCredentials(st, opts); err != nil {
			fmt.Fprintf(errOut, "restore: %v\n", err)
			return 1
		}
	} else {
		l = ledger.Instantiate(asset.NewResource(e.cfg.Ledger.Symbol), opts)
	}

	runner := &script.Runner{Ledger: l, Log: e.log}
	for id, c := range held {
		if err := runner.Bind(id.String(), c); err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
	}
	receipts, runErr := runner.Run(steps)
	report := model.RunReport{Receipts: make([]model.StepReceipt, 0, len(receipts))}
	for _, rc := range receipts {
		report.Receipts = append(report.Receipts, toReceipt(runner, rc))
	}
	code := 0
	if runErr == nil {
		runErr = l.Audit()
	}
	if runErr == nil {
		report.StateCID, report.SealCID, runErr = persist(e, l)
	}
	if runErr != nil {
		report.Error = model.FromError(runErr)
		code = 1
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		return code
	}
	for _, rc := range report.Receipts {
		printReceipt(out, rc)
	}
	if runErr != nil {
		fmt.Fprintln(errOut, runErr)
		return code
	}
	fmt.Fprintf(out, "state: %s\n", report.StateCID)
	if report.SealCID != "" {
		fmt.Fprintf(out, "seal: %s\n", report.SealCID)
	}
	return 0
}

// persist saves the ledger state, sealing it when a key is configured.
func persist(e env, l *ledger.Ledger) (stateCID, sealCID string, err error) {
	st, err := l.State()
	if err != nil {
		return "", "", err
	}
	signer, err := e.cfg.Seal.Signer()
	if err != nil {
		return "", "", fmt.Errorf("seal key: %w", err)
	}
	if signer == nil {
		id, err := snapshot.Save(e.cas, st)
		if err != nil {
			return "", "", err
		}
		return id.String(), "", nil
	}
	sealed, sealID, err := snapshot.Seal(e.cas, st, signer, e.cfg.Seal.Hash)
	if err != nil {
		return "", "", err
	}
	e.log.Info("state sealed", zap.String("state", sealed.StateCID), zap.String("seal", sealID.String()))
	return sealed.StateCID, sealID.String(), nil
}

func toReceipt(r *script.Runner, rc script.Receipt) model.StepReceipt {
	out := model.StepReceipt{Line: rc.Step.Line, Op: string(rc.Step.Op), Member: rc.Step.Member, Error: model.FromError(rc.Err)}
	if c, ok := r.Credential(rc.Step.Member); ok {
		out.CredentialID = c.ID().String()
	}
	switch rc.Step.Op {
	case script.OpStake:
		out.Amount = rc.Step.Amount.String()
	case script.OpWithdraw:
		if rc.Err == nil {
			out.Amount = rc.Amount.String()
		}
	}
	return out
}

func printReceipt(out io.Writer, rc model.StepReceipt) {
	subject := rc.Member
	if rc.CredentialID != "" {
		subject = fmt.Sprintf("%s(%s)", rc.Member, rc.CredentialID)
	}
	switch {
	case rc.Error != nil:
		fmt.Fprintf(out, "line %d: %s %s rejected: %s\n", rc.Line, rc.Op, subject, rc.Error.Message)
	case rc.Op == string(script.OpWithdraw):
		fmt.Fprintf(out, "line %d: withdraw %s -> %s\n", rc.Line, subject, rc.Amount)
	case rc.Op == string(script.OpStake):
		fmt.Fprintf(out, "line %d: stake %s %s\n", rc.Line, subject, rc.Amount)
	case rc.Op == string(script.OpMember):
		fmt.Fprintf(out, "line %d: member %s\n", rc.Line, subject)
	}
}

func cmdInspect(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(errOut)
	envFlags := registerEnvFlags(fs)
	var stateArg, sealArg, trustedKey string
	fs.StringVar(&stateArg, "state", "", "State CID")
	fs.StringVar(&sealArg, "seal", "", "Sealed state CID")
	fs.StringVar(&trustedKey, "trusted-key", "", "Only accept seals issued by this key (overrides seal.trusted_key)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (stateArg == "") == (sealArg == "") {
		fmt.Fprintln(errOut, "exactly one of --state or --seal is required")
		return 2
	}

	e, err := loadEnv(*envFlags)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer e.close()
	if trustedKey == "" {
		trustedKey = e.cfg.Seal.TrustedKey
	}

	st, err := loadState(e, stateArg, sealArg, trustedKey)
	if err != nil {
		fmt.Fprintf(errOut, "load state: %v\n", err)
		return 1
	}
	if _, err := ledger.Restore(st, ledger.Options{Logger: e.log}); err != nil {
		fmt.Fprintf(errOut, "restore: %v\n", err)
		return 1
	}
	b, err := snapshot.Encode(st)
	if err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	_, _ = out.Write(b)
	return 0
}

// loadState reads a plain or sealed state from the env's CAS.
func loadState(e env, stateArg, sealArg, trustedKey string) (model.LedgerState, error) {
	switch {
	case sealArg != "":
		id, err := parseCID("seal", sealArg)
		if err != nil {
			return model.LedgerState{}, err
		}
		sealed, st, err := snapshot.LoadSealed(e.cas, id, trustedKey)
		if err != nil {
			return model.LedgerState{}, err
		}
		e.log.Info("seal verified", zap.String("issuer", sealed.IssuerKey), zap.String("state", sealed.StateCID))
		return st, nil
	case stateArg != "":
		id, err := parseCID("state", stateArg)
		if err != nil {
			return model.LedgerState{}, err
		}
		return snapshot.Load(e.cas, id)
	default:
		return model.LedgerState{}, errors.New("no state selected")
	}
}

func parseCID(flagName, s string) (cid.Cid, error) {
	id, err := cidutil.Parse(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("invalid --%s: %w", flagName, err)
	}
	return id, nil
}
