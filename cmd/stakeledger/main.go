package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"xdao.co/stakeledger/config"
	"xdao.co/stakeledger/internal/logging"
	"xdao.co/stakeledger/storage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "run":
		return cmdRun(args[1:], out, errOut)
	case "inspect":
		return cmdInspect(args[1:], out, errOut)
	case "serve":
		return cmdServe(args[1:], out, errOut)
	case "query":
		return cmdQuery(args[1:], out, errOut)
	case "export":
		return cmdExport(args[1:], out, errOut)
	case "import":
		return cmdImport(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "stakeledger: membership staking ledger")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  stakeledger run [--config <file>] [--from-state <CID> | --from-seal <CID>] <script>")
	fmt.Fprintln(w, "  stakeledger inspect [--config <file>] [--trusted-key <key>] (--state <CID> | --seal <CID>)")
	fmt.Fprintln(w, "  stakeledger serve [--config <file>] [--listen <addr>] (--state <CID> | --seal <CID>)")
	fmt.Fprintln(w, "  stakeledger query [--addr <addr>] balance|members|state|audit|staked <credential-id>")
	fmt.Fprintln(w, "  stakeledger export [--config <file>] (--state <CID> | --seal <CID>) --out <file.tar>")
	fmt.Fprintln(w, "  stakeledger import [--config <file>] <file.tar>")
	fmt.Fprintln(w, "  stakeledger key init --out <file> [--seed-hex <64hex>] [--alg ed25519|dilithium3] [--force]")
	fmt.Fprintln(w, "  stakeledger key derive --from <file> --role <role> --out <file> [--alg ed25519|dilithium3] [--force]")
	fmt.Fprintln(w, "  stakeledger key show --key-file <file> [--alg ed25519|dilithium3]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - without --config, snapshots go to an in-memory store and only their CIDs survive the process")
	fmt.Fprintln(w, "  - run seals the final state when seal.key_file is configured")
	fmt.Fprintln(w, "  - inspect prints the canonical state JSON to stdout")
	fmt.Fprintln(w, "  - --backend (or storage.preferred) picks the backend that takes writes first")
}

// env is what every storage-backed command needs.
type env struct {
	cfg config.Config
	log *zap.Logger
	cas storage.CAS
}

func (e env) close() { _ = e.log.Sync() }

// envOptions are the flags shared by storage-backed commands.
type envOptions struct {
	config  string
	backend string
}

func registerEnvFlags(fs *flag.FlagSet) *envOptions {
	o := &envOptions{}
	fs.StringVar(&o.config, "config", "", "YAML config file (defaults apply when omitted)")
	fs.StringVar(&o.backend, "backend", "", "Storage backend to write first (overrides storage.preferred)")
	return o
}

func loadEnv(o envOptions) (env, error) {
	cfg := config.Default()
	if o.config != "" {
		var err error
		if cfg, err = config.LoadFile(o.config); err != nil {
			return env{}, err
		}
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return env{}, err
	}
	cas, err := cfg.Storage.Open(o.backend)
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, log: log, cas: cas}, nil
}
