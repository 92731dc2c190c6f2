package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/stakeledger/snapshot"
	"xdao.co/stakeledger/storage/bundle"
)

func cmdExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	envFlags := registerEnvFlags(fs)
	var stateArg, sealArg, outPath string
	fs.StringVar(&stateArg, "state", "", "State CID")
	fs.StringVar(&sealArg, "seal", "", "Sealed state CID (the state it names is included)")
	fs.StringVar(&outPath, "out", "", "Archive path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (stateArg == "") == (sealArg == "") || outPath == "" {
		fmt.Fprintln(errOut, "usage: stakeledger export [--config <file>] (--state <CID> | --seal <CID>) --out <file.tar>")
		return 2
	}

	e, err := loadEnv(*envFlags)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer e.close()

	labels := map[string]cid.Cid{}
	if sealArg != "" {
		sealID, err := parseCID("seal", sealArg)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 2
		}
		sealed, _, err := snapshot.LoadSealed(e.cas, sealID, e.cfg.Seal.TrustedKey)
		if err != nil {
			fmt.Fprintf(errOut, "load seal: %v\n", err)
			return 1
		}
		stateID, err := parseCID("seal", sealed.StateCID)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		labels[bundle.LabelSeal] = sealID
		labels[bundle.LabelState] = stateID
	} else {
		stateID, err := parseCID("state", stateArg)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 2
		}
		if _, err := snapshot.Load(e.cas, stateID); err != nil {
			fmt.Fprintf(errOut, "load state: %v\n", err)
			return 1
		}
		labels[bundle.LabelState] = stateID
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if err := bundle.Export(f, e.cas, labels); err != nil {
		_ = f.Close()
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "wrote %s\n", outPath)
	return 0
}

func cmdImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	envFlags := registerEnvFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: stakeledger import [--config <file>] <file.tar>")
		return 2
	}

	e, err := loadEnv(*envFlags)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer e.close()

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer f.Close()

	labels, err := bundle.Import(f, e.cas)
	if err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	for _, name := range []string{bundle.LabelState, bundle.LabelSeal} {
		if id, ok := labels[name]; ok {
			fmt.Fprintf(out, "%s: %s\n", name, id)
		}
	}
	return 0
}
