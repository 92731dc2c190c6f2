package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"io"

	"xdao.co/stakeledger/keys"
)

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "show":
		return cmdKeyShow(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "stakeledger key: operator seal keys")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  stakeledger key init --out <file> [--seed-hex <64hex>] [--alg ed25519|dilithium3] [--force]")
	fmt.Fprintln(w, "  stakeledger key derive --from <file> --role <role> --out <file> [--alg ed25519|dilithium3] [--force]")
	fmt.Fprintln(w, "  stakeledger key show --key-file <file> [--alg ed25519|dilithium3]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var outPath, seedHex, alg string
	var force bool
	fs.StringVar(&outPath, "out", "", "Seed file to write (hex, mode 0600)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional seed as 64 hex chars (for reproducible demos)")
	fs.StringVar(&alg, "alg", keys.AlgEd25519, "Signature algorithm the issuer key is printed for")
	fs.BoolVar(&force, "force", false, "Overwrite an existing seed file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}

	var seed []byte
	if seedHex != "" {
		var err error
		if seed, err = keys.ParseSeedHex(seedHex); err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, keys.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}
	return writeKey(outPath, seed, alg, force, out, errOut)
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from, role, outPath, alg string
	var force bool
	fs.StringVar(&from, "from", "", "Root seed file")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. ledger name)")
	fs.StringVar(&outPath, "out", "", "Derived seed file to write")
	fs.StringVar(&alg, "alg", keys.AlgEd25519, "Signature algorithm the issuer key is printed for")
	fs.BoolVar(&force, "force", false, "Overwrite an existing seed file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" || role == "" || outPath == "" {
		fmt.Fprintln(errOut, "--from, --role and --out are required")
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}

	root, err := keys.LoadSeedFile(from)
	if err != nil {
		fmt.Fprintf(errOut, "read root seed: %v\n", err)
		return 1
	}
	seed, err := keys.DeriveRoleSeed(root, role)
	if err != nil {
		fmt.Fprintf(errOut, "derive: %v\n", err)
		return 1
	}
	return writeKey(outPath, seed, alg, force, out, errOut)
}

func cmdKeyShow(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key show", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var keyFile, alg string
	fs.StringVar(&keyFile, "key-file", "", "Seed file")
	fs.StringVar(&alg, "alg", keys.AlgEd25519, "Signature algorithm")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if keyFile == "" {
		fmt.Fprintln(errOut, "missing --key-file")
		return 2
	}
	seed, err := keys.LoadSeedFile(keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "read seed: %v\n", err)
		return 1
	}
	signer, err := keys.NewSigner(alg, seed)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --alg: %v\n", err)
		return 2
	}
	fmt.Fprintln(out, signer.IssuerKey())
	return 0
}

func writeKey(path string, seed []byte, alg string, force bool, out io.Writer, errOut io.Writer) int {
	signer, err := keys.NewSigner(alg, seed)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --alg: %v\n", err)
		return 2
	}
	if err := keys.WriteSeedFile(path, seed, force); err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Issuer key: %s\n", signer.IssuerKey())
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}
