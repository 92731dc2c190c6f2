package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/stakeledger/ledger"
	"xdao.co/stakeledger/ledgerrpc"
	"xdao.co/stakeledger/snapshot"
)

func cmdServe(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(errOut)
	envFlags := registerEnvFlags(fs)
	var listen, stateArg, sealArg string
	fs.StringVar(&listen, "listen", "", "Listen address (overrides serve.listen)")
	fs.StringVar(&stateArg, "state", "", "State CID to serve")
	fs.StringVar(&sealArg, "seal", "", "Sealed state CID to serve")
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
	if listen == "" {
		listen = e.cfg.Serve.Listen
	}

	st, err := loadState(e, stateArg, sealArg, e.cfg.Seal.TrustedKey)
	if err != nil {
		fmt.Fprintf(errOut, "load state: %v\n", err)
		return 1
	}
	l, err := ledger.Restore(st, ledger.Options{Logger: e.log, BadgeName: e.cfg.Ledger.BadgeName})
	if err != nil {
		fmt.Fprintf(errOut, "restore: %v\n", err)
		return 1
	}

	lis, err := net.Listen("tcp", listen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	var opts []grpc.ServerOption
	if n := e.cfg.Serve.MaxMsgBytes; n > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(n), grpc.MaxSendMsgSize(n))
	}
	s := grpc.NewServer(opts...)
	ledgerrpc.RegisterLedgerQueryServer(s, &ledgerrpc.Server{Ledger: l, Log: e.log})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	e.log.Info("serving ledger", zap.String("addr", lis.Addr().String()), zap.String("registry", l.RegistryAddress().String()))
	fmt.Fprintf(errOut, "stakeledger listening on %s\n", lis.Addr().String())
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}

func cmdQuery(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var addr string
	var timeout time.Duration
	fs.StringVar(&addr, "addr", "127.0.0.1:7780", "Ledger query service address")
	fs.DurationVar(&timeout, "timeout", 5*time.Second, "Per-call timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: stakeledger query [--addr <addr>] balance|members|state|audit|staked <credential-id>")
		return 2
	}

	client, err := ledgerrpc.Dial(addr, ledgerrpc.DialOptions{Timeout: timeout})
	if err != nil {
		fmt.Fprintf(errOut, "dial: %v\n", err)
		return 1
	}
	defer client.Close()
	client.Timeout = timeout
	return query(context.Background(), client, fs.Args(), out, errOut)
}

func query(ctx context.Context, client *ledgerrpc.Client, args []string, out io.Writer, errOut io.Writer) int {
	switch args[0] {
	case "balance":
		bal, err := client.Balance(ctx)
		if err != nil {
			fmt.Fprintf(errOut, "balance: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, bal)
	case "staked":
		if len(args) != 2 {
			fmt.Fprintln(errOut, "usage: stakeledger query staked <credential-id>")
			return 2
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			fmt.Fprintf(errOut, "invalid credential id: %v\n", err)
			return 2
		}
		amt, err := client.AmountStaked(ctx, id)
		if err != nil {
			fmt.Fprintf(errOut, "staked: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, amt)
	case "members":
		ids, err := client.Members(ctx)
		if err != nil {
			fmt.Fprintf(errOut, "members: %v\n", err)
			return 1
		}
		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = id.String()
		}
		if len(strs) > 0 {
			fmt.Fprintln(out, strings.Join(strs, "\n"))
		}
	case "state":
		st, err := client.State(ctx)
		if err != nil {
			fmt.Fprintf(errOut, "state: %v\n", err)
			return 1
		}
		b, err := snapshot.Encode(st)
		if err != nil {
			fmt.Fprintf(errOut, "encode: %v\n", err)
			return 1
		}
		_, _ = out.Write(b)
	case "audit":
		if err := client.Audit(ctx); err != nil {
			fmt.Fprintf(errOut, "audit: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, "ok")
	default:
		fmt.Fprintf(errOut, "unknown query: %s\n", args[0])
		return 2
	}
	return 0
}
