package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/stakeledger/asset"
	"xdao.co/stakeledger/ledger"
	"xdao.co/stakeledger/ledgerrpc"
	"xdao.co/stakeledger/model"
	"xdao.co/stakeledger/snapshot"
)

const demoScript = `
member alice
member bob
stake alice 100
stake bob 40.5
withdraw bob
stake alice 0
stake alice 2.25
expect-staked alice 102.25
expect-balance 102.25
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeConfig points storage at a localfs directory so state survives
// between invocations.
func writeConfig(t *testing.T, dir string, extra string) string {
	t.Helper()
	return writeFile(t, dir, "stakeledger.yaml", `
log: {level: error}
ledger: {symbol: XRD, badge_name: Club Badge}
storage:
  backends:
    - {name: disk, kind: localfs, dir: `+filepath.Join(dir, "cas")+`}
`+extra)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func field(t *testing.T, out, name string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, name+": "); ok {
			return v
		}
	}
	t.Fatalf("no %q line in output:\n%s", name, out)
	return ""
}

func TestRunThenInspect(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "")
	scriptPath := writeFile(t, dir, "demo.script", demoScript)

	code, out, errOut := runCLI(t, "run", "--config", cfg, scriptPath)
	if code != 0 {
		t.Fatalf("run exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "withdraw bob(") || !strings.Contains(out, "-> 40.5") {
		t.Fatalf("withdraw receipt missing:\n%s", out)
	}
	if !strings.Contains(out, "line 7: stake alice(") || !strings.Contains(out, "rejected") {
		t.Fatalf("zero stake not reported as rejected:\n%s", out)
	}
	stateCID := field(t, out, "state")

	code, out, errOut = runCLI(t, "inspect", "--config", cfg, "--state", stateCID)
	if code != 0 {
		t.Fatalf("inspect exit %d: %s", code, errOut)
	}
	st, err := snapshot.Decode([]byte(out))
	if err != nil {
		t.Fatalf("inspect output is not canonical state: %v", err)
	}
	if st.PoolBalance != "102.25" || len(st.Credentials) != 2 || st.Metadata["name"] != "Club Badge" {
		t.Fatalf("unexpected state: %+v", st)
	}

	var alice string
	for _, c := range st.Credentials {
		if c.AmountStaked == "102.25" {
			alice = c.ID
		}
	}
	resumed := writeFile(t, dir, "more.script",
		"member carol\nstake carol 1\nexpect-balance 103.25\nwithdraw "+alice+"\nexpect-balance 1\n")
	code, out, errOut = runCLI(t, "run", "--config", cfg, "--from-state", stateCID, resumed)
	if code != 0 {
		t.Fatalf("resumed run exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "withdraw "+alice+"("+alice+") -> 102.25") {
		t.Fatalf("restored member could not withdraw:\n%s", out)
	}
	if field(t, out, "state") == stateCID {
		t.Fatalf("resumed run did not produce a new state")
	}
}

func TestRun_BackendFlagPicksWriteTarget(t *testing.T) {
	dir := t.TempDir()
	backends := func(names ...string) string {
		var b strings.Builder
		b.WriteString("log: {level: error}\nstorage:\n  backends:\n")
		for _, n := range names {
			b.WriteString("    - {name: " + n + ", kind: localfs, dir: " + filepath.Join(dir, n) + "}\n")
		}
		return b.String()
	}
	both := writeFile(t, dir, "both.yaml", backends("hot", "cold"))
	coldOnly := writeFile(t, dir, "cold.yaml", backends("cold"))
	hotOnly := writeFile(t, dir, "hot.yaml", backends("hot"))
	scriptPath := writeFile(t, dir, "demo.script", demoScript)

	code, out, errOut := runCLI(t, "run", "--config", both, "--backend", "cold", scriptPath)
	if code != 0 {
		t.Fatalf("run exit %d: %s", code, errOut)
	}
	stateCID := field(t, out, "state")
	if code, _, errOut = runCLI(t, "inspect", "--config", coldOnly, "--state", stateCID); code != 0 {
		t.Fatalf("state missing from the chosen backend: %s", errOut)
	}
	if code, _, _ = runCLI(t, "inspect", "--config", hotOnly, "--state", stateCID); code != 1 {
		t.Fatalf("state written to the non-preferred backend, exit %d", code)
	}
	if code, _, _ = runCLI(t, "run", "--config", both, "--backend", "warm", scriptPath); code != 1 {
		t.Fatalf("unknown --backend accepted, exit %d", code)
	}
}

func TestRun_FailedExpectation(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "")
	scriptPath := writeFile(t, dir, "bad.script", "member alice\nstake alice 5\nexpect-balance 6\n")

	code, _, errOut := runCLI(t, "run", "--config", cfg, scriptPath)
	if code != 1 || !strings.Contains(errOut, "line 3") {
		t.Fatalf("expected failure at line 3, got %d: %s", code, errOut)
	}
}

func TestRun_JSONReport(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "")
	scriptPath := writeFile(t, dir, "demo.script", demoScript)

	code, out, errOut := runCLI(t, "run", "--json", "--config", cfg, scriptPath)
	if code != 0 {
		t.Fatalf("run exit %d: %s", code, errOut)
	}
	var report model.RunReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out)
	}
	if report.StateCID == "" || report.Error != nil || len(report.Receipts) != 9 {
		t.Fatalf("unexpected report: %+v", report)
	}
	zero := report.Receipts[5]
	if zero.Error == nil || zero.Error.Code != model.ErrInvalidAmount || zero.Error.RuleID != "STAKE-LEDGER-002" {
		t.Fatalf("zero stake receipt: %+v", zero)
	}
	if w := report.Receipts[4]; w.Op != "withdraw" || w.Amount != "40.5" || w.CredentialID == "" {
		t.Fatalf("withdraw receipt: %+v", w)
	}

	bad := writeFile(t, dir, "bad.script", "member alice\nexpect-balance 1\n")
	code, out, _ = runCLI(t, "run", "--json", "--config", cfg, bad)
	if code != 1 {
		t.Fatalf("failed expectation exit %d", code)
	}
	report = model.RunReport{}
	if err := json.Unmarshal([]byte(out), &report); err != nil || report.Error == nil || report.StateCID != "" {
		t.Fatalf("failed run report: %+v (%v)", report, err)
	}
}

func TestSealedRunExportImport(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "operator.seed")

	code, out, errOut := runCLI(t, "key", "init", "--out", seedPath, "--alg", "dilithium3",
		"--seed-hex", strings.Repeat("ab", 32))
	if code != 0 {
		t.Fatalf("key init exit %d: %s", code, errOut)
	}
	issuer := field(t, out, "Issuer key")

	code, out, _ = runCLI(t, "key", "show", "--key-file", seedPath, "--alg", "dilithium3")
	if code != 0 || strings.TrimSpace(out) != issuer {
		t.Fatalf("key show disagrees with key init: %q vs %q", out, issuer)
	}

	cfg := writeConfig(t, dir, "seal: {key_file: "+seedPath+", algorithm: dilithium3, hash: sha3-256}\n")
	scriptPath := writeFile(t, dir, "demo.script", demoScript)
	code, out, errOut = runCLI(t, "run", "--config", cfg, scriptPath)
	if code != 0 {
		t.Fatalf("run exit %d: %s", code, errOut)
	}
	sealCID := field(t, out, "seal")
	stateCID := field(t, out, "state")

	if code, _, errOut = runCLI(t, "inspect", "--config", cfg, "--seal", sealCID, "--trusted-key", issuer); code != 0 {
		t.Fatalf("inspect sealed exit %d: %s", code, errOut)
	}
	if code, _, _ = runCLI(t, "inspect", "--config", cfg, "--seal", sealCID, "--trusted-key", "ed25519:AAAA"); code != 1 {
		t.Fatalf("untrusted seal accepted, exit %d", code)
	}

	archive := filepath.Join(dir, "out", "ledger.tar")
	if code, _, errOut = runCLI(t, "export", "--config", cfg, "--seal", sealCID, "--out", archive); code != 0 {
		t.Fatalf("export exit %d: %s", code, errOut)
	}

	other := t.TempDir()
	otherCfg := writeConfig(t, other, "")
	code, out, errOut = runCLI(t, "import", "--config", otherCfg, archive)
	if code != 0 {
		t.Fatalf("import exit %d: %s", code, errOut)
	}
	if field(t, out, "seal") != sealCID || field(t, out, "state") != stateCID {
		t.Fatalf("import labels mismatch:\n%s", out)
	}
	if code, _, errOut = runCLI(t, "inspect", "--config", otherCfg, "--seal", sealCID, "--trusted-key", issuer); code != 0 {
		t.Fatalf("inspect after import exit %d: %s", code, errOut)
	}
}

func TestKeyDerive(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root.seed")
	if code, _, errOut := runCLI(t, "key", "init", "--out", root); code != 0 {
		t.Fatalf("key init exit %d: %s", code, errOut)
	}
	if code, _, _ := runCLI(t, "key", "init", "--out", root); code != 1 {
		t.Fatalf("key init overwrote an existing seed without --force")
	}

	derived := filepath.Join(dir, "club.seed")
	code, out, errOut := runCLI(t, "key", "derive", "--from", root, "--role", "club", "--out", derived)
	if code != 0 {
		t.Fatalf("key derive exit %d: %s", code, errOut)
	}
	_, again, _ := runCLI(t, "key", "show", "--key-file", derived)
	if strings.TrimSpace(again) != field(t, out, "Issuer key") {
		t.Fatalf("derived key mismatch")
	}
	if code, _, _ := runCLI(t, "key", "derive", "--from", root, "--role", "bad role", "--out", derived); code != 2 {
		t.Fatalf("invalid role accepted")
	}
}

func TestQuery(t *testing.T) {
	xrd := asset.NewResource("XRD")
	l := ledger.Instantiate(xrd, ledger.Options{})
	c, err := l.BecomeMember()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := xrd.Mint(decimal.NewFromInt(7))
	if err := l.Stake(b, c.CreateProof()); err != nil {
		t.Fatal(err)
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	ledgerrpc.RegisterLedgerQueryServer(srv, &ledgerrpc.Server{Ledger: l})
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	client := ledgerrpc.NewClient(cc)
	defer client.Close()

	cases := []struct {
		args []string
		code int
		want string
	}{
		{[]string{"balance"}, 0, "7\n"},
		{[]string{"staked", c.ID().String()}, 0, "7\n"},
		{[]string{"members"}, 0, c.ID().String() + "\n"},
		{[]string{"audit"}, 0, "ok\n"},
		{[]string{"staked", "not-a-uuid"}, 2, ""},
		{[]string{"teleport"}, 2, ""},
	}
	for _, tc := range cases {
		var out, errOut bytes.Buffer
		code := query(context.Background(), client, tc.args, &out, &errOut)
		if code != tc.code || out.String() != tc.want {
			t.Fatalf("query %v: exit %d out %q (stderr %q)", tc.args, code, out.String(), errOut.String())
		}
	}

	var out bytes.Buffer
	if code := query(context.Background(), client, []string{"state"}, &out, &bytes.Buffer{}); code != 0 {
		t.Fatalf("query state exit %d", code)
	}
	if _, err := snapshot.Decode(out.Bytes()); err != nil {
		t.Fatalf("query state output: %v", err)
	}
}

func TestUsage(t *testing.T) {
	cases := [][]string{
		nil,
		{"frobnicate"},
		{"run"},
		{"inspect"},
		{"inspect", "--state", "a", "--seal", "b"},
		{"serve"},
		{"export", "--state", "x"},
		{"key"},
		{"key", "init"},
	}
	for _, args := range cases {
		if code, _, _ := runCLI(t, args...); code != 2 {
			t.Fatalf("%v: exit %d, want 2", args, code)
		}
	}
	if code, out, _ := runCLI(t, "help"); code != 0 || !strings.Contains(out, "stakeledger run") {
		t.Fatalf("help: exit %d", code)
	}
}
