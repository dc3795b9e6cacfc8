package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/udhar-khata/khata/internal/app/ledger"
	"github.com/udhar-khata/khata/internal/daemon"
	"github.com/udhar-khata/khata/internal/domain"
	"github.com/udhar-khata/khata/internal/infra/memory"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

// resetFlags restores every flag in the tree to its default so package-level
// commands can be executed repeatedly.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, home string, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("KHATA_STORE", "")
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--home", home}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, home string, args ...string) string {
	t.Helper()
	out, err := run(t, home, "", args...)
	if err != nil {
		t.Fatalf("khata %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

var addedID = regexp.MustCompile(`Added .+ \(([0-9a-f-]+)\)`)

func addCustomer(t *testing.T, home, name, phone string) string {
	t.Helper()
	out := mustRun(t, home, "customer", "add", name, "--phone", phone)
	m := addedID.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no id in %q", out)
	}
	return m[1]
}

// ─── Command Tests ──────────────────────────────────────────────────────────

func TestCLI_Scenario(t *testing.T) {
	home := t.TempDir()
	id := addCustomer(t, home, "Asha", "9000000001")

	out := mustRun(t, home, "tx", "add", id, "udhar", "500", "-d", "lunch")
	if !strings.Contains(out, "Balance: ₹500.00 (you will pay)") {
		t.Errorf("tx add output = %q", out)
	}

	out = mustRun(t, home, "tx", "add", id[:8], "payment", "200")
	if !strings.Contains(out, "Balance: ₹300.00 (you will pay)") {
		t.Errorf("tx add by prefix output = %q", out)
	}

	out = mustRun(t, home, "customer", "show", id)
	for _, want := range []string{"Asha", "lunch", "-₹500.00", "+₹200.00", "Given:   ₹500.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "payment") > strings.Index(out, "lunch") {
		t.Errorf("history not newest first:\n%s", out)
	}

	out = mustRun(t, home, "totals")
	if !strings.Contains(out, "Net:            ₹300.00 (you will pay)") {
		t.Errorf("totals output = %q", out)
	}
	if !strings.Contains(out, "Last saved:     ") {
		t.Errorf("totals on sqlite has no last-saved line: %q", out)
	}

	out = mustRun(t, home, "remind", id)
	if !strings.HasPrefix(out, "https://wa.me/9000000001?text=") {
		t.Errorf("remind output = %q", out)
	}

	out = mustRun(t, home, "customer", "list")
	if !strings.Contains(out, "Asha") || !strings.Contains(out, "₹300.00") {
		t.Errorf("list output = %q", out)
	}

	out = mustRun(t, home, "customer", "rm", id)
	if !strings.Contains(out, "Removed Asha and 2 transaction(s)") {
		t.Errorf("rm output = %q", out)
	}
	if out := mustRun(t, home, "customer", "list"); !strings.Contains(out, "No customers.") {
		t.Errorf("list after rm = %q", out)
	}
}

func TestCLI_TxEditAndRemove(t *testing.T) {
	home := t.TempDir()
	id := addCustomer(t, home, "Ravi", "")
	mustRun(t, home, "tx", "add", id, "given", "100", "-d", "rice")

	l := openLedger(t, home)
	c, _ := l.Customer(id)
	txID := c.Transactions[0].ID

	if _, err := run(t, home, "", "tx", "edit", id, txID); err == nil {
		t.Error("tx edit without flags returned nil error")
	}

	mustRun(t, home, "tx", "edit", id, txID[:8], "--amount", "150")
	c, _ = openLedger(t, home).Customer(id)
	if got := c.Transactions[0]; !got.Amount.Equal(mustAmount(t, "150")) || got.Description != "rice" {
		t.Errorf("after edit = %+v", got)
	}

	mustRun(t, home, "tx", "rm", id, txID)
	c, _ = openLedger(t, home).Customer(id)
	if len(c.Transactions) != 0 {
		t.Errorf("transactions after rm = %d", len(c.Transactions))
	}
}

func TestCLI_Errors(t *testing.T) {
	home := t.TempDir()
	id := addCustomer(t, home, "Asha", "1")

	if _, err := run(t, home, "", "tx", "add", id, "udhar", "abc"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("bad amount error = %v", err)
	}
	if _, err := run(t, home, "", "tx", "add", id, "gift", "5"); !errors.Is(err, domain.ErrInvalidType) {
		t.Errorf("bad type error = %v", err)
	}
	if _, err := run(t, home, "", "customer", "show", "zzz"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Errorf("unknown customer error = %v", err)
	}
	if _, err := run(t, home, "", "--store", "etcd", "totals"); !errors.Is(err, domain.ErrUnknownBackend) {
		t.Errorf("unknown backend error = %v", err)
	}
}

func TestCLI_ExportImport(t *testing.T) {
	src := t.TempDir()
	id := addCustomer(t, src, "Asha", "1")
	mustRun(t, src, "tx", "add", id, "udhar", "42.5")

	file := filepath.Join(t.TempDir(), "backup.json")
	mustRun(t, src, "export", "-o", file)
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("export file: %v", err)
	}

	dst := t.TempDir()
	out := mustRun(t, dst, "import", file)
	if !strings.Contains(out, "Imported 1 customer(s)") {
		t.Errorf("import output = %q", out)
	}
	if got, want := openLedger(t, dst).Customers(), openLedger(t, src).Customers(); len(got) != 1 || got[0].ID != want[0].ID {
		t.Errorf("imported = %+v", got)
	}

	stdout := mustRun(t, src, "export")
	other := t.TempDir()
	if _, err := run(t, other, stdout, "import", "-"); err != nil {
		t.Fatalf("import from stdin: %v", err)
	}

	if _, err := run(t, other, "{}", "import", "-"); !errors.Is(err, domain.ErrInvalidImport) {
		t.Errorf("invalid import error = %v", err)
	}
}

func TestCLI_MemoryStore(t *testing.T) {
	home := t.TempDir()
	mustRun(t, home, "--store", "memory", "customer", "add", "Ephemeral")
	out := mustRun(t, home, "--store", "memory", "customer", "list")
	if !strings.Contains(out, "No customers.") {
		t.Errorf("memory store persisted across runs: %q", out)
	}
	if out := mustRun(t, home, "--store", "memory", "totals"); strings.Contains(out, "Last saved") {
		t.Errorf("memory store reported a save time: %q", out)
	}
}

func TestCLI_Init(t *testing.T) {
	home := filepath.Join(t.TempDir(), "khata")

	out := mustRun(t, home, "--store", "memory", "init")
	if !strings.Contains(out, "store: memory") {
		t.Errorf("init output = %q", out)
	}
	cfg, err := daemon.Load(home)
	if err != nil {
		t.Fatalf("Load() after init: %v", err)
	}
	if cfg.Store.Backend != daemon.BackendMemory || cfg.Store.Key != ledger.StorageKey {
		t.Errorf("config after init = %+v", cfg.Store)
	}

	if _, err := run(t, home, "", "init"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("second init error = %v, want already exists", err)
	}
	if cfg, _ := daemon.Load(home); cfg.Store.Backend != daemon.BackendMemory {
		t.Errorf("refused init still changed the backend to %q", cfg.Store.Backend)
	}

	mustRun(t, home, "init", "--force")
	cfg, err = daemon.Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Backend != daemon.BackendSQLite {
		t.Errorf("backend after --force = %q, want sqlite", cfg.Store.Backend)
	}
}

// ─── Resolver Tests ─────────────────────────────────────────────────────────

func TestResolveCustomer(t *testing.T) {
	ctx := context.Background()
	ids := []string{"abc-1", "abd-2", "xyz-3"}
	i := 0
	l, err := ledger.Open(ctx, memory.NewStore(), ledger.WithIDs(func() string { i++; return ids[i-1] }))
	if err != nil {
		t.Fatal(err)
	}
	for range ids {
		l.AddCustomer(ctx, "c", "")
	}

	tests := []struct {
		ref     string
		want    string
		wantErr error
	}{
		{"abc-1", "abc-1", nil},
		{"abc", "abc-1", nil},
		{"x", "xyz-3", nil},
		{"ab", "", errAmbiguous},
		{"q", "", domain.ErrCustomerNotFound},
		{"", "", domain.ErrCustomerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			c, err := resolveCustomer(l, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || c.ID != tt.want {
				t.Errorf("resolveCustomer(%q) = %q, %v", tt.ref, c.ID, err)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("1b4e28ba-2fa1-11d2-883f-0016d3cca427"); got != "1b4e28ba" {
		t.Errorf("shortID(uuid) = %q", got)
	}
	if got := shortID("plain"); got != "plain" {
		t.Errorf("shortID(plain) = %q", got)
	}
}

// ─── Fixtures ───────────────────────────────────────────────────────────────

func openLedger(t *testing.T, home string) *ledger.Ledger {
	t.Helper()
	resetFlags(rootCmd)
	flagHome = home
	s, err := openSession(context.Background())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.ledger
}

func mustAmount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := domain.ParseAmount(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
