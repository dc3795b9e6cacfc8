// Package cli implements the khata command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/udhar-khata/khata/internal/app/ledger"
	"github.com/udhar-khata/khata/internal/app/remind"
	"github.com/udhar-khata/khata/internal/daemon"
	"github.com/udhar-khata/khata/internal/domain"
	"github.com/udhar-khata/khata/internal/infra/observability"
)

var (
	flagHome  string
	flagStore string
)

var rootCmd = &cobra.Command{
	Use:   "khata",
	Short: "Personal udhar/vasuli ledger",
	Long: `khata keeps a personal credit ledger: the people you lend to, what
you gave them (udhar) and what they paid back (vasuli). Balances are
recomputed from the full history every time they are shown.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHome, "home", "", "khata home directory (default $KHATA_HOME or ~/.khata)")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "store backend: sqlite, memory, redis or postgres")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ─── Session ────────────────────────────────────────────────────────────────

// session is everything a command needs: config, an open store and the
// ledger loaded from it.
type session struct {
	cfg      daemon.Config
	store    daemon.Store
	ledger   *ledger.Ledger
	reminder remind.Reminder
	registry *prometheus.Registry
}

func openSession(ctx context.Context) (*session, error) {
	if err := daemon.LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	cfg, err := daemon.Load(daemon.Home(flagHome))
	if err != nil {
		return nil, err
	}
	if flagStore != "" {
		cfg.Store.Backend = strings.ToLower(flagStore)
	}

	store, err := daemon.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	opts := []ledger.Option{ledger.WithKey(cfg.Store.Key)}
	if cfg.Metrics.Enabled {
		opts = append(opts, ledger.WithRecorder(observability.NewMetrics(reg)))
	}
	l, err := ledger.Open(ctx, store, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &session{
		cfg:      cfg,
		store:    store,
		ledger:   l,
		reminder: remind.New(cfg.Remind.CurrencySymbol),
		registry: reg,
	}, nil
}

func (s *session) Close() error { return s.store.Close() }

// withSession opens a session, runs fn and closes the store.
func withSession(cmd *cobra.Command, fn func(*session) error) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// ─── Lookup Helpers ─────────────────────────────────────────────────────────

var errAmbiguous = errors.New("ambiguous id prefix")

// resolveCustomer finds a customer by full id or by a unique id prefix.
func resolveCustomer(l *ledger.Ledger, ref string) (domain.Customer, error) {
	if c, err := l.Customer(ref); err == nil {
		return c, nil
	}
	var match []domain.Customer
	for _, c := range l.Customers() {
		if ref != "" && strings.HasPrefix(c.ID, ref) {
			match = append(match, c)
		}
	}
	switch len(match) {
	case 0:
		return domain.Customer{}, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, ref)
	case 1:
		return match[0], nil
	}
	return domain.Customer{}, fmt.Errorf("%w: %s matches %d customers", errAmbiguous, ref, len(match))
}

// resolveTransaction finds a transaction of c by full id or unique prefix.
func resolveTransaction(c domain.Customer, ref string) (domain.Transaction, error) {
	var match []domain.Transaction
	for _, tx := range c.Transactions {
		if tx.ID == ref {
			return tx, nil
		}
		if ref != "" && strings.HasPrefix(tx.ID, ref) {
			match = append(match, tx)
		}
	}
	switch len(match) {
	case 0:
		return domain.Transaction{}, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, ref)
	case 1:
		return match[0], nil
	}
	return domain.Transaction{}, fmt.Errorf("%w: %s matches %d transactions", errAmbiguous, ref, len(match))
}

// shortID trims a uuid to its first block for table output.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
