package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/udhar-khata/khata/internal/domain"
)

func init() {
	rootCmd.AddCommand(totalsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(remindCmd)

	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
}

// ─── totals ─────────────────────────────────────────────────────────────────

// savedAtStore is implemented by backends that record when a key was last
// written (sqlite).
type savedAtStore interface {
	UpdatedAt(ctx context.Context, key string) (time.Time, bool, error)
}

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Show totals across all customers",
	Args:  cobra.NoArgs,
	RunE:  runTotals,
}

func runTotals(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *session) error {
		t := s.ledger.Totals()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Customers:      %d\n", len(s.ledger.Customers()))
		fmt.Fprintf(out, "Total given:    %s\n", s.reminder.Format(t.TotalDebt))
		fmt.Fprintf(out, "Total received: %s\n", s.reminder.Format(t.TotalPayment))
		fmt.Fprintf(out, "Net:            %s (%s)\n", s.reminder.Format(t.NetBalance.Abs()), domain.StandingOf(t.NetBalance).Label())

		if st, ok := s.store.(savedAtStore); ok {
			at, saved, err := st.UpdatedAt(cmd.Context(), s.cfg.Store.Key)
			if err != nil {
				return err
			}
			if saved {
				fmt.Fprintf(out, "Last saved:     %s\n", humanize.Time(at))
			}
		}
		return nil
	})
}

// ─── export / import ────────────────────────────────────────────────────────

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the whole khata as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("output")
	return withSession(cmd, func(s *session) error {
		if path == "" {
			return s.ledger.Export(cmd.OutOrStdout())
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create export: %w", err)
		}
		if err := s.ledger.Export(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close export: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d customer(s) to %s\n", len(s.ledger.Customers()), path)
		return nil
	})
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the whole khata with an exported file (- for stdin)",
	Long: `Replace every stored customer and transaction with the contents of an
export file. The file is validated first; an invalid file changes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import: %w", err)
		}
		defer f.Close()
		r = f
	}
	return withSession(cmd, func(s *session) error {
		n, err := s.ledger.Import(cmd.Context(), r)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d customer(s)\n", n)
		return nil
	})
}

// ─── remind ─────────────────────────────────────────────────────────────────

var remindCmd = &cobra.Command{
	Use:   "remind CUSTOMER",
	Short: "Print a WhatsApp reminder link for a customer",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemind,
}

func runRemind(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *session) error {
		c, err := resolveCustomer(s.ledger, args[0])
		if err != nil {
			return err
		}
		if c.Phone == "" {
			return fmt.Errorf("%s has no phone number", c.Name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.reminder.Link(c.Phone, c.Name, c.Balance()))
		return nil
	})
}
