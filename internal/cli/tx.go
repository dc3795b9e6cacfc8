package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/udhar-khata/khata/internal/app/ledger"
	"github.com/udhar-khata/khata/internal/domain"
)

func init() {
	rootCmd.AddCommand(txCmd)
	txCmd.AddCommand(txAddCmd)
	txCmd.AddCommand(txEditCmd)
	txCmd.AddCommand(txRemoveCmd)

	txAddCmd.Flags().StringP("description", "d", "", "What the entry was for")
	txEditCmd.Flags().String("amount", "", "New amount")
	txEditCmd.Flags().StringP("description", "d", "", "New description")
}

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Record, edit or remove transactions",
}

// ─── tx add ─────────────────────────────────────────────────────────────────

var txAddCmd = &cobra.Command{
	Use:   "add CUSTOMER TYPE AMOUNT",
	Short: "Record udhar (given) or vasuli (received)",
	Long: `Record a transaction. TYPE is udhar (aliases: debt, given) for money
you gave, or vasuli (aliases: payment, received) for money you got back.`,
	Args: cobra.ExactArgs(3),
	RunE: runTxAdd,
}

func runTxAdd(cmd *cobra.Command, args []string) error {
	typ, err := domain.ParseTransactionType(args[1])
	if err != nil {
		return err
	}
	description, _ := cmd.Flags().GetString("description")

	return withSession(cmd, func(s *session) error {
		c, err := resolveCustomer(s.ledger, args[0])
		if err != nil {
			return err
		}
		tx, ok, err := s.ledger.AddTransaction(cmd.Context(), c.ID, typ, args[2], description)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, c.ID)
		}
		bal, _ := s.ledger.Balance(c.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s of %s for %s (%s). Balance: %s (%s)\n",
			tx.Type.Label(), s.reminder.Format(tx.Amount), c.Name, shortID(tx.ID),
			s.reminder.Format(bal.Abs()), domain.StandingOf(bal).Label())
		return nil
	})
}

// ─── tx edit ────────────────────────────────────────────────────────────────

var txEditCmd = &cobra.Command{
	Use:   "edit CUSTOMER TRANSACTION",
	Short: "Change a transaction's amount or description",
	Args:  cobra.ExactArgs(2),
	RunE:  runTxEdit,
}

func runTxEdit(cmd *cobra.Command, args []string) error {
	var edit ledger.TransactionEdit
	if cmd.Flags().Changed("amount") {
		v, _ := cmd.Flags().GetString("amount")
		edit.Amount = &v
	}
	if cmd.Flags().Changed("description") {
		v, _ := cmd.Flags().GetString("description")
		edit.Description = &v
	}
	if edit.Amount == nil && edit.Description == nil {
		return fmt.Errorf("nothing to change: pass --amount and/or --description")
	}

	return withSession(cmd, func(s *session) error {
		c, err := resolveCustomer(s.ledger, args[0])
		if err != nil {
			return err
		}
		tx, err := resolveTransaction(c, args[1])
		if err != nil {
			return err
		}
		if err := s.ledger.EditTransaction(cmd.Context(), c.ID, tx.ID, edit); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", shortID(tx.ID))
		return nil
	})
}

// ─── tx rm ──────────────────────────────────────────────────────────────────

var txRemoveCmd = &cobra.Command{
	Use:     "rm CUSTOMER TRANSACTION",
	Aliases: []string{"remove"},
	Short:   "Remove a transaction",
	Args:    cobra.ExactArgs(2),
	RunE:    runTxRemove,
}

func runTxRemove(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *session) error {
		c, err := resolveCustomer(s.ledger, args[0])
		if err != nil {
			return err
		}
		tx, err := resolveTransaction(c, args[1])
		if err != nil {
			return err
		}
		if err := s.ledger.DeleteTransaction(cmd.Context(), c.ID, tx.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s of %s\n", tx.Type.Label(), s.reminder.Format(tx.Amount))
		return nil
	})
}
