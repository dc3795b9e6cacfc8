package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/udhar-khata/khata/internal/domain"
)

func init() {
	rootCmd.AddCommand(customerCmd)
	customerCmd.AddCommand(customerAddCmd)
	customerCmd.AddCommand(customerListCmd)
	customerCmd.AddCommand(customerShowCmd)
	customerCmd.AddCommand(customerRemoveCmd)

	customerAddCmd.Flags().StringP("phone", "p", "", "Phone number (used for reminders)")
	customerListCmd.Flags().StringP("search", "s", "", "Filter by name or phone")
}

var customerCmd = &cobra.Command{
	Use:     "customer",
	Aliases: []string{"c"},
	Short:   "Manage customers",
}

// ─── customer add ───────────────────────────────────────────────────────────

var customerAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a customer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomerAdd,
}

func runCustomerAdd(cmd *cobra.Command, args []string) error {
	phone, _ := cmd.Flags().GetString("phone")
	return withSession(cmd, func(s *session) error {
		c, err := s.ledger.AddCustomer(cmd.Context(), args[0], phone)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", c.Name, c.ID)
		return nil
	})
}

// ─── customer list ──────────────────────────────────────────────────────────

var customerListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List customers with their balances",
	RunE:    runCustomerList,
}

func runCustomerList(cmd *cobra.Command, args []string) error {
	term, _ := cmd.Flags().GetString("search")
	return withSession(cmd, func(s *session) error {
		customers := s.ledger.Search(term)
		out := cmd.OutOrStdout()
		if len(customers) == 0 {
			fmt.Fprintln(out, "No customers.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPHONE\tBALANCE\t\tADDED")
		for _, c := range customers {
			bal := c.Balance()
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				shortID(c.ID), c.Name, c.Phone,
				s.reminder.Format(bal.Abs()), domain.StandingOf(bal).Label(),
				humanize.Time(c.CreatedAt))
		}
		return tw.Flush()
	})
}

// ─── customer show ──────────────────────────────────────────────────────────

var customerShowCmd = &cobra.Command{
	Use:   "show CUSTOMER",
	Short: "Show a customer's history, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomerShow,
}

func runCustomerShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *session) error {
		c, err := resolveCustomer(s.ledger, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		bal := c.Balance()
		udhar, vasuli := domain.SumByType(c.Transactions)

		fmt.Fprintf(out, "%s  %s\n", c.Name, c.Phone)
		fmt.Fprintf(out, "ID:      %s\n", c.ID)
		fmt.Fprintf(out, "Balance: %s (%s)\n", s.reminder.Format(bal.Abs()), domain.StandingOf(bal).Label())
		fmt.Fprintf(out, "Given:   %s   Received: %s\n\n", s.reminder.Format(udhar), s.reminder.Format(vasuli))

		if len(c.Transactions) == 0 {
			fmt.Fprintln(out, "No transactions yet.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tWHEN\tTYPE\tAMOUNT\tDESCRIPTION")
		for _, tx := range c.History() {
			sign := "+"
			if tx.Type == domain.TxUdhar {
				sign = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s%s\t%s\n",
				shortID(tx.ID), humanize.Time(tx.Date), tx.Type.Label(),
				sign, s.reminder.Format(tx.Amount), tx.Description)
		}
		return tw.Flush()
	})
}

// ─── customer rm ────────────────────────────────────────────────────────────

var customerRemoveCmd = &cobra.Command{
	Use:     "rm CUSTOMER",
	Aliases: []string{"remove"},
	Short:   "Remove a customer and their whole history",
	Args:    cobra.ExactArgs(1),
	RunE:    runCustomerRemove,
}

func runCustomerRemove(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *session) error {
		c, err := resolveCustomer(s.ledger, args[0])
		if err != nil {
			return err
		}
		if err := s.ledger.DeleteCustomer(cmd.Context(), c.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s and %d transaction(s)\n", c.Name, len(c.Transactions))
		return nil
	})
}
