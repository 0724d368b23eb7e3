package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/vault/internal/store"
	"github.com/roach88/vault/internal/vaulterr"
)

// FinanceAddOptions holds flags for the finance add command.
type FinanceAddOptions struct {
	*RootOptions
	Amount      float64
	Kind        string
	Category    string
	Merchant    string
	Description string
	Account     string
	Date        string
	Tags        []string
}

// FinanceListOptions holds flags for the finance list command.
type FinanceListOptions struct {
	*RootOptions
	Start    string
	End      string
	Category string
	Limit    int
}

// NewFinanceCommand creates the finance command group.
func NewFinanceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Record transactions and track budgets",
	}
	cmd.AddCommand(newFinanceAddCommand(rootOpts))
	cmd.AddCommand(newFinanceListCommand(rootOpts))
	cmd.AddCommand(newFinanceSpendingCommand(rootOpts))
	cmd.AddCommand(newBudgetCommand(rootOpts))
	return cmd
}

func newFinanceAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FinanceAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		Long: `Add a transaction. Merchant, description and account number are
encrypted; amount, type and category stay queryable.

Unknown categories are stored as "Other".

Examples:
  vault finance add --amount 12.50 --category "Food & Dining" --merchant "Corner Cafe"
  vault finance add --amount 2500 --type credit --category Income --date 2025-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFinanceAdd(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Amount, "amount", 0, "transaction amount (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&opts.Kind, "type", string(store.KindDebit), "transaction type (debit|credit)")
	cmd.Flags().StringVar(&opts.Category, "category", store.CategoryOther, "category")
	cmd.Flags().StringVar(&opts.Merchant, "merchant", "", "merchant name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "free-text description")
	cmd.Flags().StringVar(&opts.Account, "account", "", "account number")
	cmd.Flags().StringVar(&opts.Date, "date", "", "transaction date (YYYY-MM-DD, default now)")
	cmd.Flags().StringSliceVar(&opts.Tags, "tags", nil, "comma-separated tags")

	return cmd
}

// optionalFlag returns a pointer to value only when the flag was set, so an
// omitted flag is stored as absent rather than as an empty string.
func optionalFlag(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func runFinanceAdd(opts *FinanceAddOptions, cmd *cobra.Command) error {
	when, err := parseDate("date", opts.Date)
	if err != nil {
		return err
	}

	v, err := opts.openVault(cmd)
	if err != nil {
		return err
	}
	defer v.Close()

	id, err := v.store.AddTransaction(context.Background(), store.NewTransaction{
		Timestamp:     when,
		Amount:        opts.Amount,
		Kind:          store.Kind(opts.Kind),
		Category:      opts.Category,
		Merchant:      optionalFlag(cmd, "merchant", opts.Merchant),
		Description:   optionalFlag(cmd, "description", opts.Description),
		AccountNumber: optionalFlag(cmd, "account", opts.Account),
		Tags:          opts.Tags,
	})
	if err != nil {
		return wrapVaultError("failed to add transaction", err)
	}

	return opts.formatter(cmd).Render(map[string]int64{"id": id}, func(w io.Writer) {
		fmt.Fprintf(w, "Added transaction %d\n", id)
	})
}

func newFinanceListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FinanceListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFinanceList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.End, "end", "", "latest date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Category, "category", "", "only this category")
	cmd.Flags().IntVar(&opts.Limit, "limit", store.DefaultLimit, "maximum transactions")

	return cmd
}

func runFinanceList(opts *FinanceListOptions, cmd *cobra.Command) error {
	start, end, err := parseRange(opts.Start, opts.End)
	if err != nil {
		return err
	}

	v, err := opts.openVault(cmd)
	if err != nil {
		return err
	}
	defer v.Close()

	txns, err := v.store.GetTransactions(context.Background(), store.TransactionQuery{
		Start:    start,
		End:      end,
		Category: opts.Category,
		Limit:    opts.Limit,
	})
	if err != nil {
		return wrapVaultError("failed to read transactions", err)
	}

	return opts.formatter(cmd).Render(txns, func(w io.Writer) {
		outputTransactionsText(w, txns)
	})
}

func outputTransactionsText(w io.Writer, txns []store.Transaction) {
	if len(txns) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	for _, t := range txns {
		fmt.Fprintf(w, "[%d] %s  %-6s %10.2f  %-18s %s\n",
			t.ID, formatTime(t.Timestamp), t.Kind, t.Amount, t.Category, deref(t.Merchant))
	}
}

func newFinanceSpendingCommand(rootOpts *RootOptions) *cobra.Command {
	var startFlag, endFlag string

	cmd := &cobra.Command{
		Use:   "spending",
		Short: "Show debit totals by category",
		Long: `Show debit totals by category for a date range.
Without --start the range begins on the first day of the current month;
without --end it runs until now.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseRange(startFlag, endFlag)
			if err != nil {
				return err
			}
			now := rootOpts.clock()().UTC()
			if start.IsZero() {
				start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			}
			if end.IsZero() {
				end = now
			}

			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			spend, err := v.store.GetSpendingByCategory(context.Background(), start, end)
			if err != nil {
				return wrapVaultError("failed to read spending", err)
			}

			return rootOpts.formatter(cmd).Render(spend, func(w io.Writer) {
				fmt.Fprintf(w, "Spending %s to %s\n", start.Format(dateLayout), end.Format(dateLayout))
				if len(spend) == 0 {
					fmt.Fprintln(w, "  (no debits)")
					return
				}
				var total float64
				for _, s := range spend {
					fmt.Fprintf(w, "  %-18s %10.2f  (%d)\n", s.Category, s.Total, s.Count)
					total += s.Total
				}
				fmt.Fprintf(w, "  %-18s %10.2f\n", "Total", total)
			})
		},
	}

	cmd.Flags().StringVar(&startFlag, "start", "", "earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endFlag, "end", "", "latest date, inclusive (YYYY-MM-DD)")
	return cmd
}

func newBudgetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly category budgets",
	}
	cmd.AddCommand(newBudgetSetCommand(rootOpts))
	cmd.AddCommand(newBudgetListCommand(rootOpts))
	cmd.AddCommand(newBudgetStatusCommand(rootOpts))
	return cmd
}

func newBudgetSetCommand(rootOpts *RootOptions) *cobra.Command {
	var limit, threshold float64

	cmd := &cobra.Command{
		Use:   "set <category>",
		Short: "Set the monthly limit for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			if err := v.store.SetBudget(context.Background(), args[0], limit, threshold); err != nil {
				return wrapVaultError("failed to set budget", err)
			}
			budget, _, err := v.store.GetBudget(context.Background(), args[0])
			if err != nil {
				return wrapVaultError("failed to read budget", err)
			}

			return rootOpts.formatter(cmd).Render(budget, func(w io.Writer) {
				fmt.Fprintf(w, "Budget for %s: %.2f per month, alert at %.0f%%\n",
					budget.Category, budget.MonthlyLimit, budget.AlertThreshold*100)
			})
		},
	}

	cmd.Flags().Float64Var(&limit, "limit", 0, "monthly limit (required)")
	_ = cmd.MarkFlagRequired("limit")
	cmd.Flags().Float64Var(&threshold, "threshold", store.DefaultAlertThreshold, "alert threshold as a fraction of the limit")
	return cmd
}

func newBudgetListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			budgets, err := v.store.ListBudgets(context.Background())
			if err != nil {
				return wrapVaultError("failed to list budgets", err)
			}

			return rootOpts.formatter(cmd).Render(budgets, func(w io.Writer) {
				if len(budgets) == 0 {
					fmt.Fprintln(w, "No budgets.")
					return
				}
				for _, b := range budgets {
					fmt.Fprintf(w, "%-18s %10.2f  alert at %.0f%%\n", b.Category, b.MonthlyLimit, b.AlertThreshold*100)
				}
			})
		},
	}
}

func newBudgetStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "status <category>",
		Short: "Compare a month's spending with its budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at := rootOpts.clock()().UTC()
			if month != "" {
				parsed, err := time.ParseInLocation("2006-01", month, time.UTC)
				if err != nil {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid --month %q: want YYYY-MM", month))
				}
				at = parsed
			}

			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			status, found, err := v.store.GetBudgetStatus(context.Background(), args[0], at)
			if err != nil {
				return wrapVaultError("failed to read budget status", err)
			}
			if !found {
				return wrapVaultError("failed to read budget status", vaulterr.NotFound("budget status", "no budget set for %s", args[0]))
			}

			return rootOpts.formatter(cmd).Render(status, func(w io.Writer) {
				outputBudgetStatusText(w, status)
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month (YYYY-MM, default current)")
	return cmd
}

func outputBudgetStatusText(w io.Writer, s store.BudgetStatus) {
	fmt.Fprintf(w, "%s budget for %s\n", s.Budget.Category, s.Month.Format("January 2006"))
	fmt.Fprintf(w, "  Limit:     %10.2f\n", s.Budget.MonthlyLimit)
	fmt.Fprintf(w, "  Spent:     %10.2f  (%.2f%%)\n", s.Spent, s.Percent)
	fmt.Fprintf(w, "  Remaining: %10.2f\n", s.Remaining)
	switch {
	case s.Exceeded:
		fmt.Fprintln(w, "  Status:    EXCEEDED")
	case s.Alert:
		fmt.Fprintln(w, "  Status:    ALERT")
	default:
		fmt.Fprintln(w, "  Status:    OK")
	}
}
