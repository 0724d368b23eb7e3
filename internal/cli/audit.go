package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/vault/internal/store"
)

// NewAuditCommand creates the audit command group.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the access log",
		Long: `Inspect the encrypted access log. Every read and write of journal,
finance and document data is recorded with non-sensitive details.`,
	}
	cmd.AddCommand(newAuditLogCommand(rootOpts))
	cmd.AddCommand(newAuditReportCommand(rootOpts))
	return cmd
}

func newAuditLogCommand(rootOpts *RootOptions) *cobra.Command {
	var module string
	var days int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List recent audit events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			events, err := v.store.QueryAudit(context.Background(), module, days)
			if err != nil {
				return wrapVaultError("failed to read audit log", err)
			}

			out := rootOpts.formatter(cmd)
			return out.Render(events, func(w io.Writer) {
				if len(events) == 0 {
					fmt.Fprintln(w, "No audit events.")
					return
				}
				for _, ev := range events {
					fmt.Fprintf(w, "[%d] %s  %-9s %s\n", ev.ID, formatTime(ev.Timestamp), ev.Module, ev.ActionType)
					if out.Verbose {
						writeDetails(w, ev.Details)
					}
				}
			})
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "only this module (journal|finance|documents)")
	cmd.Flags().IntVar(&days, "days", 7, "period in days")
	return cmd
}

// writeDetails prints audit details in key order, one per line.
func writeDetails(w io.Writer, details map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(details)) {
		fmt.Fprintf(w, "      %s: %v\n", k, details[k])
	}
}

func newAuditReportCommand(rootOpts *RootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize audit activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			report, err := v.store.AuditReport(context.Background(), days)
			if err != nil {
				return wrapVaultError("failed to build audit report", err)
			}

			return rootOpts.formatter(cmd).Render(report, func(w io.Writer) {
				outputAuditReportText(w, report)
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "period in days")
	return cmd
}

func outputAuditReportText(w io.Writer, r store.AuditReport) {
	fmt.Fprintf(w, "Audit report, last %d days\n", r.PeriodDays)
	fmt.Fprintf(w, "Total events: %d\n", r.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== By Module ===")
	writeCounts(w, r.ByModule)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== By Action ===")
	writeCounts(w, r.ByAction)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Recent ===")
	if len(r.Recent) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, ev := range r.Recent {
		fmt.Fprintf(w, "  %s  %-9s %s\n", formatTime(ev.Timestamp), ev.Module, ev.ActionType)
	}
}

func writeCounts(w io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "  %-22s %d\n", k, counts[k])
	}
}
