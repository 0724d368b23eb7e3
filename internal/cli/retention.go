package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/vault/internal/store"
)

var retentionCategories = []store.Category{
	store.RetainJournal,
	store.RetainFinance,
	store.RetainDocuments,
	store.RetainAudit,
}

// NewRetentionCommand creates the retention command group.
func NewRetentionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Show and apply data retention windows",
	}
	cmd.AddCommand(newRetentionShowCommand(rootOpts))
	cmd.AddCommand(newRetentionPurgeCommand(rootOpts))
	return cmd
}

func newRetentionShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the configured retention policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			policy := cfg.RetentionPolicy()

			return rootOpts.formatter(cmd).Render(policy, func(w io.Writer) {
				state := "disabled"
				if policy.Enabled {
					state = "enabled"
				}
				fmt.Fprintf(w, "Automatic deletion: %s\n", state)
				for _, c := range retentionCategories {
					if days := policy.Windows[c]; days > 0 {
						fmt.Fprintf(w, "  %-11s %d days\n", c, days)
					} else {
						fmt.Fprintf(w, "  %-11s forever\n", c)
					}
				}
			})
		},
	}
}

func newRetentionPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete rows older than their retention window",
		Long: `Delete rows older than their category's retention window.

Purging runs automatically at startup when retention.auto_delete is
enabled. Otherwise this command refuses to run without --force.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			if !v.store.Retention().Enabled && !force {
				return NewExitError(ExitCommandError,
					"automatic deletion is disabled; enable retention.auto_delete or pass --force")
			}

			result, err := v.store.Purge(context.Background())
			if err != nil {
				return wrapVaultError("failed to purge", err)
			}

			return rootOpts.formatter(cmd).Render(result, func(w io.Writer) {
				fmt.Fprintf(w, "Purged %d rows\n", result.Total())
				for _, c := range result.Counts {
					fmt.Fprintf(w, "  %-11s %d\n", c.Category, c.Deleted)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "purge even when automatic deletion is disabled")
	return cmd
}
