package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vault/internal/search"
	"github.com/roach88/vault/internal/store"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Tag      string
	Category string
	Start    string
	End      string
	Limit    int
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search across journal, finance and documents",
		Long: `Search decrypted records across all modules.

Exactly one mode is used:
  a query         case-insensitive text match in every module
  --tag           journal entries carrying the tag
  --category      transactions in the category
  --start/--end   every record in the date range

Examples:
  vault search river
  vault search --tag work
  vault search --start 2025-03-01 --end 2025-03-31`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runSearch(opts, cmd, query)
		},
	}

	cmd.Flags().StringVar(&opts.Tag, "tag", "", "search journal entries by tag")
	cmd.Flags().StringVar(&opts.Category, "category", "", "search transactions by category")
	cmd.Flags().StringVar(&opts.Start, "start", "", "range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.End, "end", "", "range end, inclusive (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Limit, "limit", search.DefaultLimit, "maximum matches per module for text queries")

	return cmd
}

func runSearch(opts *SearchOptions, cmd *cobra.Command, query string) error {
	modes := 0
	for _, set := range []bool{query != "", opts.Tag != "", opts.Category != "", opts.Start != "" || opts.End != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return NewExitError(ExitCommandError, "give exactly one of: a query, --tag, --category, or --start/--end")
	}
	start, end, err := parseRange(opts.Start, opts.End)
	if err != nil {
		return err
	}

	v, err := opts.openVault(cmd)
	if err != nil {
		return err
	}
	defer v.Close()

	ctx := context.Background()
	searcher := search.New(v.store)
	out := opts.formatter(cmd)

	switch {
	case opts.Tag != "":
		entries, err := searcher.ByTag(ctx, opts.Tag)
		if err != nil {
			return wrapVaultError("search failed", err)
		}
		return out.Render(entries, func(w io.Writer) { outputJournalListText(w, entries) })

	case opts.Category != "":
		txns, err := searcher.ByCategory(ctx, opts.Category)
		if err != nil {
			return wrapVaultError("search failed", err)
		}
		return out.Render(txns, func(w io.Writer) { outputTransactionsText(w, txns) })

	case query != "":
		results, err := searcher.All(ctx, query, opts.Limit)
		if err != nil {
			return wrapVaultError("search failed", err)
		}
		return out.Render(results, func(w io.Writer) {
			fmt.Fprintf(w, "%d results for %q\n", results.Total(), query)
			outputResultsText(w, results)
		})

	default:
		if end.IsZero() {
			end = opts.clock()()
		}
		results, err := searcher.ByDate(ctx, start, end)
		if err != nil {
			return wrapVaultError("search failed", err)
		}
		return out.Render(results, func(w io.Writer) {
			fmt.Fprintf(w, "%d records\n", results.Total())
			outputResultsText(w, results)
		})
	}
}

func outputResultsText(w io.Writer, r search.Results) {
	section := func(title string, n int, body func()) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "=== %s (%d) ===\n", title, n)
		if n == 0 {
			fmt.Fprintln(w, "  (none)")
			return
		}
		body()
	}

	section("Journal", len(r.Journal), func() {
		for _, e := range r.Journal {
			fmt.Fprintf(w, "  [%d] %s  %s\n", e.ID, formatTime(e.Timestamp), truncate(e.Content, 50))
		}
	})
	section("Transactions", len(r.Transactions), func() {
		for _, t := range r.Transactions {
			fmt.Fprintf(w, "  [%d] %s  %.2f %s  %s\n", t.ID, formatTime(t.Timestamp), t.Amount, t.Category, deref(t.Merchant))
		}
	})
	section("Documents", len(r.Documents), func() {
		for _, d := range r.Documents {
			fmt.Fprintf(w, "  [%d] %s  %s\n", d.ID, formatTime(d.ProcessedAt), documentLabel(d))
		}
	})
}

func documentLabel(d store.Document) string {
	if d.Summary != nil && strings.TrimSpace(*d.Summary) != "" {
		return d.Filename + " - " + truncate(*d.Summary, 40)
	}
	return d.Filename
}
