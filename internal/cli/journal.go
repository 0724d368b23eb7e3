package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vault/internal/store"
	"github.com/roach88/vault/internal/vaulterr"
)

// JournalAddOptions holds flags for the journal add command.
type JournalAddOptions struct {
	*RootOptions
	Mood      string
	Sentiment float64
	Tags      []string
}

// JournalListOptions holds flags for the journal list command.
type JournalListOptions struct {
	*RootOptions
	Start string
	End   string
	Limit int
}

// NewJournalCommand creates the journal command group.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Write and read encrypted journal entries",
	}
	cmd.AddCommand(newJournalAddCommand(rootOpts))
	cmd.AddCommand(newJournalListCommand(rootOpts))
	cmd.AddCommand(newJournalShowCommand(rootOpts))
	cmd.AddCommand(newJournalStatsCommand(rootOpts))
	cmd.AddCommand(newJournalTagsCommand(rootOpts))
	return cmd
}

func newJournalAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <text>...",
		Short: "Add a journal entry",
		Long: `Add a journal entry. The text is encrypted before it is stored.

Mood and sentiment come from whatever classifier you use; they are stored
in plaintext so statistics can be computed without decrypting entries.

Examples:
  vault journal add "Long walk by the river" --mood positive --sentiment 0.6
  vault journal add "Deadline week" --mood negative --sentiment -0.4 --tags work`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalAdd(opts, cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&opts.Mood, "mood", string(store.MoodNeutral), "mood category (very_negative|negative|neutral|positive|very_positive)")
	cmd.Flags().Float64Var(&opts.Sentiment, "sentiment", 0, "sentiment score in [-1, 1]")
	cmd.Flags().StringSliceVar(&opts.Tags, "tags", nil, "comma-separated tags")

	return cmd
}

func runJournalAdd(opts *JournalAddOptions, cmd *cobra.Command, content string) error {
	v, err := opts.openVault(cmd)
	if err != nil {
		return err
	}
	defer v.Close()

	id, err := v.store.AddJournalEntry(context.Background(), store.NewJournalEntry{
		Content:   content,
		Sentiment: opts.Sentiment,
		Mood:      store.Mood(opts.Mood),
		Tags:      opts.Tags,
	})
	if err != nil {
		return wrapVaultError("failed to add journal entry", err)
	}

	return opts.formatter(cmd).Render(map[string]int64{"id": id}, func(w io.Writer) {
		fmt.Fprintf(w, "Added journal entry %d\n", id)
	})
}

func newJournalListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.End, "end", "", "latest date, inclusive (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Limit, "limit", store.DefaultLimit, "maximum entries")

	return cmd
}

func runJournalList(opts *JournalListOptions, cmd *cobra.Command) error {
	start, end, err := parseRange(opts.Start, opts.End)
	if err != nil {
		return err
	}

	v, err := opts.openVault(cmd)
	if err != nil {
		return err
	}
	defer v.Close()

	entries, err := v.store.GetJournalEntries(context.Background(), store.JournalQuery{Start: start, End: end, Limit: opts.Limit})
	if err != nil {
		return wrapVaultError("failed to read journal entries", err)
	}

	return opts.formatter(cmd).Render(entries, func(w io.Writer) {
		outputJournalListText(w, entries)
	})
}

func outputJournalListText(w io.Writer, entries []store.JournalEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No journal entries.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "[%d] %s  %-13s %+.2f  %s\n", e.ID, formatTime(e.Timestamp), e.Mood, e.Sentiment, truncate(e.Content, 50))
	}
}

func newJournalShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			entry, found, err := v.store.GetJournalEntry(context.Background(), id)
			if err != nil {
				return wrapVaultError("failed to read journal entry", err)
			}
			if !found {
				return wrapVaultError("failed to read journal entry", vaulterr.NotFound("show journal entry", "journal entry %d not found", id))
			}

			return rootOpts.formatter(cmd).Render(entry, func(w io.Writer) {
				fmt.Fprintf(w, "Entry %d\n", entry.ID)
				fmt.Fprintf(w, "  Date:      %s\n", formatTime(entry.Timestamp))
				fmt.Fprintf(w, "  Mood:      %s (%+.2f)\n", entry.Mood, entry.Sentiment)
				fmt.Fprintf(w, "  Tags:      %s\n", formatTags(entry.Tags))
				fmt.Fprintln(w)
				fmt.Fprintln(w, entry.Content)
			})
		},
	}
}

func newJournalStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show mood statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			stats, err := v.store.GetMoodStatistics(context.Background(), days)
			if err != nil {
				return wrapVaultError("failed to read mood statistics", err)
			}

			return rootOpts.formatter(cmd).Render(stats, func(w io.Writer) {
				fmt.Fprintf(w, "Mood over the last %d days\n", stats.PeriodDays)
				if len(stats.Statistics) == 0 {
					fmt.Fprintln(w, "  (no entries)")
					return
				}
				for _, s := range stats.Statistics {
					fmt.Fprintf(w, "  %-13s %3d  avg %+.2f\n", s.Mood, s.Count, s.AvgSentiment)
				}
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "period in days")
	return cmd
}

func newJournalTagsCommand(rootOpts *RootOptions) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List journal tags by usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			var tags []store.TagCount
			if top > 0 {
				tags, err = v.store.GetPopularTags(context.Background(), top)
			} else {
				tags, err = v.store.GetAllTags(context.Background())
			}
			if err != nil {
				return wrapVaultError("failed to read tags", err)
			}

			return rootOpts.formatter(cmd).Render(tags, func(w io.Writer) {
				if len(tags) == 0 {
					fmt.Fprintln(w, "No tags.")
					return
				}
				for _, t := range tags {
					fmt.Fprintf(w, "%-20s %d\n", t.Tag, t.Count)
				}
			})
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "show only the n most used tags")
	return cmd
}

// parseID parses a positive record id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q: must be a positive integer", arg))
	}
	return id, nil
}
