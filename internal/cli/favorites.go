package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewFavoritesCommand creates the favorites command group.
func NewFavoritesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Mark journal entries, transactions and documents",
	}
	cmd.AddCommand(newFavoritesChangeCommand(rootOpts, "add"))
	cmd.AddCommand(newFavoritesChangeCommand(rootOpts, "remove"))
	cmd.AddCommand(newFavoritesChangeCommand(rootOpts, "check"))
	cmd.AddCommand(newFavoritesListCommand(rootOpts))
	return cmd
}

// newFavoritesChangeCommand builds the add, remove and check subcommands,
// which share the <module> <id> arguments.
func newFavoritesChangeCommand(rootOpts *RootOptions, verb string) *cobra.Command {
	short := map[string]string{
		"add":    "Mark an item as favorite",
		"remove": "Unmark an item",
		"check":  "Report whether an item is marked",
	}[verb]

	return &cobra.Command{
		Use:   verb + " <module> <id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			module := args[0]
			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			ctx := context.Background()
			var marked bool
			switch verb {
			case "add":
				err = v.store.AddFavorite(ctx, module, id)
				marked = true
			case "remove":
				var removed bool
				removed, err = v.store.RemoveFavorite(ctx, module, id)
				if err == nil && !removed {
					return NewExitError(ExitCommandError, fmt.Sprintf("%s %d is not a favorite", module, id))
				}
			case "check":
				marked, err = v.store.IsFavorite(ctx, module, id)
			}
			if err != nil {
				return wrapVaultError("failed to "+verb+" favorite", err)
			}

			result := map[string]any{"module": module, "item_id": id, "favorite": marked}
			return rootOpts.formatter(cmd).Render(result, func(w io.Writer) {
				switch {
				case verb == "add":
					fmt.Fprintf(w, "Marked %s %d as favorite\n", module, id)
				case verb == "remove":
					fmt.Fprintf(w, "Unmarked %s %d\n", module, id)
				case marked:
					fmt.Fprintf(w, "%s %d is a favorite\n", module, id)
				default:
					fmt.Fprintf(w, "%s %d is not a favorite\n", module, id)
				}
			})
		},
	}
}

func newFavoritesListCommand(rootOpts *RootOptions) *cobra.Command {
	var module string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List favorites, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			favs, err := v.store.GetFavorites(context.Background(), module)
			if err != nil {
				return wrapVaultError("failed to list favorites", err)
			}

			return rootOpts.formatter(cmd).Render(favs, func(w io.Writer) {
				if len(favs) == 0 {
					fmt.Fprintln(w, "No favorites.")
					return
				}
				for _, f := range favs {
					fmt.Fprintf(w, "%-9s %d\n", f.Module, f.ItemID)
				}
			})
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "only this module")
	return cmd
}
