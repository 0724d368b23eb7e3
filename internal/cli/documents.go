package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/vault/internal/store"
	"github.com/roach88/vault/internal/vaulterr"
)

// DocumentsAddOptions holds flags for the documents add command.
type DocumentsAddOptions struct {
	*RootOptions
	Summary  string
	Entities []string
	Shred    bool
}

// NewDocumentsCommand creates the documents command group.
func NewDocumentsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Store and read processed documents",
	}
	cmd.AddCommand(newDocumentsAddCommand(rootOpts))
	cmd.AddCommand(newDocumentsListCommand(rootOpts))
	cmd.AddCommand(newDocumentsShowCommand(rootOpts))
	return cmd
}

func newDocumentsAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DocumentsAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Store a document's extracted text",
		Long: `Store a document. The file is read as already-extracted text; its path,
content, summary and entities are encrypted.

With --shred the source file is overwritten and removed once stored.

Examples:
  vault documents add notes.txt --summary "Meeting notes" --entities "Alice,Acme"
  vault documents add statement.txt --shred`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocumentsAdd(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Summary, "summary", "", "document summary")
	cmd.Flags().StringSliceVar(&opts.Entities, "entities", nil, "comma-separated named entities")
	cmd.Flags().BoolVar(&opts.Shred, "shred", false, "securely delete the source file after storing it")

	return cmd
}

func runDocumentsAdd(opts *DocumentsAddOptions, cmd *cobra.Command, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read document", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve document path", err)
	}

	v, err := opts.openVault(cmd)
	if err != nil {
		return err
	}
	defer v.Close()

	doc := store.NewDocument{
		Filename: filepath.Base(path),
		Filepath: abs,
		Content:  string(content),
		FileType: filepath.Ext(path),
		Summary:  optionalFlag(cmd, "summary", opts.Summary),
	}
	if cmd.Flags().Changed("entities") {
		doc.Entities = append([]string{}, opts.Entities...)
	}

	id, err := v.store.AddDocument(context.Background(), doc)
	if err != nil {
		return wrapVaultError("failed to add document", err)
	}

	if opts.Shred {
		if err := v.codec.SecureDelete(path); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("document %d stored but source was not shredded", id), err)
		}
		v.logger.Debug("source document shredded", "document_id", id)
	}

	return opts.formatter(cmd).Render(map[string]any{"id": id, "shredded": opts.Shred}, func(w io.Writer) {
		fmt.Fprintf(w, "Added document %d (%s)\n", id, doc.Filename)
		if opts.Shred {
			fmt.Fprintln(w, "Source file shredded.")
		}
	})
}

func newDocumentsListCommand(rootOpts *RootOptions) *cobra.Command {
	var startFlag, endFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, most recently processed first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseRange(startFlag, endFlag)
			if err != nil {
				return err
			}

			v, err := rootOpts.openVault(cmd)
			if err != nil {
				return err
			}
			defer v.Close()

			docs, err := v.store.GetDocuments(context.Background(), store.DocumentQuery{Start: start, End: end, Limit: limit})
			if err != nil {
				return wrapVaultError("failed to read documents", err)
			}

			return rootOpts.formatter(cmd).Render(docs, func(w io.Writer) {
				if len(docs) == 0 {
					fmt.Fprintln(w, "No documents.")
					return
				}
				for _, d := range docs {
					fmt.Fprintf(w, "[%d] %s  %-5s %s\n", d.ID, formatTime(d.ProcessedAt), d.FileType, d.Filename)
				}
			})
		},
	}

	cmd.Flags().StringVar(&startFlag, "start", "", "earliest processed date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endFlag, "end", "", "latest processed date, inclusive (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", store.DefaultDocumentLimit, "maximum documents")
	return cmd
}

func newDocumentsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one document",
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

			doc, found, err := v.store.GetDocument(context.Background(), id)
			if err != nil {
				return wrapVaultError("failed to read document", err)
			}
			if !found {
				return wrapVaultError("failed to read document", vaulterr.NotFound("show document", "document %d not found", id))
			}

			return rootOpts.formatter(cmd).Render(doc, func(w io.Writer) {
				fmt.Fprintf(w, "Document %d: %s\n", doc.ID, doc.Filename)
				fmt.Fprintf(w, "  Path:      %s\n", doc.Filepath)
				fmt.Fprintf(w, "  Type:      %s\n", doc.FileType)
				fmt.Fprintf(w, "  Processed: %s\n", formatTime(doc.ProcessedAt))
				fmt.Fprintf(w, "  Summary:   %s\n", deref(doc.Summary))
				fmt.Fprintf(w, "  Entities:  %s\n", formatTags(doc.Entities))
				fmt.Fprintln(w)
				fmt.Fprintln(w, doc.Content)
			})
		},
	}
}
