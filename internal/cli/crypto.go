package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vault/internal/crypt"
)

// NewCryptoCommand creates the crypto command group. None of its
// subcommands touch the database; only the file commands need the key.
func NewCryptoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crypto",
		Short: "Pseudonymize text, encrypt and shred files",
	}
	cmd.AddCommand(newCryptoHashCommand(rootOpts))
	cmd.AddCommand(newCryptoAnonymizeCommand(rootOpts))
	cmd.AddCommand(newCryptoShredCommand(rootOpts))
	cmd.AddCommand(newCryptoEncryptFileCommand(rootOpts))
	cmd.AddCommand(newCryptoDecryptFileCommand(rootOpts))
	return cmd
}

func newCryptoHashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <text>...",
		Short: "Print the pseudonymous hash of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest := crypt.Hash(strings.Join(args, " "))
			return rootOpts.formatter(cmd).Render(map[string]string{"hash": digest}, func(w io.Writer) {
				fmt.Fprintln(w, digest)
			})
		},
	}
}

func newCryptoAnonymizeCommand(rootOpts *RootOptions) *cobra.Command {
	var entities []string

	cmd := &cobra.Command{
		Use:   "anonymize <text>...",
		Short: "Replace named entities with stable redaction markers",
		Long: `Replace every occurrence of each --entity with a marker derived from its
hash, so the same entity always maps to the same marker.

Example:
  vault crypto anonymize "Alice paid Bob" --entity Alice --entity Bob`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := crypt.Anonymize(strings.Join(args, " "), entities)
			return rootOpts.formatter(cmd).Render(map[string]string{"text": text}, func(w io.Writer) {
				fmt.Fprintln(w, text)
			})
		},
	}

	cmd.Flags().StringArrayVar(&entities, "entity", nil, "entity to mask (repeatable)")
	return cmd
}

func newCryptoShredCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shred <file>",
		Short: "Overwrite a file with random data and remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := crypt.SecureDelete(args[0]); err != nil {
				return WrapExitError(ExitCommandError, "failed to shred file", err)
			}
			return rootOpts.formatter(cmd).Render(map[string]string{"shredded": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Shredded %s\n", args[0])
			})
		},
	}
}

// fileResult is the payload of encrypt-file and decrypt-file.
type fileResult struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Shredded    bool   `json:"shredded,omitempty"`
}

func newCryptoEncryptFileCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		out   string
		shred bool
	)

	cmd := &cobra.Command{
		Use:   "encrypt-file <file>",
		Short: "Encrypt a file with the vault key",
		Long: `Encrypt a file with the vault key. The result is written to --out, or
next to the source with a .enc suffix. With --shred the plaintext is
securely deleted once the encrypted copy is in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			dst := out
			if dst == "" {
				dst = crypt.EncryptedPath(src)
			}
			if dst == src {
				return NewExitError(ExitCommandError, "--out must differ from the source file")
			}

			_, _, codec, logger, err := rootOpts.openCodec(cmd)
			if err != nil {
				return err
			}
			if err := codec.EncryptFile(src, dst); err != nil {
				return fileError("failed to encrypt file", err)
			}
			logger.Debug("encrypted file", "source", src, "destination", dst)

			res := fileResult{Source: src, Destination: dst}
			if shred {
				if err := crypt.SecureDelete(src); err != nil {
					return WrapExitError(ExitFailure, "encrypted but failed to shred source", err)
				}
				res.Shredded = true
			}
			return rootOpts.formatter(cmd).Render(res, func(w io.Writer) {
				fmt.Fprintf(w, "Encrypted %s -> %s\n", res.Source, res.Destination)
				if res.Shredded {
					fmt.Fprintf(w, "Shredded %s\n", res.Source)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default <file>.enc)")
	cmd.Flags().BoolVar(&shred, "shred", false, "securely delete the source after encrypting")
	return cmd
}

func newCryptoDecryptFileCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "decrypt-file <file>",
		Short: "Decrypt a file written by encrypt-file",
		Long: `Decrypt a file written by encrypt-file. The plaintext goes to --out, or
to the source path without its .enc suffix (.dec is appended when there
is none). Nothing is written when the key does not match.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			dst := out
			if dst == "" {
				dst = crypt.DecryptedPath(src)
			}
			if dst == src {
				return NewExitError(ExitCommandError, "--out must differ from the source file")
			}

			_, _, codec, logger, err := rootOpts.openCodec(cmd)
			if err != nil {
				return err
			}
			if err := codec.DecryptFile(src, dst); err != nil {
				return fileError("failed to decrypt file", err)
			}
			logger.Debug("decrypted file", "source", src, "destination", dst)

			res := fileResult{Source: src, Destination: dst}
			return rootOpts.formatter(cmd).Render(res, func(w io.Writer) {
				fmt.Fprintf(w, "Decrypted %s -> %s\n", res.Source, res.Destination)
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default <file> without .enc)")
	return cmd
}

// fileError maps a missing source to a usage error.
func fileError(message string, err error) *ExitError {
	if errors.Is(err, fs.ErrNotExist) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return wrapVaultError(message, err)
}
