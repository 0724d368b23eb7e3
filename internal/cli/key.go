package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/vault/internal/crypt"
)

// KeyStatus is the non-secret description of the installation key.
type KeyStatus struct {
	Service     string `json:"service"`
	Name        string `json:"name"`
	Source      string `json:"source"`
	Ephemeral   bool   `json:"ephemeral"`
	Fingerprint string `json:"fingerprint"`
	Warning     string `json:"warning,omitempty"`
}

// NewKeyCommand creates the key command group.
func NewKeyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the encryption key",
	}
	cmd.AddCommand(newKeyInitCommand(rootOpts))
	return cmd
}

func newKeyInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or load the encryption key",
		Long: `Create the encryption key on first run, or confirm the stored one.

The key is kept in the platform keyring. With --passphrase-env it is
derived from the passphrase and a salt file instead of generated at random.
Only a fingerprint is printed, never the key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			level, _ := cfg.LogLevel()
			key, err := rootOpts.initKey(cfg, rootOpts.logger(cmd, level))
			if err != nil {
				return err
			}

			status := KeyStatus{
				Service:     cfg.Keys.Service,
				Name:        cfg.Keys.Name,
				Source:      string(key.Source),
				Ephemeral:   key.Ephemeral,
				Fingerprint: crypt.Hash(string(key.Material))[:16],
			}
			if key.Warning != nil {
				status.Warning = key.Warning.Error()
			}

			return rootOpts.formatter(cmd).Render(status, func(w io.Writer) {
				fmt.Fprintf(w, "Key %s/%s (%s)\n", status.Service, status.Name, status.Source)
				fmt.Fprintf(w, "  Fingerprint: %s\n", status.Fingerprint)
				if status.Ephemeral {
					fmt.Fprintln(w, "  WARNING: key is not persisted; data written with it is lost on exit")
				}
			})
		},
	}
}
