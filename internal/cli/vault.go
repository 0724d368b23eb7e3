package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/vault/internal/config"
	"github.com/roach88/vault/internal/crypt"
	"github.com/roach88/vault/internal/keys"
	"github.com/roach88/vault/internal/store"
	"github.com/roach88/vault/internal/vaulterr"
)

// vault bundles what a command needs after startup.
type vault struct {
	cfg    *config.Config
	key    *keys.Key
	codec  *crypt.Codec
	store  *store.Store
	logger *slog.Logger
}

func (v *vault) Close() error {
	if v.store == nil {
		return nil
	}
	return v.store.Close()
}

// loadConfig reads the config file and applies --db.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, wrapVaultError("failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	return cfg, nil
}

// initKey resolves the installation key for cfg.
func (o *RootOptions) initKey(cfg *config.Config, logger *slog.Logger) (*keys.Key, error) {
	var secrets keys.SecretStore
	switch {
	case o.EphemeralKey:
		secrets = keys.NewMemorySecretStore()
	case o.secrets != nil:
		secrets = o.secrets
	default:
		secrets = keys.Keyring{}
	}

	saltFile := cfg.Keys.SaltFile
	if saltFile == "" {
		saltFile = filepath.Join(filepath.Dir(cfg.Database.Path), "vault.salt")
	}
	manager := keys.NewManager(secrets,
		keys.WithName(cfg.Keys.Service, cfg.Keys.Name),
		keys.WithSaltFile(saltFile),
		keys.WithLogger(logger),
	)

	var passphrase string
	if o.PassphraseEnv != "" {
		passphrase = os.Getenv(o.PassphraseEnv)
		if passphrase == "" {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("environment variable %s is empty", o.PassphraseEnv))
		}
	}

	key, err := manager.Initialize(passphrase)
	if err != nil {
		return nil, wrapVaultError("failed to initialize key", err)
	}
	if o.EphemeralKey {
		key.Ephemeral = true
		key.Warning = vaulterr.KeyUnavailable("initialize key",
			"--ephemeral-key keeps the key in memory only; data written this session cannot be decrypted after exit", nil)
		logger.Warn("using ephemeral key", "error", key.Warning)
	}
	return key, nil
}

// openCodec loads config and resolves the key without touching the database.
func (o *RootOptions) openCodec(cmd *cobra.Command) (*config.Config, *keys.Key, *crypt.Codec, *slog.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	level, _ := cfg.LogLevel()
	logger := o.logger(cmd, level)

	key, err := o.initKey(cfg, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	codec, err := crypt.New(key.Material)
	if err != nil {
		return nil, nil, nil, nil, wrapVaultError("failed to create cipher", err)
	}
	return cfg, key, codec, logger, nil
}

// openVault loads config, resolves the key and opens the store.
// The caller must Close the returned vault.
func (o *RootOptions) openVault(cmd *cobra.Command) (*vault, error) {
	cfg, key, codec, logger, err := o.openCodec(cmd)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, WrapExitError(ExitFailure, "failed to create database directory", err)
		}
	}
	st, err := store.Open(cfg.Database.Path, codec,
		store.WithRetention(cfg.RetentionPolicy()),
		store.WithClock(o.clock()),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, wrapVaultError("failed to open database", err)
	}
	o.formatter(cmd).VerboseLog("Opened %s", cfg.Database.Path)

	return &vault{cfg: cfg, key: key, codec: codec, store: st, logger: logger}, nil
}

const dateLayout = "2006-01-02"

// parseDate parses a YYYY-MM-DD flag value as UTC midnight. Empty means unset.
func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid --%s %q: want YYYY-MM-DD", flag, value))
	}
	return t, nil
}

// parseRange parses --start/--end values. The end date is inclusive, so it
// extends to the last instant of that day.
func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := parseDate("start", start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := parseDate("end", end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !e.IsZero() {
		e = e.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return s, e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ", ")
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// truncate shortens s to n runes for single-line listings.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
