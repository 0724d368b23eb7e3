// Package config loads vault settings from a YAML file, a .env file and the
// process environment, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/vault/internal/keys"
	"github.com/roach88/vault/internal/store"
	"github.com/roach88/vault/internal/vaulterr"
)

// Environment overrides.
const (
	EnvDBPath         = "VAULT_DB_PATH"
	EnvAutoDelete     = "VAULT_AUTO_DELETE"
	EnvKeyringService = "VAULT_KEYRING_SERVICE"
	EnvLogLevel       = "VAULT_LOG_LEVEL"
)

// DefaultDBPath is used when neither the file nor the environment names a
// database.
var DefaultDBPath = filepath.Join("data", "vault.db")

// Config is the full vault configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Keys      KeysConfig      `yaml:"keys"`
	Retention RetentionConfig `yaml:"retention"`
	Log       LogConfig       `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// KeysConfig names the platform secret store entry holding the data key.
// SaltFile is only used for passphrase-derived keys.
type KeysConfig struct {
	Service  string `yaml:"service"`
	Name     string `yaml:"name"`
	SaltFile string `yaml:"salt_file"`
}

// RetentionConfig maps onto store.Policy. Days is keyed by retention
// category; categories left out keep their default window.
type RetentionConfig struct {
	AutoDelete bool           `yaml:"auto_delete"`
	Days       map[string]int `yaml:"days"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	days := make(map[string]int)
	for c, n := range store.DefaultPolicy().Windows {
		days[string(c)] = n
	}
	return &Config{
		Database: DatabaseConfig{Path: DefaultDBPath},
		Keys: KeysConfig{
			Service: keys.DefaultService,
			Name:    keys.DefaultKeyName,
		},
		Retention: RetentionConfig{AutoDelete: false, Days: days},
		Log:       LogConfig{Level: "info"},
	}
}

// Load builds the configuration. A missing file at path (or an empty path)
// yields the defaults. envFiles are loaded with godotenv without overriding
// variables already set; with none given, ./.env is loaded when present.
// Environment overrides are applied last, then the result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	const op = "load config"
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("%s: failed to read config file: %w", op, err)
		default:
			if err := decode(data, cfg); err != nil {
				return nil, vaulterr.Validation(op, "failed to parse %s: %v", path, err)
			}
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode merges YAML into cfg. Unknown fields are rejected so typos surface.
func decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	fileCfg := Config{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fileCfg); err != nil {
		return err
	}

	if fileCfg.Database.Path != "" {
		cfg.Database.Path = fileCfg.Database.Path
	}
	if fileCfg.Keys.Service != "" {
		cfg.Keys.Service = fileCfg.Keys.Service
	}
	if fileCfg.Keys.Name != "" {
		cfg.Keys.Name = fileCfg.Keys.Name
	}
	if fileCfg.Keys.SaltFile != "" {
		cfg.Keys.SaltFile = fileCfg.Keys.SaltFile
	}
	cfg.Retention.AutoDelete = fileCfg.Retention.AutoDelete
	for c, n := range fileCfg.Retention.Days {
		cfg.Retention.Days[c] = n
	}
	if fileCfg.Log.Level != "" {
		cfg.Log.Level = fileCfg.Log.Level
	}
	return nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvKeyringService)); v != "" {
		c.Keys.Service = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutoDelete)); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return vaulterr.Validation("load config", "%s=%q is not a boolean", EnvAutoDelete, v)
		}
		c.Retention.AutoDelete = enabled
	}
	return nil
}

// Validate checks the configuration for values the store would reject.
func (c *Config) Validate() error {
	const op = "validate config"
	if strings.TrimSpace(c.Database.Path) == "" {
		return vaulterr.Validation(op, "database.path must not be empty")
	}
	if c.Keys.Service == "" || c.Keys.Name == "" {
		return vaulterr.Validation(op, "keys.service and keys.name must not be empty")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return c.RetentionPolicy().Validate()
}

// RetentionPolicy converts the retention section into a store policy.
func (c *Config) RetentionPolicy() store.Policy {
	p := store.Policy{Enabled: c.Retention.AutoDelete, Windows: make(map[store.Category]int, len(c.Retention.Days))}
	for name, days := range c.Retention.Days {
		p.Windows[store.Category(name)] = days
	}
	return p
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, vaulterr.Validation("validate config", "log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	return level, nil
}
