// Package keys owns the lifecycle of the vault's single symmetric key.
//
// A Manager looks the key up in a SecretStore under a fixed service and key
// name. On first run it generates a random key, or derives one from a
// passphrase and a persisted salt, and stores it. If the store refuses the
// write the key is still returned, flagged Ephemeral: anything encrypted
// with it is unrecoverable once the process exits.
package keys

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/vault/internal/vaulterr"
)

const (
	// DefaultService is the secret-store service identifier.
	DefaultService = "privacy_first_agent"

	// DefaultKeyName is the name of the key within the service.
	DefaultKeyName = "privacy_agent_db_key"

	// KeyLength is the key size in bytes (AES-256).
	KeyLength = 32
)

// Source records where a key came from.
type Source string

const (
	SourceStored    Source = "stored"
	SourceGenerated Source = "generated"
	SourceDerived   Source = "derived"
)

// Key is the symmetric key handed to the cipher codec.
type Key struct {
	Material []byte
	Source   Source

	// Ephemeral is true when the key could not be persisted.
	Ephemeral bool

	// Warning is a KEY_UNAVAILABLE error describing why the key is
	// ephemeral. Nil for persisted keys.
	Warning error
}

// Manager retrieves or creates the installation key.
type Manager struct {
	secrets  SecretStore
	service  string
	name     string
	saltPath string
	logger   *slog.Logger
	random   io.Reader
}

// Option configures a Manager.
type Option func(*Manager)

// WithName overrides the service identifier and key name.
func WithName(service, name string) Option {
	return func(m *Manager) {
		if service != "" {
			m.service = service
		}
		if name != "" {
			m.name = name
		}
	}
}

// WithSaltFile sets where the passphrase salt is persisted.
func WithSaltFile(path string) Option {
	return func(m *Manager) { m.saltPath = path }
}

// WithLogger sets the logger used for key warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager backed by secrets.
func NewManager(secrets SecretStore, opts ...Option) *Manager {
	m := &Manager{
		secrets: secrets,
		service: DefaultService,
		name:    DefaultKeyName,
		logger:  slog.Default(),
		random:  rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize returns the installation key.
//
// A previously stored key always wins, passphrase or not. Otherwise a key is
// derived from passphrase (when non-empty) or generated at random, then
// stored. A failed store degrades to an ephemeral key with Warning set; the
// returned error is reserved for conditions where no usable key exists.
func (m *Manager) Initialize(passphrase string) (*Key, error) {
	existing, err := m.secrets.Get(m.service, m.name)
	switch {
	case err == nil:
		material, decErr := decodeKey(existing)
		if decErr != nil {
			return nil, decErr
		}
		m.logger.Debug("encryption key loaded", "service", m.service)
		return &Key{Material: material, Source: SourceStored}, nil
	case errors.Is(err, ErrSecretNotFound):
		// First run.
	default:
		m.logger.Warn("could not read key from secret store", "service", m.service, "error", err)
	}

	key, err := m.newKey(passphrase)
	if err != nil {
		return nil, err
	}

	if err := m.secrets.Set(m.service, m.name, base64.StdEncoding.EncodeToString(key.Material)); err != nil {
		key.Ephemeral = true
		key.Warning = vaulterr.KeyUnavailable("initialize key", "secret store rejected the key; using an in-memory key that is lost on exit", err)
		m.logger.Warn("using in-memory encryption key; data written this session cannot be decrypted after exit",
			"service", m.service, "error", err)
		return key, nil
	}

	m.logger.Info("encryption key initialized", "service", m.service, "source", string(key.Source))
	return key, nil
}

func (m *Manager) newKey(passphrase string) (*Key, error) {
	if passphrase == "" {
		material := make([]byte, KeyLength)
		if _, err := io.ReadFull(m.random, material); err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		return &Key{Material: material, Source: SourceGenerated}, nil
	}

	if m.saltPath == "" {
		return nil, vaulterr.Validation("initialize key", "a salt file path is required for passphrase derivation")
	}
	salt, created, err := loadOrCreateSalt(m.saltPath)
	if err != nil {
		return nil, err
	}
	if created {
		m.logger.Info("passphrase salt created", "path", m.saltPath)
	}
	material, err := Derive(passphrase, salt)
	if err != nil {
		return nil, err
	}
	return &Key{Material: material, Source: SourceDerived}, nil
}

func decodeKey(encoded string) ([]byte, error) {
	material, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, vaulterr.Validation("load key", "stored key is not valid base64")
	}
	if len(material) != KeyLength {
		return nil, vaulterr.Validation("load key", "stored key is %d bytes, want %d", len(material), KeyLength)
	}
	return material, nil
}
