package keys

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// ErrSecretNotFound is returned by a SecretStore when no secret exists under
// the requested name. It is the normal first-run condition, not a failure.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore reads and writes named secrets under a service identifier.
type SecretStore interface {
	Get(service, name string) (string, error)
	Set(service, name, secret string) error
}

// Keyring is the platform secret store (macOS Keychain, Secret Service on
// Linux, Windows Credential Manager).
type Keyring struct{}

// Get returns the named secret or ErrSecretNotFound.
func (Keyring) Get(service, name string) (string, error) {
	secret, err := keyring.Get(service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return secret, nil
}

// Set stores the named secret, replacing any previous value.
func (Keyring) Set(service, name, secret string) error {
	if err := keyring.Set(service, name, secret); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// MemorySecretStore keeps secrets in process memory. Secrets vanish when the
// process exits.
type MemorySecretStore struct {
	mu      sync.Mutex
	secrets map[string]string
}

// NewMemorySecretStore returns an empty in-memory secret store.
func NewMemorySecretStore() *MemorySecretStore {
	return &MemorySecretStore{secrets: make(map[string]string)}
}

// Get returns the named secret or ErrSecretNotFound.
func (m *MemorySecretStore) Get(service, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret, ok := m.secrets[service+"\x00"+name]
	if !ok {
		return "", ErrSecretNotFound
	}
	return secret, nil
}

// Set stores the named secret.
func (m *MemorySecretStore) Set(service, name, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[service+"\x00"+name] = secret
	return nil
}
