package keys

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/roach88/vault/internal/vaulterr"
)

// readOnlyStore finds nothing and refuses every write.
type readOnlyStore struct{ getErr error }

func (s readOnlyStore) Get(service, name string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	return "", ErrSecretNotFound
}

func (readOnlyStore) Set(service, name, secret string) error {
	return errors.New("keychain locked")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitialize_GeneratesAndStores(t *testing.T) {
	secrets := NewMemorySecretStore()
	m := NewManager(secrets, WithLogger(quietLogger()))

	key, err := m.Initialize("")
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, key.Source)
	assert.Len(t, key.Material, KeyLength)
	assert.False(t, key.Ephemeral)
	assert.NoError(t, key.Warning)

	stored, err := secrets.Get(DefaultService, DefaultKeyName)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(key.Material), stored)
}

func TestInitialize_AdoptsStoredKey(t *testing.T) {
	secrets := NewMemorySecretStore()
	first, err := NewManager(secrets, WithLogger(quietLogger())).Initialize("")
	require.NoError(t, err)

	second, err := NewManager(secrets, WithLogger(quietLogger())).Initialize("ignored passphrase")
	require.NoError(t, err)
	assert.Equal(t, SourceStored, second.Source)
	assert.Equal(t, first.Material, second.Material)
}

func TestInitialize_FallsBackToEphemeralKey(t *testing.T) {
	m := NewManager(readOnlyStore{}, WithLogger(quietLogger()))

	key, err := m.Initialize("")
	require.NoError(t, err)
	assert.True(t, key.Ephemeral)
	assert.Len(t, key.Material, KeyLength)
	assert.True(t, vaulterr.IsKeyUnavailable(key.Warning))
}

func TestInitialize_UnreadableStoreStillYieldsKey(t *testing.T) {
	m := NewManager(readOnlyStore{getErr: errors.New("dbus unavailable")}, WithLogger(quietLogger()))

	key, err := m.Initialize("")
	require.NoError(t, err)
	assert.True(t, key.Ephemeral)
}

func TestInitialize_RejectsMalformedStoredKey(t *testing.T) {
	secrets := NewMemorySecretStore()
	require.NoError(t, secrets.Set(DefaultService, DefaultKeyName, base64.StdEncoding.EncodeToString([]byte("short"))))

	_, err := NewManager(secrets, WithLogger(quietLogger())).Initialize("")
	assert.True(t, vaulterr.IsValidation(err))

	require.NoError(t, secrets.Set(DefaultService, DefaultKeyName, "%%%not base64"))
	_, err = NewManager(secrets, WithLogger(quietLogger())).Initialize("")
	assert.True(t, vaulterr.IsValidation(err))
}

func TestInitialize_PassphraseIsDeterministic(t *testing.T) {
	saltPath := filepath.Join(t.TempDir(), "keys", "vault.salt")

	// Two installations sharing a salt but not a secret store must derive
	// the same key from the same passphrase.
	k1, err := NewManager(NewMemorySecretStore(), WithSaltFile(saltPath), WithLogger(quietLogger())).Initialize("correct horse")
	require.NoError(t, err)
	k2, err := NewManager(NewMemorySecretStore(), WithSaltFile(saltPath), WithLogger(quietLogger())).Initialize("correct horse")
	require.NoError(t, err)

	assert.Equal(t, SourceDerived, k1.Source)
	assert.Equal(t, k1.Material, k2.Material)

	k3, err := NewManager(NewMemorySecretStore(), WithSaltFile(saltPath), WithLogger(quietLogger())).Initialize("battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, k1.Material, k3.Material)

	info, err := os.Stat(saltPath)
	require.NoError(t, err)
	assert.Equal(t, int64(SaltLength), info.Size())
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestInitialize_PassphraseWithoutSaltFile(t *testing.T) {
	_, err := NewManager(NewMemorySecretStore(), WithLogger(quietLogger())).Initialize("secret")
	assert.True(t, vaulterr.IsValidation(err))
}

func TestInitialize_CustomName(t *testing.T) {
	secrets := NewMemorySecretStore()
	_, err := NewManager(secrets, WithName("svc", "k"), WithLogger(quietLogger())).Initialize("")
	require.NoError(t, err)

	_, err = secrets.Get("svc", "k")
	assert.NoError(t, err)
	_, err = secrets.Get(DefaultService, DefaultKeyName)
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestDerive(t *testing.T) {
	salt := []byte("0123456789abcdef0123456789abcdef")

	a, err := Derive("passphrase", salt)
	require.NoError(t, err)
	b, err := Derive("passphrase", salt)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, KeyLength)

	c, err := Derive("passphrase", []byte("fedcba9876543210fedcba9876543210"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = Derive("", salt)
	assert.True(t, vaulterr.IsValidation(err))
	_, err = Derive("passphrase", []byte("short"))
	assert.True(t, vaulterr.IsValidation(err))
}

func TestLoadOrCreateSalt_RejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.salt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	_, _, err := loadOrCreateSalt(path)
	assert.True(t, vaulterr.IsValidation(err))
}

func TestKeyring_RoundTrip(t *testing.T) {
	keyring.MockInit()

	var kr Keyring
	_, err := kr.Get("svc", "missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	require.NoError(t, kr.Set("svc", "name", "value"))
	got, err := kr.Get("svc", "name")
	require.NoError(t, err)
	assert.Equal(t, "value", got)
}

func TestKeyring_ErrorDegradesToEphemeral(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Cleanup(keyring.MockInit)

	key, err := NewManager(Keyring{}, WithLogger(quietLogger())).Initialize("")
	require.NoError(t, err)
	assert.True(t, key.Ephemeral)
	assert.True(t, vaulterr.IsKeyUnavailable(key.Warning))
}
