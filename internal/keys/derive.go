package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/roach88/vault/internal/vaulterr"
)

const (
	// DerivationIterations is the PBKDF2-HMAC-SHA256 iteration count.
	DerivationIterations = 100_000

	// SaltLength is the size of a freshly generated salt.
	SaltLength = 32

	minSaltLength = 16
)

// Derive turns a passphrase and salt into a KeyLength-byte key.
// The same passphrase and salt always yield the same key.
func Derive(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, vaulterr.Validation("derive key", "passphrase must not be empty")
	}
	if len(salt) < minSaltLength {
		return nil, vaulterr.Validation("derive key", "salt must be at least %d bytes, got %d", minSaltLength, len(salt))
	}
	return pbkdf2.Key([]byte(passphrase), salt, DerivationIterations, KeyLength, sha256.New), nil
}

// loadOrCreateSalt returns the salt stored at path, creating it on first use.
// The salt is written to a temp file and renamed into place so a crash never
// leaves a truncated salt behind.
func loadOrCreateSalt(path string) ([]byte, bool, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) < minSaltLength {
			return nil, false, vaulterr.Validation("load salt", "salt file %s holds %d bytes, need at least %d", path, len(salt), minSaltLength)
		}
		return salt, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("read salt: %w", err)
	}

	salt = make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, false, fmt.Errorf("generate salt: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, false, fmt.Errorf("create salt dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, salt, 0o600); err != nil {
		return nil, false, fmt.Errorf("write salt: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, false, fmt.Errorf("install salt: %w", err)
	}
	return salt, true, nil
}
