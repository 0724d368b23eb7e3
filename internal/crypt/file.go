package crypt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EncryptedSuffix is appended to a file's name by EncryptedPath.
const EncryptedSuffix = ".enc"

// EncryptedPath returns the default destination for EncryptFile.
func EncryptedPath(src string) string {
	return src + EncryptedSuffix
}

// DecryptedPath returns the default destination for DecryptFile: src without
// its EncryptedSuffix, or src with ".dec" appended when it has none.
func DecryptedPath(src string) string {
	if trimmed, ok := strings.CutSuffix(src, EncryptedSuffix); ok && filepath.Base(src) != EncryptedSuffix {
		return trimmed
	}
	return src + ".dec"
}

// EncryptFile seals the whole content of src as one token and writes it to
// dst with mode 0600. src is left in place.
func (c *Codec) EncryptFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("encrypt file: %w", err)
	}
	token, err := c.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt file: %w", err)
	}
	if err := writeFileAtomic(dst, token); err != nil {
		return fmt.Errorf("encrypt file: %w", err)
	}
	return nil
}

// DecryptFile opens a file written by EncryptFile and writes the plaintext to
// dst with mode 0600. Nothing is written when decryption fails.
func (c *Codec) DecryptFile(src, dst string) error {
	token, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("decrypt file: %w", err)
	}
	data, err := c.Decrypt(token)
	if err != nil {
		return fmt.Errorf("decrypt file %s: %w", src, err)
	}
	if err := writeFileAtomic(dst, data); err != nil {
		return fmt.Errorf("decrypt file: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}
	return nil
}
