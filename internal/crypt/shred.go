package crypt

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
)

// SecureDelete overwrites the file at path with random bytes over its full
// length, syncs, and removes it. Missing paths and directories are errors.
func SecureDelete(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("secure delete: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("secure delete: %s is not a regular file", path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("secure delete: open: %w", err)
	}
	if _, err := io.CopyN(f, rand.Reader, info.Size()); err != nil {
		f.Close()
		return fmt.Errorf("secure delete: overwrite: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("secure delete: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("secure delete: close: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("secure delete: remove: %w", err)
	}
	return nil
}

// SecureDelete is the method form of the package-level SecureDelete.
func (c *Codec) SecureDelete(path string) error {
	return SecureDelete(path)
}
