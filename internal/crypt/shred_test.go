package crypt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureDelete_RemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.txt")
	require.NoError(t, os.WriteFile(path, []byte("account 0042 balance 1000"), 0o600))

	require.NoError(t, SecureDelete(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSecureDelete_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	assert.NoError(t, SecureDelete(path))
}

func TestSecureDelete_MissingFile(t *testing.T) {
	err := SecureDelete(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSecureDelete_Directory(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, SecureDelete(dir))

	_, err := os.Stat(dir)
	assert.NoError(t, err, "directory must be left in place")
}
