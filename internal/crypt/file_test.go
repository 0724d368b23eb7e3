package crypt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vault/internal/vaulterr"
)

func TestEncryptFile_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "statement.txt")
	plaintext := []byte("account 0042 balance 1000")
	require.NoError(t, os.WriteFile(src, plaintext, 0o644))

	enc := EncryptedPath(src)
	require.NoError(t, c.EncryptFile(src, enc))
	assert.FileExists(t, src, "source is left in place")

	sealed, err := os.ReadFile(enc)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "balance")

	info, err := os.Stat(enc)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out := filepath.Join(dir, "restored.txt")
	require.NoError(t, c.DecryptFile(enc, out))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	info, err = os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEncryptFile_OverwritesDestination(t *testing.T) {
	c := newTestCodec(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "a.txt.enc")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o600))
	require.NoError(t, os.WriteFile(dst, []byte("stale"), 0o600))

	require.NoError(t, c.EncryptFile(src, dst))
	require.NoError(t, c.DecryptFile(dst, src))
	got, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestDecryptFile_WrongKey(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("private"), 0o600))

	enc := EncryptedPath(src)
	require.NoError(t, newTestCodec(t).EncryptFile(src, enc))

	out := filepath.Join(dir, "out.txt")
	err := newTestCodec(t).DecryptFile(enc, out)
	assert.True(t, vaulterr.IsDecryptionFailure(err), "got %v", err)
	assert.NoFileExists(t, out)
}

func TestDecryptFile_NotAToken(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(src, []byte("plain text, never encrypted"), 0o600))

	err := newTestCodec(t).DecryptFile(src, filepath.Join(dir, "out"))
	assert.True(t, vaulterr.IsDecryptionFailure(err))
}

func TestEncryptFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := newTestCodec(t).EncryptFile(filepath.Join(dir, "nope"), filepath.Join(dir, "nope.enc"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "nope.enc"))
}

func TestDefaultPaths(t *testing.T) {
	assert.Equal(t, "/tmp/a.txt.enc", EncryptedPath("/tmp/a.txt"))
	assert.Equal(t, "/tmp/a.txt", DecryptedPath("/tmp/a.txt.enc"))
	assert.Equal(t, "/tmp/a.bin.dec", DecryptedPath("/tmp/a.bin"))
	assert.Equal(t, "/tmp/.enc.dec", DecryptedPath("/tmp/.enc"))
}
