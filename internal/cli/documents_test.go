package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vault/internal/store"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDocumentsAdd(t *testing.T) {
	h := newHarness(t)
	path := writeSource(t, "notes.txt", "Quarterly planning with Alice at Acme.")

	out := h.mustRun("documents", "add", path, "--summary", "Meeting notes", "--entities", "Alice,Acme")
	assert.Equal(t, "Added document 1 (notes.txt)\n", out)
	assert.FileExists(t, path)

	var doc store.Document
	h.runJSON(&doc, "documents", "show", "1")
	assert.Equal(t, "notes.txt", doc.Filename)
	assert.Equal(t, path, doc.Filepath)
	assert.Equal(t, ".txt", doc.FileType)
	assert.Equal(t, "Quarterly planning with Alice at Acme.", doc.Content)
	require.NotNil(t, doc.Summary)
	assert.Equal(t, "Meeting notes", *doc.Summary)
	assert.Equal(t, []string{"Alice", "Acme"}, doc.Entities)
}

func TestDocumentsAdd_AbsentOptionals(t *testing.T) {
	h := newHarness(t)
	path := writeSource(t, "plain.txt", "nothing special")
	h.mustRun("documents", "add", path)

	var doc store.Document
	h.runJSON(&doc, "documents", "show", "1")
	assert.Nil(t, doc.Summary)
	assert.Nil(t, doc.Entities)

	out := h.mustRun("documents", "show", "1")
	assert.Contains(t, out, "Summary:   -")
	assert.Contains(t, out, "Entities:  -")
}

func TestDocumentsAdd_Shred(t *testing.T) {
	h := newHarness(t)
	path := writeSource(t, "statement.txt", "Account 1234 balance 99.00")

	out := h.mustRun("documents", "add", path, "--shred")
	assert.Contains(t, out, "Source file shredded.")
	assert.NoFileExists(t, path)

	var doc store.Document
	h.runJSON(&doc, "documents", "show", "1")
	assert.Equal(t, "Account 1234 balance 99.00", doc.Content)
}

func TestDocumentsAdd_UnsupportedType(t *testing.T) {
	h := newHarness(t)
	path := writeSource(t, "image.png", "not text")

	res := h.run("documents", "add", path)
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "Error [VALIDATION]")
	assert.FileExists(t, path)
}

func TestDocumentsAdd_MissingFile(t *testing.T) {
	h := newHarness(t)
	res := h.run("documents", "add", filepath.Join(h.dir, "missing.txt"))
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "failed to read document")
}

func TestDocumentsList(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "No documents.\n", h.mustRun("documents", "list"))

	h.mustRun("documents", "add", writeSource(t, "a.txt", "first"))
	h.clock.AddDays(1)
	h.mustRun("documents", "add", writeSource(t, "b.rtf", "second"))

	out := h.mustRun("documents", "list")
	assert.Equal(t,
		"[2] 2025-03-16 12:00  .rtf  b.rtf\n"+
			"[1] 2025-03-15 12:00  .txt  a.txt\n", out)

	var docs []store.Document
	h.runJSON(&docs, "documents", "list", "--limit", "1")
	require.Len(t, docs, 1)
	assert.Equal(t, "b.rtf", docs[0].Filename)
}

func TestDocumentsShow_NotFound(t *testing.T) {
	h := newHarness(t)
	res := h.run("documents", "show", "5")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "Error [NOT_FOUND]")
}
