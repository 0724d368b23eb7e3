package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vault/internal/store"
)

func TestFavorites(t *testing.T) {
	h := newHarness(t)
	h.mustRun("journal", "add", "keep this")

	assert.Equal(t, "journal 1 is not a favorite\n", h.mustRun("favorites", "check", "journal", "1"))
	assert.Equal(t, "Marked journal 1 as favorite\n", h.mustRun("favorites", "add", "journal", "1"))
	// Marking twice is a no-op.
	h.mustRun("favorites", "add", "journal", "1")
	assert.Equal(t, "journal 1 is a favorite\n", h.mustRun("favorites", "check", "journal", "1"))

	h.clock.AddDays(1)
	h.mustRun("favorites", "add", "finance", "7")

	var favs []store.Favorite
	h.runJSON(&favs, "favorites", "list")
	require.Len(t, favs, 2)
	assert.Equal(t, "finance", favs[0].Module)
	assert.Equal(t, int64(7), favs[0].ItemID)

	h.runJSON(&favs, "favorites", "list", "--module", "journal")
	require.Len(t, favs, 1)

	assert.Equal(t, "Unmarked journal 1\n", h.mustRun("favorites", "remove", "journal", "1"))
	res := h.run("favorites", "remove", "journal", "1")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "is not a favorite")
}

func TestFavorites_InvalidModule(t *testing.T) {
	h := newHarness(t)
	res := h.run("favorites", "add", "photos", "1")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "Error [VALIDATION]")
}

func TestFavorites_EmptyList(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "No favorites.\n", h.mustRun("favorites", "list"))
}
