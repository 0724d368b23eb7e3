package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vault/internal/search"
	"github.com/roach88/vault/internal/store"
)

func seedAll(t *testing.T, h *cliHarness) {
	seedJournal(h)
	seedFinance(h)
	h.mustRun("documents", "add", writeSource(t, "trip.txt", "Train tickets for the river cruise"),
		"--summary", "Holiday plans")
}

func TestSearch_Query(t *testing.T) {
	h := newHarness(t)
	seedAll(t, h)

	var results search.Results
	h.runJSON(&results, "search", "RIVER")
	require.Len(t, results.Journal, 1)
	assert.Equal(t, "Long walk by the river", results.Journal[0].Content)
	assert.Empty(t, results.Transactions)
	require.Len(t, results.Documents, 1)
	assert.Equal(t, "trip.txt", results.Documents[0].Filename)

	out := h.mustRun("search", "river")
	assert.Contains(t, out, `2 results for "river"`)
	assert.Contains(t, out, "=== Journal (1) ===")
	assert.Contains(t, out, "=== Transactions (0) ===")
	assert.Contains(t, out, "trip.txt - Holiday plans")
}

func TestSearch_Merchant(t *testing.T) {
	h := newHarness(t)
	seedAll(t, h)

	var results search.Results
	h.runJSON(&results, "search", "cafe")
	require.Len(t, results.Transactions, 1)
	require.NotNil(t, results.Transactions[0].Merchant)
	assert.Equal(t, "Corner Cafe", *results.Transactions[0].Merchant)
}

func TestSearch_Tag(t *testing.T) {
	h := newHarness(t)
	seedAll(t, h)

	var entries []store.JournalEntry
	h.runJSON(&entries, "search", "--tag", "Work")
	require.Len(t, entries, 1)
	assert.Equal(t, "Deadline week at work", entries[0].Content)
}

func TestSearch_Category(t *testing.T) {
	h := newHarness(t)
	seedAll(t, h)

	var txns []store.Transaction
	h.runJSON(&txns, "search", "--category", "Food & Dining")
	assert.Len(t, txns, 2)

	out := h.mustRun("search", "--category", "Transportation")
	assert.Contains(t, out, "City Transit")
}

func TestSearch_DateRange(t *testing.T) {
	h := newHarness(t)
	seedAll(t, h)

	var results search.Results
	h.runJSON(&results, "search", "--start", "2025-03-01", "--end", "2025-03-05")
	assert.Empty(t, results.Journal)
	assert.Len(t, results.Transactions, 3)
	assert.Empty(t, results.Documents)

	// Without --end the range runs until now.
	h.runJSON(&results, "search", "--start", "2025-03-15")
	assert.Len(t, results.Journal, 2)
	assert.Len(t, results.Documents, 1)
	assert.Empty(t, results.Transactions)
}

func TestSearch_RequiresExactlyOneMode(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{
		{"search"},
		{"search", "river", "--tag", "work"},
		{"search", "--tag", "work", "--category", "Income"},
	} {
		res := h.run(args...)
		assert.Equal(t, ExitCommandError, res.code, "args %v", args)
		assert.Contains(t, res.stderr, "exactly one of")
	}
}
