package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vault/internal/crypt"
	"github.com/roach88/vault/internal/store"
	"github.com/roach88/vault/internal/testutil"
	"github.com/roach88/vault/internal/vaulterr"
)

var (
	ctx   = context.Background()
	epoch = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
)

func strPtr(s string) *string { return &s }

func newTestStore(t *testing.T) (*store.Store, *testutil.Clock) {
	t.Helper()
	codec, err := crypt.New(testutil.Key(1))
	require.NoError(t, err)
	clock := testutil.NewClock(epoch)
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), codec,
		store.WithClock(clock.Now),
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

// seed writes a small mixed data set and returns the store.
func seed(t *testing.T) *store.Store {
	t.Helper()
	s, clock := newTestStore(t)

	clock.Set(epoch.AddDate(0, 0, -10))
	_, err := s.AddJournalEntry(ctx, store.NewJournalEntry{
		Content: "Long walk by the river", Sentiment: 0.7, Mood: store.MoodPositive, Tags: []string{"Outdoors"},
	})
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, store.NewTransaction{
		Amount: 12, Kind: store.KindDebit, Category: "Food & Dining", Merchant: strPtr("River Cafe"),
	})
	require.NoError(t, err)

	clock.Set(epoch)
	_, err = s.AddJournalEntry(ctx, store.NewJournalEntry{
		Content: "Stressful deadline", Sentiment: -0.4, Mood: store.MoodNegative, Tags: []string{"work"},
	})
	require.NoError(t, err)
	_, err = s.AddTransaction(ctx, store.NewTransaction{Amount: 40, Kind: store.KindDebit, Category: "Transportation"})
	require.NoError(t, err)
	_, err = s.AddDocument(ctx, store.NewDocument{
		Filename: "notes.txt", Filepath: "/tmp/notes.txt", Content: "meeting notes", FileType: ".txt",
		Entities: []string{"Riverside Ltd"},
	})
	require.NoError(t, err)
	return s
}

func TestAll_MatchesAcrossModules(t *testing.T) {
	s := seed(t)

	results, err := New(s).All(ctx, "RIVER", 0)
	require.NoError(t, err)

	require.Len(t, results.Journal, 1)
	assert.Equal(t, "Long walk by the river", results.Journal[0].Content)
	require.Len(t, results.Transactions, 1)
	assert.Equal(t, strPtr("River Cafe"), results.Transactions[0].Merchant)
	require.Len(t, results.Documents, 1)
	assert.Equal(t, "notes.txt", results.Documents[0].Filename)
	assert.Equal(t, 3, results.Total())
}

func TestAll_MatchesMoodTagsAndCategory(t *testing.T) {
	s := seed(t)
	searcher := New(s)

	results, err := searcher.All(ctx, "negative", 0)
	require.NoError(t, err)
	assert.Len(t, results.Journal, 1)

	results, err = searcher.All(ctx, "outdoors", 0)
	require.NoError(t, err)
	assert.Len(t, results.Journal, 1)

	results, err = searcher.All(ctx, "transport", 0)
	require.NoError(t, err)
	assert.Len(t, results.Transactions, 1)
	assert.Empty(t, results.Journal)
	assert.NotNil(t, results.Journal)
}

func TestAll_LimitPerModule(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 5; i++ {
		_, err := s.AddJournalEntry(ctx, store.NewJournalEntry{Content: "same words", Mood: store.MoodNeutral})
		require.NoError(t, err)
	}

	results, err := New(s).All(ctx, "words", 2)
	require.NoError(t, err)
	assert.Len(t, results.Journal, 2)
}

func TestAll_Validation(t *testing.T) {
	s, _ := newTestStore(t)
	searcher := New(s)

	_, err := searcher.All(ctx, " ", 0)
	assert.True(t, vaulterr.IsValidation(err))
	_, err = searcher.All(ctx, "x", -1)
	assert.True(t, vaulterr.IsValidation(err))
}

func TestByTag_CaseInsensitive(t *testing.T) {
	s := seed(t)

	entries, err := New(s).ByTag(ctx, "outdoors")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"Outdoors"}, entries[0].Tags)
}

func TestByCategory_NormalizesUnknown(t *testing.T) {
	s := seed(t)
	searcher := New(s)

	food, err := searcher.ByCategory(ctx, "Food & Dining")
	require.NoError(t, err)
	assert.Len(t, food, 1)

	other, err := searcher.ByCategory(ctx, "Crypto")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestByDate(t *testing.T) {
	s := seed(t)

	results, err := New(s).ByDate(ctx, epoch.AddDate(0, 0, -1), epoch)
	require.NoError(t, err)
	assert.Len(t, results.Journal, 1)
	assert.Len(t, results.Transactions, 1)
	assert.Len(t, results.Documents, 1)

	_, err = New(s).ByDate(ctx, time.Time{}, epoch)
	assert.True(t, vaulterr.IsValidation(err))
}

type failingReader struct{ err error }

func (f failingReader) GetJournalEntries(context.Context, store.JournalQuery) ([]store.JournalEntry, error) {
	return nil, f.err
}

func (f failingReader) GetTransactions(context.Context, store.TransactionQuery) ([]store.Transaction, error) {
	return nil, f.err
}

func (f failingReader) GetDocuments(context.Context, store.DocumentQuery) ([]store.Document, error) {
	return nil, f.err
}

func TestAll_PropagatesReadErrors(t *testing.T) {
	want := vaulterr.Decryption("get journal entries", "authentication failed", errors.New("boom"))

	_, err := New(failingReader{err: want}).All(ctx, "x", 0)
	assert.True(t, vaulterr.IsDecryptionFailure(err))
}
