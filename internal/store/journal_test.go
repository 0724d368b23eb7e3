package store

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vault/internal/vaulterr"
)

func TestAddJournalEntry_RoundTrip(t *testing.T) {
	s, _ := createTestStore(t)

	id, err := s.AddJournalEntry(ctx, NewJournalEntry{
		Content:   "Today was good",
		Sentiment: 0.6,
		Mood:      MoodPositive,
		Tags:      []string{"work", "gym"},
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	entries, err := s.GetJournalEntries(ctx, JournalQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Today was good", got.Content)
	assert.Equal(t, 0.6, got.Sentiment)
	assert.Equal(t, MoodPositive, got.Mood)
	assert.Equal(t, []string{"work", "gym"}, got.Tags)
	assert.Equal(t, testEpoch, got.Timestamp)
	assert.Equal(t, testEpoch, got.CreatedAt)
}

func TestAddJournalEntry_ContentIsEncryptedAtRest(t *testing.T) {
	s, _ := createTestStore(t)
	_, err := s.AddJournalEntry(ctx, sampleEntry("Today was good"))
	require.NoError(t, err)

	var raw []byte
	require.NoError(t, s.db.Get(&raw, "SELECT content_encrypted FROM journal_entries"))
	assert.False(t, bytes.Contains(raw, []byte("Today was good")))
}

func TestAddJournalEntry_WritesOneAuditRow(t *testing.T) {
	s, _ := createTestStore(t)
	_, err := s.AddJournalEntry(ctx, sampleEntry("Today was good"))
	require.NoError(t, err)

	events, err := s.QueryAudit(ctx, ModuleJournal, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionAddEntry, events[0].ActionType)
	assert.Equal(t, float64(len("Today was good")), events[0].Details["length"])
	assert.NotContains(t, events[0].Details, "content")
}

func TestAddJournalEntry_Validation(t *testing.T) {
	tests := []struct {
		name  string
		entry NewJournalEntry
	}{
		{"empty content", NewJournalEntry{Content: "  ", Mood: MoodNeutral}},
		{"unknown mood", NewJournalEntry{Content: "x", Mood: "ecstatic"}},
		{"sentiment above range", NewJournalEntry{Content: "x", Mood: MoodNeutral, Sentiment: 1.5}},
		{"sentiment below range", NewJournalEntry{Content: "x", Mood: MoodNeutral, Sentiment: -1.01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := createTestStore(t)
			_, err := s.AddJournalEntry(ctx, tt.entry)
			assert.True(t, vaulterr.IsValidation(err), "got %v", err)
			assert.Equal(t, 0, countRows(t, s, "journal_entries"))
			assert.Equal(t, 0, countRows(t, s, "audit_log"))
		})
	}
}

func TestAddJournalEntry_SentimentBoundsInclusive(t *testing.T) {
	s, _ := createTestStore(t)
	for _, score := range []float64{-1, 1} {
		_, err := s.AddJournalEntry(ctx, NewJournalEntry{Content: "edge", Sentiment: score, Mood: MoodNeutral})
		assert.NoError(t, err)
	}
}

func TestGetJournalEntries_NewestFirstWithinRange(t *testing.T) {
	s, clock := createTestStore(t)
	for i, content := range []string{"first", "second", "third"} {
		clock.Set(testEpoch.AddDate(0, 0, i))
		_, err := s.AddJournalEntry(ctx, sampleEntry(content))
		require.NoError(t, err)
	}

	all, err := s.GetJournalEntries(ctx, JournalQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Content)
	assert.Equal(t, "first", all[2].Content)

	ranged, err := s.GetJournalEntries(ctx, JournalQuery{
		Start: testEpoch,
		End:   testEpoch.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "second", ranged[0].Content)
	assert.Equal(t, "first", ranged[1].Content)

	limited, err := s.GetJournalEntries(ctx, JournalQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "third", limited[0].Content)
}

func TestGetJournalEntries_SameTimestampOrdersByID(t *testing.T) {
	s, _ := createTestStore(t)
	first, err := s.AddJournalEntry(ctx, sampleEntry("a"))
	require.NoError(t, err)
	second, err := s.AddJournalEntry(ctx, sampleEntry("b"))
	require.NoError(t, err)

	entries, err := s.GetJournalEntries(ctx, JournalQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[0].ID)
	assert.Equal(t, first, entries[1].ID)
}

func TestGetJournalEntries_InvalidQuery(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.GetJournalEntries(ctx, JournalQuery{Limit: -1})
	assert.True(t, vaulterr.IsValidation(err))

	_, err = s.GetJournalEntries(ctx, JournalQuery{Start: testEpoch, End: testEpoch.Add(-time.Hour)})
	assert.True(t, vaulterr.IsValidation(err))

	_, err = s.GetJournalEntries(ctx, JournalQuery{Start: time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC)})
	assert.True(t, vaulterr.IsValidation(err))
	assert.Equal(t, 0, countRows(t, s, "audit_log"))
}

func TestGetJournalEntries_EmptyTagsReadAsEmptySlice(t *testing.T) {
	s, _ := createTestStore(t)
	id, err := s.AddJournalEntry(ctx, sampleEntry("no tags"))
	require.NoError(t, err)

	var tags *string
	require.NoError(t, s.db.Get(&tags, "SELECT tags FROM journal_entries WHERE id = ?", id))
	assert.Nil(t, tags, "absent tags must be stored as NULL")

	entry, found, err := s.GetJournalEntry(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotNil(t, entry.Tags)
	assert.Empty(t, entry.Tags)
}

func TestGetJournalEntry_NotFound(t *testing.T) {
	s, _ := createTestStore(t)

	_, found, err := s.GetJournalEntry(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)

	// The lookup itself is still audited.
	assert.Equal(t, 1, countRows(t, s, "audit_log"))
}

func TestGetJournalEntries_WrongKeyFailsWholeRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s1, _ := openTestStore(t, path, 1)
	_, err := s1.AddJournalEntry(ctx, sampleEntry("secret"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, _ := openTestStore(t, path, 2)
	entries, err := s2.GetJournalEntries(ctx, JournalQuery{})
	assert.True(t, vaulterr.IsDecryptionFailure(err), "got %v", err)
	assert.Nil(t, entries)
}

func TestGetMoodStatistics(t *testing.T) {
	s, clock := createTestStore(t)
	add := func(mood Mood, score float64) {
		t.Helper()
		_, err := s.AddJournalEntry(ctx, NewJournalEntry{Content: "x", Sentiment: score, Mood: mood})
		require.NoError(t, err)
	}

	clock.AddDays(-40)
	add(MoodVeryNegative, -0.9) // outside a 30 day window
	clock.Set(testEpoch)
	add(MoodPositive, 0.4)
	add(MoodPositive, 0.6)
	add(MoodNegative, -0.5)

	stats, err := s.GetMoodStatistics(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.PeriodDays)
	require.Len(t, stats.Statistics, 2)

	assert.Equal(t, MoodPositive, stats.Statistics[0].Mood)
	assert.Equal(t, 2, stats.Statistics[0].Count)
	assert.InDelta(t, 0.5, stats.Statistics[0].AvgSentiment, 1e-9)
	assert.Equal(t, MoodNegative, stats.Statistics[1].Mood)
	assert.Equal(t, 1, stats.Statistics[1].Count)

	_, err = s.GetMoodStatistics(ctx, 0)
	assert.True(t, vaulterr.IsValidation(err))
}
