package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/vault/internal/crypt"
	"github.com/roach88/vault/internal/testutil"
)

var ctx = context.Background()

var testEpoch = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

// createTestStore opens a store in a temp dir with a fixed key and a
// controllable clock.
func createTestStore(t *testing.T, opts ...Option) (*Store, *testutil.Clock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	return openTestStore(t, path, 1, opts...)
}

// openTestStore opens path with the key derived from seed.
func openTestStore(t *testing.T, path string, seed byte, opts ...Option) (*Store, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(testEpoch)
	s, err := Open(path, newTestCodec(t, seed), append([]Option{
		WithClock(clock.Now),
		WithLogger(quietLogger()),
	}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func newTestCodec(t *testing.T, seed byte) *crypt.Codec {
	t.Helper()
	codec, err := crypt.New(testutil.Key(seed))
	require.NoError(t, err)
	return codec
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func strPtr(s string) *string { return &s }

func sampleEntry(content string) NewJournalEntry {
	return NewJournalEntry{Content: content, Sentiment: 0.5, Mood: MoodPositive}
}
