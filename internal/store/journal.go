package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/vault/internal/vaulterr"
)

// Mood is the plaintext mood category stored beside each journal entry.
type Mood string

const (
	MoodVeryNegative Mood = "very_negative"
	MoodNegative     Mood = "negative"
	MoodNeutral      Mood = "neutral"
	MoodPositive     Mood = "positive"
	MoodVeryPositive Mood = "very_positive"
)

// Moods lists every valid mood, most negative first.
var Moods = []Mood{MoodVeryNegative, MoodNegative, MoodNeutral, MoodPositive, MoodVeryPositive}

// Valid reports whether m is one of Moods.
func (m Mood) Valid() bool {
	for _, v := range Moods {
		if m == v {
			return true
		}
	}
	return false
}

// NewJournalEntry is the plaintext payload for AddJournalEntry. Sentiment
// and Mood come from an external classifier and are always set together.
type NewJournalEntry struct {
	Content   string
	Sentiment float64
	Mood      Mood
	Tags      []string
}

// JournalEntry is a decrypted journal row.
type JournalEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	Sentiment float64   `json:"sentiment_score"`
	Mood      Mood      `json:"mood_category"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// JournalQuery filters GetJournalEntries. Zero bounds are open; a zero Limit
// means DefaultLimit.
type JournalQuery struct {
	Start time.Time
	End   time.Time
	Limit int
}

// MoodStat is the per-mood aggregate returned by GetMoodStatistics.
type MoodStat struct {
	Mood         Mood    `json:"mood_category" db:"mood_category"`
	Count        int     `json:"count" db:"count"`
	AvgSentiment float64 `json:"avg_sentiment" db:"avg_sentiment"`
}

// MoodStatistics groups mood aggregates over the last PeriodDays.
type MoodStatistics struct {
	PeriodDays int        `json:"period_days"`
	Statistics []MoodStat `json:"statistics"`
}

type journalRow struct {
	ID        int64          `db:"id"`
	Timestamp int64          `db:"timestamp"`
	Content   []byte         `db:"content_encrypted"`
	Sentiment float64        `db:"sentiment_score"`
	Mood      string         `db:"mood_category"`
	Tags      sql.NullString `db:"tags"`
	CreatedAt int64          `db:"created_at"`
}

const journalColumns = `id, timestamp, content_encrypted, sentiment_score, mood_category, tags, created_at`

func validateJournalEntry(op string, e NewJournalEntry) error {
	if strings.TrimSpace(e.Content) == "" {
		return vaulterr.Validation(op, "content must not be empty")
	}
	if !e.Mood.Valid() {
		return vaulterr.Validation(op, "mood %q is not one of %v", e.Mood, Moods)
	}
	if math.IsNaN(e.Sentiment) || e.Sentiment < -1 || e.Sentiment > 1 {
		return vaulterr.Validation(op, "sentiment score must be within [-1, 1], got %v", e.Sentiment)
	}
	return nil
}

// AddJournalEntry encrypts the entry content, stores the entry stamped with
// the current time and records an add_entry audit event in the same
// transaction. Returns the new entry id.
func (s *Store) AddJournalEntry(ctx context.Context, e NewJournalEntry) (int64, error) {
	const op = "add journal entry"
	if err := validateJournalEntry(op, e); err != nil {
		return 0, err
	}

	content, err := s.seal(e.Content)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	tags, err := marshalTags(e.Tags)
	if err != nil {
		return 0, vaulterr.Validation(op, "%v", err)
	}

	now := toUnix(s.now())
	var id int64
	err = s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO journal_entries (timestamp, content_encrypted, sentiment_score, mood_category, tags, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, now, content, e.Sentiment, string(e.Mood), tags, now)
		if err != nil {
			return vaulterr.Storage(op, err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return vaulterr.Storage(op, fmt.Errorf("last insert id: %w", err))
		}
		_, err = s.appendAudit(ctx, tx, ActionAddEntry, ModuleJournal, map[string]any{
			"entry_id": id,
			"length":   len(e.Content),
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetJournalEntries returns decrypted entries in the query range, newest first.
func (s *Store) GetJournalEntries(ctx context.Context, q JournalQuery) ([]JournalEntry, error) {
	const op = "get journal entries"
	limit, err := resolveLimit(op, q.Limit, DefaultLimit)
	if err != nil {
		return nil, err
	}
	if err := validateRange(op, q.Start, q.End); err != nil {
		return nil, err
	}

	if _, err := s.Append(ctx, ActionReadEntries, ModuleJournal, map[string]any{
		"start": formatBound(q.Start),
		"end":   formatBound(q.End),
		"limit": limit,
	}); err != nil {
		return nil, err
	}

	var f rangeFilter
	f.between("timestamp", q.Start, q.End)

	var rows []journalRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT `+journalColumns+` FROM journal_entries`+f.where()+` ORDER BY timestamp DESC, id DESC LIMIT ?`,
		append(f.args, limit)...)
	if err != nil {
		return nil, vaulterr.Storage(op, err)
	}

	entries := make([]JournalEntry, 0, len(rows))
	for _, r := range rows {
		entry, err := s.decodeJournal(r)
		if err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", op, r.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetJournalEntry returns one decrypted entry. found is false when no entry
// has that id.
func (s *Store) GetJournalEntry(ctx context.Context, id int64) (entry JournalEntry, found bool, err error) {
	const op = "get journal entry"
	if _, err := s.Append(ctx, ActionReadEntry, ModuleJournal, map[string]any{"entry_id": id}); err != nil {
		return JournalEntry{}, false, err
	}

	var r journalRow
	err = s.db.GetContext(ctx, &r, `SELECT `+journalColumns+` FROM journal_entries WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return JournalEntry{}, false, nil
	}
	if err != nil {
		return JournalEntry{}, false, vaulterr.Storage(op, err)
	}

	entry, err = s.decodeJournal(r)
	if err != nil {
		return JournalEntry{}, false, fmt.Errorf("%s: entry %d: %w", op, id, err)
	}
	return entry, true, nil
}

// GetMoodStatistics counts entries and averages sentiment per mood over the
// last days. Moods with no entries are omitted.
func (s *Store) GetMoodStatistics(ctx context.Context, days int) (MoodStatistics, error) {
	const op = "get mood statistics"
	if days <= 0 {
		return MoodStatistics{}, vaulterr.Validation(op, "days must be positive, got %d", days)
	}

	if _, err := s.Append(ctx, ActionReadMoodStats, ModuleJournal, map[string]any{"days": days}); err != nil {
		return MoodStatistics{}, err
	}

	stats := []MoodStat{}
	err := s.db.SelectContext(ctx, &stats, `
		SELECT mood_category, COUNT(*) AS count, AVG(sentiment_score) AS avg_sentiment
		FROM journal_entries
		WHERE timestamp >= ?
		GROUP BY mood_category
		ORDER BY count DESC, mood_category ASC
	`, toUnix(s.now().AddDate(0, 0, -days)))
	if err != nil {
		return MoodStatistics{}, vaulterr.Storage(op, err)
	}

	return MoodStatistics{PeriodDays: days, Statistics: stats}, nil
}

func (s *Store) decodeJournal(r journalRow) (JournalEntry, error) {
	content, err := s.unseal(r.Content)
	if err != nil {
		return JournalEntry{}, err
	}
	tags, err := unmarshalTags(r.Tags)
	if err != nil {
		return JournalEntry{}, err
	}
	return JournalEntry{
		ID:        r.ID,
		Timestamp: fromUnix(r.Timestamp),
		Content:   content,
		Sentiment: r.Sentiment,
		Mood:      Mood(r.Mood),
		Tags:      tags,
		CreatedAt: fromUnix(r.CreatedAt),
	}, nil
}
