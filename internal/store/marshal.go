package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roach88/vault/internal/vaulterr"
)

const (
	// DefaultLimit caps journal and transaction reads when no limit is given.
	DefaultLimit = 100

	// DefaultDocumentLimit caps document reads when no limit is given.
	DefaultDocumentLimit = 50
)

// toUnix converts a timestamp to its stored form.
func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

// Stored timestamps are int64 nanoseconds, which only cover these instants.
var (
	minStoredTime = time.Unix(0, math.MinInt64)
	maxStoredTime = time.Unix(0, math.MaxInt64)
)

// validateTimestamp rejects times that cannot be stored as unix nanoseconds.
func validateTimestamp(op, field string, t time.Time) error {
	if t.Before(minStoredTime) || t.After(maxStoredTime) {
		return vaulterr.Validation(op, "%s %s is outside the storable range %s to %s", field,
			t.UTC().Format(time.RFC3339), minStoredTime.UTC().Format(time.RFC3339), maxStoredTime.UTC().Format(time.RFC3339))
	}
	return nil
}

// fromUnix converts a stored timestamp back to a UTC time.
func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// formatBound renders an optional range bound for audit details.
func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// marshalTags converts tags to JSON TEXT, or NULL when there are none.
func marshalTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

// unmarshalTags parses JSON TEXT to tags. NULL yields an empty, non-nil slice.
func unmarshalTags(data sql.NullString) ([]string, error) {
	if !data.Valid || data.String == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(data.String), &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// seal encrypts a required sensitive field.
func (s *Store) seal(plaintext string) ([]byte, error) {
	token, err := s.cipher.Encrypt([]byte(plaintext))
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return token, nil
}

// sealOptional encrypts an optional sensitive field. An absent field binds
// as SQL NULL, never as an encrypted empty value.
func (s *Store) sealOptional(plaintext *string) (any, error) {
	if plaintext == nil {
		return nil, nil
	}
	return s.seal(*plaintext)
}

// unseal decrypts a required sensitive field.
func (s *Store) unseal(token []byte) (string, error) {
	plaintext, err := s.cipher.Decrypt(token)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// unsealOptional decrypts an optional sensitive field; NULL yields nil.
func (s *Store) unsealOptional(token []byte) (*string, error) {
	if len(token) == 0 {
		return nil, nil
	}
	plaintext, err := s.unseal(token)
	if err != nil {
		return nil, err
	}
	return &plaintext, nil
}

// resolveLimit applies the default for 0 and rejects negative limits.
func resolveLimit(op string, limit, def int) (int, error) {
	switch {
	case limit < 0:
		return 0, vaulterr.Validation(op, "limit must not be negative, got %d", limit)
	case limit == 0:
		return def, nil
	default:
		return limit, nil
	}
}

// rangeFilter accumulates WHERE clauses for optional time bounds and
// equality filters on plaintext columns.
type rangeFilter struct {
	clauses []string
	args    []any
}

func (f *rangeFilter) between(column string, start, end time.Time) {
	if !start.IsZero() {
		f.clauses = append(f.clauses, column+" >= ?")
		f.args = append(f.args, toUnix(start))
	}
	if !end.IsZero() {
		f.clauses = append(f.clauses, column+" <= ?")
		f.args = append(f.args, toUnix(end))
	}
}

func (f *rangeFilter) equals(column string, value any) {
	f.clauses = append(f.clauses, column+" = ?")
	f.args = append(f.args, value)
}

func (f *rangeFilter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// validateRange rejects a start bound after the end bound.
func validateRange(op string, start, end time.Time) error {
	if !start.IsZero() {
		if err := validateTimestamp(op, "start", start); err != nil {
			return err
		}
	}
	if !end.IsZero() {
		if err := validateTimestamp(op, "end", end); err != nil {
			return err
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return vaulterr.Validation(op, "start %s is after end %s", formatBound(start), formatBound(end))
	}
	return nil
}
