package store

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/vault/internal/vaulterr"
)

// TagCount is the number of journal entries carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// GetAllTags returns every journal tag with its usage count, most used
// first, ties broken alphabetically.
func (s *Store) GetAllTags(ctx context.Context) ([]TagCount, error) {
	return s.tagCounts(ctx, "get all tags", 0)
}

// GetPopularTags returns the n most used journal tags.
func (s *Store) GetPopularTags(ctx context.Context, n int) ([]TagCount, error) {
	const op = "get popular tags"
	if n <= 0 {
		return nil, vaulterr.Validation(op, "n must be positive, got %d", n)
	}
	return s.tagCounts(ctx, op, n)
}

// tagCounts aggregates the plaintext tags column. n <= 0 means no cap.
func (s *Store) tagCounts(ctx context.Context, op string, n int) ([]TagCount, error) {
	if _, err := s.Append(ctx, ActionReadTags, ModuleJournal, map[string]any{"limit": n}); err != nil {
		return nil, err
	}

	var raw []sql.NullString
	if err := s.db.SelectContext(ctx, &raw, `SELECT tags FROM journal_entries WHERE tags IS NOT NULL`); err != nil {
		return nil, vaulterr.Storage(op, err)
	}

	counts := make(map[string]int)
	for _, r := range raw {
		tags, err := unmarshalTags(r)
		if err != nil {
			return nil, vaulterr.Storage(op, fmt.Errorf("decode tags: %w", err))
		}
		// A tag repeated within one entry counts once.
		for _, t := range slices.Compact(slices.Sorted(slices.Values(tags))) {
			counts[t]++
		}
	}

	result := make([]TagCount, 0, len(counts))
	for _, t := range slices.Sorted(maps.Keys(counts)) {
		result = append(result, TagCount{Tag: t, Count: counts[t]})
	}
	slices.SortStableFunc(result, func(a, b TagCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result, nil
}
