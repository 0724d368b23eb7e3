package store

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/vault/internal/vaulterr"
)

// Category names a retention window.
type Category string

const (
	RetainJournal   Category = "journal"
	RetainFinance   Category = "finance"
	RetainDocuments Category = "documents"
	RetainAudit     Category = "audit_logs"
)

// purgeOrder fixes the order categories are purged and reported in.
var purgeOrder = []Category{RetainJournal, RetainFinance, RetainDocuments, RetainAudit}

// purgeTargets maps each category to the table and the timestamp column its
// window is measured against.
var purgeTargets = map[Category]struct{ table, column string }{
	RetainJournal:   {"journal_entries", "timestamp"},
	RetainFinance:   {"transactions", "timestamp"},
	RetainDocuments: {"documents", "processed_at"},
	RetainAudit:     {"audit_log", "timestamp"},
}

// Policy configures per-category retention windows in days. A window of 0
// keeps rows of that category forever.
type Policy struct {
	Enabled bool             `json:"enabled"`
	Windows map[Category]int `json:"windows"`
}

// DefaultPolicy returns the built-in windows with purging disabled.
func DefaultPolicy() Policy {
	return Policy{
		Enabled: false,
		Windows: map[Category]int{
			RetainJournal:   365,
			RetainFinance:   730,
			RetainDocuments: 180,
			RetainAudit:     90,
		},
	}
}

// Validate rejects unknown categories and negative windows.
func (p Policy) Validate() error {
	for _, c := range slices.Sorted(maps.Keys(p.Windows)) {
		if _, ok := purgeTargets[c]; !ok {
			return vaulterr.Validation("validate retention", "unknown retention category %q", c)
		}
		if p.Windows[c] < 0 {
			return vaulterr.Validation("validate retention", "retention window for %s must not be negative, got %d", c, p.Windows[c])
		}
	}
	return nil
}

// PurgeCount is the number of rows one category lost in a purge.
type PurgeCount struct {
	Category Category `json:"category"`
	Deleted  int64    `json:"deleted"`
}

// PurgeResult reports the rows deleted per category, in purge order.
type PurgeResult struct {
	Counts []PurgeCount `json:"counts"`
}

// Total returns the number of rows deleted across all categories.
func (r PurgeResult) Total() int64 {
	var n int64
	for _, c := range r.Counts {
		n += c.Deleted
	}
	return n
}

// Purge deletes every row strictly older than now minus its category's
// window. Categories without a positive window are skipped. All deletes run
// in one transaction; running Purge again without new writes deletes nothing.
// Purge ignores Policy.Enabled, callers decide whether to run it.
func (s *Store) Purge(ctx context.Context) (PurgeResult, error) {
	const op = "purge"
	now := s.now()

	var result PurgeResult
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		result = PurgeResult{}
		for _, c := range purgeOrder {
			days := s.retention.Windows[c]
			if days <= 0 {
				continue
			}
			target := purgeTargets[c]
			cutoff := toUnix(now.AddDate(0, 0, -days))
			res, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE %s < ?", target.table, target.column), cutoff)
			if err != nil {
				return vaulterr.Storage(op, fmt.Errorf("%s: %w", c, err))
			}
			n, err := res.RowsAffected()
			if err != nil {
				return vaulterr.Storage(op, fmt.Errorf("%s rows affected: %w", c, err))
			}
			result.Counts = append(result.Counts, PurgeCount{Category: c, Deleted: n})
		}
		return nil
	})
	if err != nil {
		return PurgeResult{}, err
	}

	for _, c := range result.Counts {
		s.logger.Info("retention purge", "category", string(c.Category), "deleted", c.Deleted)
	}
	return result, nil
}
