// Package search finds records across the journal, finance and document
// modules. Sensitive fields are encrypted at rest, so matching happens on
// decrypted records after a bounded read from the store.
package search

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/roach88/vault/internal/store"
	"github.com/roach88/vault/internal/vaulterr"
)

const (
	// DefaultLimit caps matches per module when no limit is given.
	DefaultLimit = 50

	// ScanLimit is how many of the newest records per module a search
	// decrypts and inspects.
	ScanLimit = 1000
)

// Reader is the subset of *store.Store that search reads through. Every
// call is audited by the store.
type Reader interface {
	GetJournalEntries(ctx context.Context, q store.JournalQuery) ([]store.JournalEntry, error)
	GetTransactions(ctx context.Context, q store.TransactionQuery) ([]store.Transaction, error)
	GetDocuments(ctx context.Context, q store.DocumentQuery) ([]store.Document, error)
}

// Results groups matches by module.
type Results struct {
	Journal      []store.JournalEntry `json:"journal"`
	Transactions []store.Transaction  `json:"transactions"`
	Documents    []store.Document     `json:"documents"`
}

// Total returns the number of matches across modules.
func (r Results) Total() int {
	return len(r.Journal) + len(r.Transactions) + len(r.Documents)
}

// Searcher runs searches against a Reader.
type Searcher struct {
	reader Reader
}

// New creates a Searcher.
func New(reader Reader) *Searcher {
	return &Searcher{reader: reader}
}

// All matches query case-insensitively against journal content, mood and
// tags, transaction category, merchant and description, and document
// filename, content, summary and entities. At most limit matches are
// returned per module; 0 means DefaultLimit.
func (s *Searcher) All(ctx context.Context, query string, limit int) (Results, error) {
	const op = "search"
	if strings.TrimSpace(query) == "" {
		return Results{}, vaulterr.Validation(op, "query must not be empty")
	}
	switch {
	case limit < 0:
		return Results{}, vaulterr.Validation(op, "limit must not be negative, got %d", limit)
	case limit == 0:
		limit = DefaultLimit
	}
	q := strings.ToLower(query)

	entries, err := s.reader.GetJournalEntries(ctx, store.JournalQuery{Limit: ScanLimit})
	if err != nil {
		return Results{}, err
	}
	txns, err := s.reader.GetTransactions(ctx, store.TransactionQuery{Limit: ScanLimit})
	if err != nil {
		return Results{}, err
	}
	docs, err := s.reader.GetDocuments(ctx, store.DocumentQuery{Limit: ScanLimit})
	if err != nil {
		return Results{}, err
	}

	return Results{
		Journal:      filter(entries, limit, func(e store.JournalEntry) bool { return journalMatches(e, q) }),
		Transactions: filter(txns, limit, func(t store.Transaction) bool { return transactionMatches(t, q) }),
		Documents:    filter(docs, limit, func(d store.Document) bool { return documentMatches(d, q) }),
	}, nil
}

// ByTag returns journal entries carrying tag, compared case-insensitively.
func (s *Searcher) ByTag(ctx context.Context, tag string) ([]store.JournalEntry, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, vaulterr.Validation("search by tag", "tag must not be empty")
	}
	entries, err := s.reader.GetJournalEntries(ctx, store.JournalQuery{Limit: ScanLimit})
	if err != nil {
		return nil, err
	}
	return filter(entries, ScanLimit, func(e store.JournalEntry) bool {
		return slices.ContainsFunc(e.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
	}), nil
}

// ByCategory returns transactions in category. The category is normalized
// the same way writes normalize it.
func (s *Searcher) ByCategory(ctx context.Context, category string) ([]store.Transaction, error) {
	return s.reader.GetTransactions(ctx, store.TransactionQuery{
		Category: store.NormalizeCategory(category),
		Limit:    ScanLimit,
	})
}

// ByDate returns every record of each module within [start, end]. Documents
// are matched on processed time.
func (s *Searcher) ByDate(ctx context.Context, start, end time.Time) (Results, error) {
	if start.IsZero() || end.IsZero() {
		return Results{}, vaulterr.Validation("search by date", "start and end are required")
	}

	entries, err := s.reader.GetJournalEntries(ctx, store.JournalQuery{Start: start, End: end, Limit: ScanLimit})
	if err != nil {
		return Results{}, err
	}
	txns, err := s.reader.GetTransactions(ctx, store.TransactionQuery{Start: start, End: end, Limit: ScanLimit})
	if err != nil {
		return Results{}, err
	}
	docs, err := s.reader.GetDocuments(ctx, store.DocumentQuery{Start: start, End: end, Limit: ScanLimit})
	if err != nil {
		return Results{}, err
	}
	return Results{Journal: entries, Transactions: txns, Documents: docs}, nil
}

func filter[T any](items []T, limit int, match func(T) bool) []T {
	out := []T{}
	for _, item := range items {
		if len(out) >= limit {
			break
		}
		if match(item) {
			out = append(out, item)
		}
	}
	return out
}

func contains(s, q string) bool {
	return strings.Contains(strings.ToLower(s), q)
}

func containsOptional(s *string, q string) bool {
	return s != nil && contains(*s, q)
}

func anyContains(values []string, q string) bool {
	return slices.ContainsFunc(values, func(v string) bool { return contains(v, q) })
}

func journalMatches(e store.JournalEntry, q string) bool {
	return contains(e.Content, q) || contains(string(e.Mood), q) || anyContains(e.Tags, q)
}

func transactionMatches(t store.Transaction, q string) bool {
	return contains(t.Category, q) || containsOptional(t.Merchant, q) || containsOptional(t.Description, q)
}

func documentMatches(d store.Document, q string) bool {
	return contains(d.Filename, q) || contains(d.Content, q) ||
		containsOptional(d.Summary, q) || anyContains(d.Entities, q)
}
