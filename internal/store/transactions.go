package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/vault/internal/vaulterr"
)

// Kind is the direction of a transaction.
type Kind string

const (
	KindDebit  Kind = "debit"
	KindCredit Kind = "credit"
)

// Valid reports whether k is debit or credit.
func (k Kind) Valid() bool {
	return k == KindDebit || k == KindCredit
}

// CategoryOther absorbs empty and unknown transaction categories.
const CategoryOther = "Other"

// Categories lists the known transaction categories.
var Categories = []string{
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Bills & Utilities",
	"Healthcare",
	"Education",
	"Income",
	"Transfer",
	CategoryOther,
}

// NormalizeCategory maps a category onto Categories. Unknown or empty
// categories become CategoryOther.
func NormalizeCategory(category string) string {
	for _, c := range Categories {
		if c == category {
			return c
		}
	}
	return CategoryOther
}

// NewTransaction is the plaintext payload for AddTransaction. A zero
// Timestamp means now. Nil optional fields are stored as NULL.
type NewTransaction struct {
	Timestamp     time.Time
	Amount        float64
	Kind          Kind
	Category      string
	Merchant      *string
	Description   *string
	AccountNumber *string
	Tags          []string
}

// Transaction is a decrypted transaction row.
type Transaction struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Amount        float64   `json:"amount"`
	Kind          Kind      `json:"transaction_type"`
	Category      string    `json:"category"`
	Merchant      *string   `json:"merchant"`
	Description   *string   `json:"description"`
	AccountNumber *string   `json:"account_number"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransactionQuery filters GetTransactions. An empty Category matches all.
type TransactionQuery struct {
	Start    time.Time
	End      time.Time
	Category string
	Limit    int
}

// CategorySpend is one row of GetSpendingByCategory.
type CategorySpend struct {
	Category string  `json:"category" db:"category"`
	Total    float64 `json:"total" db:"total"`
	Count    int     `json:"count" db:"count"`
}

type transactionRow struct {
	ID            int64          `db:"id"`
	Timestamp     int64          `db:"timestamp"`
	Amount        float64        `db:"amount"`
	Kind          string         `db:"transaction_type"`
	Category      string         `db:"category"`
	Merchant      []byte         `db:"merchant_encrypted"`
	Description   []byte         `db:"description_encrypted"`
	AccountNumber []byte         `db:"account_number_encrypted"`
	Tags          sql.NullString `db:"tags"`
	CreatedAt     int64          `db:"created_at"`
}

const transactionColumns = `id, timestamp, amount, transaction_type, category,
	merchant_encrypted, description_encrypted, account_number_encrypted, tags, created_at`

// AddTransaction stores a transaction with its optional fields encrypted and
// records an add_transaction audit event in the same transaction.
func (s *Store) AddTransaction(ctx context.Context, t NewTransaction) (int64, error) {
	const op = "add transaction"
	if !t.Kind.Valid() {
		return 0, vaulterr.Validation(op, "transaction type %q must be debit or credit", t.Kind)
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return 0, vaulterr.Validation(op, "amount must be finite")
	}
	if !t.Timestamp.IsZero() {
		if err := validateTimestamp(op, "timestamp", t.Timestamp); err != nil {
			return 0, err
		}
	}
	category := NormalizeCategory(t.Category)

	merchant, err := s.sealOptional(t.Merchant)
	if err != nil {
		return 0, fmt.Errorf("%s: merchant: %w", op, err)
	}
	description, err := s.sealOptional(t.Description)
	if err != nil {
		return 0, fmt.Errorf("%s: description: %w", op, err)
	}
	account, err := s.sealOptional(t.AccountNumber)
	if err != nil {
		return 0, fmt.Errorf("%s: account number: %w", op, err)
	}
	tags, err := marshalTags(t.Tags)
	if err != nil {
		return 0, vaulterr.Validation(op, "%v", err)
	}

	now := s.now()
	ts := t.Timestamp
	if ts.IsZero() {
		ts = now
	}

	var id int64
	err = s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (timestamp, amount, transaction_type, category,
				merchant_encrypted, description_encrypted, account_number_encrypted, tags, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, toUnix(ts), t.Amount, string(t.Kind), category, merchant, description, account, tags, toUnix(now))
		if err != nil {
			return vaulterr.Storage(op, err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return vaulterr.Storage(op, fmt.Errorf("last insert id: %w", err))
		}
		_, err = s.appendAudit(ctx, tx, ActionAddTransaction, ModuleFinance, map[string]any{
			"transaction_id": id,
			"amount":         t.Amount,
			"category":       category,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetTransactions returns decrypted transactions in the query range, newest first.
func (s *Store) GetTransactions(ctx context.Context, q TransactionQuery) ([]Transaction, error) {
	const op = "get transactions"
	limit, err := resolveLimit(op, q.Limit, DefaultLimit)
	if err != nil {
		return nil, err
	}
	if err := validateRange(op, q.Start, q.End); err != nil {
		return nil, err
	}

	if _, err := s.Append(ctx, ActionReadTransactions, ModuleFinance, map[string]any{
		"start":    formatBound(q.Start),
		"end":      formatBound(q.End),
		"category": q.Category,
		"limit":    limit,
	}); err != nil {
		return nil, err
	}

	var f rangeFilter
	f.between("timestamp", q.Start, q.End)
	if q.Category != "" {
		f.equals("category", q.Category)
	}

	var rows []transactionRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT `+transactionColumns+` FROM transactions`+f.where()+` ORDER BY timestamp DESC, id DESC LIMIT ?`,
		append(f.args, limit)...)
	if err != nil {
		return nil, vaulterr.Storage(op, err)
	}

	txns := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := s.decodeTransaction(r)
		if err != nil {
			return nil, fmt.Errorf("%s: transaction %d: %w", op, r.ID, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// GetTransaction returns one decrypted transaction. found is false when no
// transaction has that id.
func (s *Store) GetTransaction(ctx context.Context, id int64) (txn Transaction, found bool, err error) {
	const op = "get transaction"
	if _, err := s.Append(ctx, ActionReadTransaction, ModuleFinance, map[string]any{"transaction_id": id}); err != nil {
		return Transaction{}, false, err
	}

	var r transactionRow
	err = s.db.GetContext(ctx, &r, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Transaction{}, false, nil
	}
	if err != nil {
		return Transaction{}, false, vaulterr.Storage(op, err)
	}

	txn, err = s.decodeTransaction(r)
	if err != nil {
		return Transaction{}, false, fmt.Errorf("%s: transaction %d: %w", op, id, err)
	}
	return txn, true, nil
}

// GetSpendingByCategory sums debit amounts per category within [start, end],
// largest total first. Credits are excluded.
func (s *Store) GetSpendingByCategory(ctx context.Context, start, end time.Time) ([]CategorySpend, error) {
	const op = "get spending by category"
	if start.IsZero() || end.IsZero() {
		return nil, vaulterr.Validation(op, "start and end are required")
	}
	if err := validateRange(op, start, end); err != nil {
		return nil, err
	}

	if _, err := s.Append(ctx, ActionReadSpending, ModuleFinance, map[string]any{
		"start": formatBound(start),
		"end":   formatBound(end),
	}); err != nil {
		return nil, err
	}

	spend := []CategorySpend{}
	err := s.db.SelectContext(ctx, &spend, `
		SELECT category, SUM(amount) AS total, COUNT(*) AS count
		FROM transactions
		WHERE transaction_type = ? AND timestamp BETWEEN ? AND ?
		GROUP BY category
		ORDER BY total DESC, category ASC
	`, string(KindDebit), toUnix(start), toUnix(end))
	if err != nil {
		return nil, vaulterr.Storage(op, err)
	}
	return spend, nil
}

func (s *Store) decodeTransaction(r transactionRow) (Transaction, error) {
	merchant, err := s.unsealOptional(r.Merchant)
	if err != nil {
		return Transaction{}, err
	}
	description, err := s.unsealOptional(r.Description)
	if err != nil {
		return Transaction{}, err
	}
	account, err := s.unsealOptional(r.AccountNumber)
	if err != nil {
		return Transaction{}, err
	}
	tags, err := unmarshalTags(r.Tags)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:            r.ID,
		Timestamp:     fromUnix(r.Timestamp),
		Amount:        r.Amount,
		Kind:          Kind(r.Kind),
		Category:      r.Category,
		Merchant:      merchant,
		Description:   description,
		AccountNumber: account,
		Tags:          tags,
		CreatedAt:     fromUnix(r.CreatedAt),
	}, nil
}
