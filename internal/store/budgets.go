package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/vault/internal/vaulterr"
)

// DefaultAlertThreshold is the fraction of a budget at which an alert fires
// when no threshold is given.
const DefaultAlertThreshold = 0.9

// Budget is a monthly spending limit for one category.
type Budget struct {
	ID             int64     `json:"id"`
	Category       string    `json:"category"`
	MonthlyLimit   float64   `json:"monthly_limit"`
	AlertThreshold float64   `json:"alert_threshold"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BudgetStatus compares a budget with the debits of one calendar month.
type BudgetStatus struct {
	Budget    Budget    `json:"budget"`
	Month     time.Time `json:"month"`
	Spent     float64   `json:"spent"`
	Remaining float64   `json:"remaining"`
	Percent   float64   `json:"percent_used"`
	Alert     bool      `json:"alert"`
	Exceeded  bool      `json:"exceeded"`
}

type budgetRow struct {
	ID             int64   `db:"id"`
	Category       string  `db:"category"`
	MonthlyLimit   float64 `db:"monthly_limit"`
	AlertThreshold float64 `db:"alert_threshold"`
	CreatedAt      int64   `db:"created_at"`
	UpdatedAt      int64   `db:"updated_at"`
}

func (r budgetRow) budget() Budget {
	return Budget{
		ID:             r.ID,
		Category:       r.Category,
		MonthlyLimit:   r.MonthlyLimit,
		AlertThreshold: r.AlertThreshold,
		CreatedAt:      fromUnix(r.CreatedAt),
		UpdatedAt:      fromUnix(r.UpdatedAt),
	}
}

const budgetColumns = `id, category, monthly_limit, alert_threshold, created_at, updated_at`

// SetBudget creates or replaces the budget for category. A zero threshold
// means DefaultAlertThreshold. Any category is accepted, but transactions
// are only ever stored under one of Categories, so a budget for any other
// name sees no spending.
func (s *Store) SetBudget(ctx context.Context, category string, limit, threshold float64) error {
	const op = "set budget"
	if strings.TrimSpace(category) == "" {
		return vaulterr.Validation(op, "category must not be empty")
	}
	if math.IsNaN(limit) || math.IsInf(limit, 0) || limit <= 0 {
		return vaulterr.Validation(op, "monthly limit must be positive, got %v", limit)
	}
	if threshold == 0 {
		threshold = DefaultAlertThreshold
	}
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return vaulterr.Validation(op, "alert threshold must be within (0, 1], got %v", threshold)
	}

	if !slices.Contains(Categories, category) {
		s.logger.Debug("budget category matches no transaction category", "category", category)
	}

	now := toUnix(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (category, monthly_limit, alert_threshold, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			monthly_limit = excluded.monthly_limit,
			alert_threshold = excluded.alert_threshold,
			updated_at = excluded.updated_at
	`, category, limit, threshold, now, now)
	if err != nil {
		return vaulterr.Storage(op, err)
	}
	return nil
}

// GetBudget returns the budget for category. found is false when none is set.
func (s *Store) GetBudget(ctx context.Context, category string) (Budget, bool, error) {
	var r budgetRow
	err := s.db.GetContext(ctx, &r, `SELECT `+budgetColumns+` FROM budgets WHERE category = ?`, category)
	if errors.Is(err, sql.ErrNoRows) {
		return Budget{}, false, nil
	}
	if err != nil {
		return Budget{}, false, vaulterr.Storage("get budget", err)
	}
	return r.budget(), true, nil
}

// ListBudgets returns every budget ordered by category.
func (s *Store) ListBudgets(ctx context.Context) ([]Budget, error) {
	var rows []budgetRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+budgetColumns+` FROM budgets ORDER BY category`); err != nil {
		return nil, vaulterr.Storage("list budgets", err)
	}
	budgets := make([]Budget, 0, len(rows))
	for _, r := range rows {
		budgets = append(budgets, r.budget())
	}
	return budgets, nil
}

// GetBudgetStatus sums the category's debits in the calendar month containing
// month and compares them with its budget. found is false when the category
// has no budget.
func (s *Store) GetBudgetStatus(ctx context.Context, category string, month time.Time) (BudgetStatus, bool, error) {
	const op = "get budget status"
	budget, found, err := s.GetBudget(ctx, category)
	if err != nil || !found {
		return BudgetStatus{}, found, err
	}

	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	end := start.AddDate(0, 1, 0)

	if _, err := s.Append(ctx, ActionReadBudgetStatus, ModuleFinance, map[string]any{
		"category": category,
		"month":    start.Format("2006-01"),
	}); err != nil {
		return BudgetStatus{}, false, err
	}

	var amounts []float64
	err = s.db.SelectContext(ctx, &amounts, `
		SELECT amount FROM transactions
		WHERE transaction_type = ? AND category = ? AND timestamp >= ? AND timestamp < ?
	`, string(KindDebit), category, toUnix(start), toUnix(end))
	if err != nil {
		return BudgetStatus{}, false, vaulterr.Storage(op, err)
	}

	spent := decimal.Zero
	for _, a := range amounts {
		spent = spent.Add(decimal.NewFromFloat(a))
	}
	limit := decimal.NewFromFloat(budget.MonthlyLimit)
	alertAt := limit.Mul(decimal.NewFromFloat(budget.AlertThreshold))

	status := BudgetStatus{
		Budget:    budget,
		Month:     start,
		Spent:     spent.InexactFloat64(),
		Remaining: limit.Sub(spent).InexactFloat64(),
		Percent:   spent.Div(limit).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64(),
		Alert:     spent.GreaterThanOrEqual(alertAt),
		Exceeded:  spent.GreaterThan(limit),
	}
	return status, true, nil
}
