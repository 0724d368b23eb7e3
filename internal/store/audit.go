package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/roach88/vault/internal/vaulterr"
)

// Modules that own audited entity kinds.
const (
	ModuleJournal   = "journal"
	ModuleFinance   = "finance"
	ModuleDocuments = "documents"
)

// Audit action types.
const (
	ActionAddEntry         = "add_entry"
	ActionReadEntries      = "read_entries"
	ActionReadEntry        = "read_entry"
	ActionReadMoodStats    = "read_mood_statistics"
	ActionReadTags         = "read_tags"
	ActionAddTransaction   = "add_transaction"
	ActionReadTransactions = "read_transactions"
	ActionReadTransaction  = "read_transaction"
	ActionReadSpending     = "read_spending"
	ActionReadBudgetStatus = "read_budget_status"
	ActionAddDocument      = "add_document"
	ActionReadDocuments    = "read_documents"
	ActionReadDocument     = "read_document"
)

const recentAuditEventsInReport = 10

// AuditEvent is one decrypted audit log row.
type AuditEvent struct {
	ID         int64          `json:"id"`
	ActionType string         `json:"action_type"`
	Module     string         `json:"module"`
	Details    map[string]any `json:"details"`
	Timestamp  time.Time      `json:"timestamp"`
}

// AuditReport summarizes audit activity over a period.
type AuditReport struct {
	PeriodDays  int            `json:"period_days"`
	TotalEvents int            `json:"total_events"`
	ByModule    map[string]int `json:"by_module"`
	ByAction    map[string]int `json:"by_action"`
	Recent      []AuditEvent   `json:"recent_events"`
}

type auditRow struct {
	ID         int64  `db:"id"`
	ActionType string `db:"action_type"`
	Module     string `db:"module"`
	Details    []byte `db:"details_encrypted"`
	Timestamp  int64  `db:"timestamp"`
}

// execer is satisfied by both *sqlx.DB and *sqlx.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Append records one audit event with encrypted details and returns its id.
// Audit rows are never updated; only the retention purge deletes them.
func (s *Store) Append(ctx context.Context, action, module string, details map[string]any) (int64, error) {
	return s.appendAudit(ctx, s.db, action, module, details)
}

func (s *Store) appendAudit(ctx context.Context, ex execer, action, module string, details map[string]any) (int64, error) {
	const op = "append audit"
	if action == "" {
		return 0, vaulterr.Validation(op, "action type must not be empty")
	}
	if module == "" {
		return 0, vaulterr.Validation(op, "module must not be empty")
	}

	payload := make(map[string]any, len(details)+1)
	maps.Copy(payload, details)
	payload["session"] = s.session

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, vaulterr.Validation(op, "details are not JSON-encodable: %v", err)
	}
	token, err := s.cipher.Encrypt(data)
	if err != nil {
		return 0, fmt.Errorf("%s: encrypt details: %w", op, err)
	}

	result, err := ex.ExecContext(ctx, `
		INSERT INTO audit_log (action_type, module, details_encrypted, timestamp)
		VALUES (?, ?, ?, ?)
	`, action, module, token, toUnix(s.now()))
	if err != nil {
		return 0, vaulterr.Storage(op, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, vaulterr.Storage(op, fmt.Errorf("last insert id: %w", err))
	}
	return id, nil
}

// QueryAudit returns audit events from the last days, newest first, with
// details decrypted. An empty module matches every module.
func (s *Store) QueryAudit(ctx context.Context, module string, days int) ([]AuditEvent, error) {
	const op = "query audit"
	if days <= 0 {
		return nil, vaulterr.Validation(op, "days must be positive, got %d", days)
	}

	var f rangeFilter
	f.between("timestamp", s.now().AddDate(0, 0, -days), time.Time{})
	if module != "" {
		f.equals("module", module)
	}

	var rows []auditRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, action_type, module, details_encrypted, timestamp
		FROM audit_log`+f.where()+`
		ORDER BY timestamp DESC, id DESC
	`, f.args...)
	if err != nil {
		return nil, vaulterr.Storage(op, err)
	}

	events := make([]AuditEvent, 0, len(rows))
	for _, r := range rows {
		ev, err := s.decodeAudit(r)
		if err != nil {
			return nil, fmt.Errorf("%s: event %d: %w", op, r.ID, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// AuditReport aggregates the events of the last days by module and action
// and includes the most recent ones.
func (s *Store) AuditReport(ctx context.Context, days int) (AuditReport, error) {
	events, err := s.QueryAudit(ctx, "", days)
	if err != nil {
		return AuditReport{}, err
	}

	report := AuditReport{
		PeriodDays:  days,
		TotalEvents: len(events),
		ByModule:    make(map[string]int),
		ByAction:    make(map[string]int),
	}
	for _, ev := range events {
		report.ByModule[ev.Module]++
		report.ByAction[ev.ActionType]++
	}
	report.Recent = events[:min(len(events), recentAuditEventsInReport)]
	return report, nil
}

func (s *Store) decodeAudit(r auditRow) (AuditEvent, error) {
	plaintext, err := s.cipher.Decrypt(r.Details)
	if err != nil {
		return AuditEvent{}, err
	}
	details := make(map[string]any)
	if err := json.Unmarshal(plaintext, &details); err != nil {
		return AuditEvent{}, fmt.Errorf("unmarshal details: %w", err)
	}
	return AuditEvent{
		ID:         r.ID,
		ActionType: r.ActionType,
		Module:     r.Module,
		Details:    details,
		Timestamp:  fromUnix(r.Timestamp),
	}, nil
}
