package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/vault/internal/vaulterr"
)

// FileTypes lists the accepted document extensions.
var FileTypes = []string{".txt", ".pdf", ".docx", ".doc", ".rtf"}

// NormalizeFileType lower-cases an extension and adds the leading dot.
func NormalizeFileType(fileType string) string {
	ft := strings.ToLower(strings.TrimSpace(fileType))
	if ft != "" && !strings.HasPrefix(ft, ".") {
		ft = "." + ft
	}
	return ft
}

// NewDocument is the plaintext payload for AddDocument. A zero ProcessedAt
// means now. Nil Summary and Entities are stored as NULL.
type NewDocument struct {
	Filename    string
	Filepath    string
	Content     string
	FileType    string
	Summary     *string
	Entities    []string
	ProcessedAt time.Time
}

// Document is a decrypted document row.
type Document struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	Filepath    string    `json:"filepath"`
	Content     string    `json:"content"`
	FileType    string    `json:"file_type"`
	Summary     *string   `json:"summary"`
	Entities    []string  `json:"entities"`
	ProcessedAt time.Time `json:"processed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// DocumentQuery filters GetDocuments on processed time. A zero Limit means
// DefaultDocumentLimit.
type DocumentQuery struct {
	Start time.Time
	End   time.Time
	Limit int
}

type documentRow struct {
	ID          int64  `db:"id"`
	Filename    string `db:"filename"`
	Filepath    []byte `db:"filepath_encrypted"`
	Content     []byte `db:"content_encrypted"`
	FileType    string `db:"file_type"`
	Summary     []byte `db:"summary_encrypted"`
	Entities    []byte `db:"entities_encrypted"`
	ProcessedAt int64  `db:"processed_at"`
	CreatedAt   int64  `db:"created_at"`
}

const documentColumns = `id, filename, filepath_encrypted, content_encrypted, file_type,
	summary_encrypted, entities_encrypted, processed_at, created_at`

// AddDocument stores a processed document with its sensitive fields encrypted
// and records an add_document audit event in the same transaction.
func (s *Store) AddDocument(ctx context.Context, d NewDocument) (int64, error) {
	const op = "add document"
	switch {
	case strings.TrimSpace(d.Filename) == "":
		return 0, vaulterr.Validation(op, "filename must not be empty")
	case d.Filepath == "":
		return 0, vaulterr.Validation(op, "filepath must not be empty")
	case d.Content == "":
		return 0, vaulterr.Validation(op, "content must not be empty")
	}
	fileType := NormalizeFileType(d.FileType)
	if !d.ProcessedAt.IsZero() {
		if err := validateTimestamp(op, "processed_at", d.ProcessedAt); err != nil {
			return 0, err
		}
	}
	if !slices.Contains(FileTypes, fileType) {
		return 0, vaulterr.Validation(op, "file type %q is not one of %v", d.FileType, FileTypes)
	}

	filepath, err := s.seal(d.Filepath)
	if err != nil {
		return 0, fmt.Errorf("%s: filepath: %w", op, err)
	}
	content, err := s.seal(d.Content)
	if err != nil {
		return 0, fmt.Errorf("%s: content: %w", op, err)
	}
	summary, err := s.sealOptional(d.Summary)
	if err != nil {
		return 0, fmt.Errorf("%s: summary: %w", op, err)
	}
	var entities any
	if d.Entities != nil {
		data, err := json.Marshal(d.Entities)
		if err != nil {
			return 0, vaulterr.Validation(op, "marshal entities: %v", err)
		}
		if entities, err = s.seal(string(data)); err != nil {
			return 0, fmt.Errorf("%s: entities: %w", op, err)
		}
	}

	now := s.now()
	processed := d.ProcessedAt
	if processed.IsZero() {
		processed = now
	}

	var id int64
	err = s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO documents (filename, filepath_encrypted, content_encrypted, file_type,
				summary_encrypted, entities_encrypted, processed_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, d.Filename, filepath, content, fileType, summary, entities, toUnix(processed), toUnix(now))
		if err != nil {
			return vaulterr.Storage(op, err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return vaulterr.Storage(op, fmt.Errorf("last insert id: %w", err))
		}
		_, err = s.appendAudit(ctx, tx, ActionAddDocument, ModuleDocuments, map[string]any{
			"document_id": id,
			"filename":    d.Filename,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetDocuments returns decrypted documents processed in the query range,
// most recently processed first.
func (s *Store) GetDocuments(ctx context.Context, q DocumentQuery) ([]Document, error) {
	const op = "get documents"
	limit, err := resolveLimit(op, q.Limit, DefaultDocumentLimit)
	if err != nil {
		return nil, err
	}
	if err := validateRange(op, q.Start, q.End); err != nil {
		return nil, err
	}

	if _, err := s.Append(ctx, ActionReadDocuments, ModuleDocuments, map[string]any{
		"start": formatBound(q.Start),
		"end":   formatBound(q.End),
		"limit": limit,
	}); err != nil {
		return nil, err
	}

	var f rangeFilter
	f.between("processed_at", q.Start, q.End)

	var rows []documentRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT `+documentColumns+` FROM documents`+f.where()+` ORDER BY processed_at DESC, id DESC LIMIT ?`,
		append(f.args, limit)...)
	if err != nil {
		return nil, vaulterr.Storage(op, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		d, err := s.decodeDocument(r)
		if err != nil {
			return nil, fmt.Errorf("%s: document %d: %w", op, r.ID, err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// GetDocument returns one decrypted document. found is false when no
// document has that id.
func (s *Store) GetDocument(ctx context.Context, id int64) (doc Document, found bool, err error) {
	const op = "get document"
	if _, err := s.Append(ctx, ActionReadDocument, ModuleDocuments, map[string]any{"document_id": id}); err != nil {
		return Document{}, false, err
	}

	var r documentRow
	err = s.db.GetContext(ctx, &r, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, vaulterr.Storage(op, err)
	}

	doc, err = s.decodeDocument(r)
	if err != nil {
		return Document{}, false, fmt.Errorf("%s: document %d: %w", op, id, err)
	}
	return doc, true, nil
}

func (s *Store) decodeDocument(r documentRow) (Document, error) {
	filepath, err := s.unseal(r.Filepath)
	if err != nil {
		return Document{}, err
	}
	content, err := s.unseal(r.Content)
	if err != nil {
		return Document{}, err
	}
	summary, err := s.unsealOptional(r.Summary)
	if err != nil {
		return Document{}, err
	}
	var entities []string
	if len(r.Entities) > 0 {
		data, err := s.unseal(r.Entities)
		if err != nil {
			return Document{}, err
		}
		if err := json.Unmarshal([]byte(data), &entities); err != nil {
			return Document{}, fmt.Errorf("unmarshal entities: %w", err)
		}
		if entities == nil {
			entities = []string{}
		}
	}
	return Document{
		ID:          r.ID,
		Filename:    r.Filename,
		Filepath:    filepath,
		Content:     content,
		FileType:    r.FileType,
		Summary:     summary,
		Entities:    entities,
		ProcessedAt: fromUnix(r.ProcessedAt),
		CreatedAt:   fromUnix(r.CreatedAt),
	}, nil
}
