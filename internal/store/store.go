package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/vault/internal/vaulterr"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (journal, transactions, budgets, documents, audit_log, favorites)
const currentSchemaVersion = 1

// Cipher encrypts and decrypts sensitive column payloads.
// *crypt.Codec satisfies it.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(token []byte) ([]byte, error)
}

// Store provides encrypted, audited storage for vault entities.
type Store struct {
	db        *sqlx.DB
	cipher    Cipher
	now       func() time.Time
	logger    *slog.Logger
	retention Policy
	session   string
}

// Option configures a Store at Open.
type Option func(*Store)

// WithRetention sets the retention policy. The purge runs during Open only
// when the policy is enabled.
func WithRetention(p Policy) Option {
	return func(s *Store) { s.retention = p }
}

// WithClock overrides the wall clock used for timestamps and retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and schema, then runs the retention purge if the
// configured policy is enabled.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, cipher Cipher, opts ...Option) (*Store, error) {
	if cipher == nil {
		return nil, vaulterr.Validation("open store", "cipher is required")
	}

	s := &Store{
		cipher:    cipher,
		now:       time.Now,
		logger:    slog.Default(),
		retention: DefaultPolicy(),
		session:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.retention.Validate(); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, vaulterr.Storage("open store", fmt.Errorf("failed to open database: %w", err))
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, vaulterr.Storage("open store", fmt.Errorf("failed to connect to database: %w", err))
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db.DB); err != nil {
		db.Close()
		return nil, vaulterr.Storage("open store", fmt.Errorf("failed to apply pragmas: %w", err))
	}

	if err := applySchema(db.DB); err != nil {
		db.Close()
		return nil, vaulterr.Storage("open store", fmt.Errorf("failed to apply schema: %w", err))
	}

	s.db = db
	s.logger.Debug("store opened", "path", path, "session", s.session)

	if s.retention.Enabled {
		if _, err := s.Purge(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Session returns the id minted for this open cycle. Every audit event
// written through this Store carries it under details["session"].
func (s *Store) Session() string {
	return s.session
}

// Retention returns the policy the store was opened with.
func (s *Store) Retention() Policy {
	return s.retention
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and records the schema
// version. A database stamped by a newer build is refused rather than
// written with an older layout.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// inTx runs fn inside a transaction and commits it if fn succeeds.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return vaulterr.Storage(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return vaulterr.Storage(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
