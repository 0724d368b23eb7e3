// Package store provides SQLite-backed encrypted storage for the vault.
//
// The store owns six tables:
//   - journal_entries: Journal text (encrypted) with plaintext mood/sentiment
//   - transactions: Amount/kind/category in plaintext, merchant/description/account encrypted
//   - budgets: One row per category (upsert on set)
//   - documents: Filename/type in plaintext, path/content/summary/entities encrypted
//   - audit_log: Append-only access trail with encrypted details
//   - favorites: (module, item_id) marks, UNIQUE
//
// # Critical Patterns
//
// Plaintext Filter Columns
//   - Range, category and grouping queries touch plaintext columns only
//   - Sensitive columns are opaque BLOBs, decrypted after the rows are read
//
// Absence Round-Trips
//   - Optional sensitive fields are encrypted only when present
//   - NULL reads back as nil, never as an encrypted empty value
//
// One Audit Row Per Access
//   - Writes insert the entity row and its audit row in one transaction
//   - Reads commit their audit row first, then query and decrypt
//
// Fail Closed on Decryption
//   - A row that cannot be decrypted fails the whole read with DECRYPTION_FAILED
//
// Deterministic Ordering
//   - Row lists are ORDER BY <timestamp> DESC, id DESC
//   - Aggregates order by their measure, then by key
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Timestamps are INTEGER unix nanoseconds in UTC.
//
// A Store is not safe for concurrent use by multiple goroutines that expect
// operation-level isolation; hosts with several goroutines must serialize
// calls. Two processes opening the same file are only protected by SQLite's
// own locking, and the retention purge at open is not race-free against a
// concurrent writer.
package store
