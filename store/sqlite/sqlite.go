// Package sqlite provides a store.Adapter backed by a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/spetersoncode/unistore/retry"
	"github.com/spetersoncode/unistore/store"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "unistore_kv"

// Adapter persists store values in a single key/value table.
type Adapter struct {
	db     *sql.DB
	table  string
	closed atomic.Bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTable sets the table name. The name is used verbatim in SQL and must
// be a trusted identifier.
func WithTable(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.table = name
		}
	}
}

// Open opens (or creates) the database at path and prepares the table.
// Use ":memory:" for a private in-memory database.
func Open(path string, opts ...Option) (*Adapter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	a := &Adapter{db: db, table: DefaultTable}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return a, nil
}

func (a *Adapter) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + a.table + ` (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database. Later calls fail with store.ErrAdapterClosed.
func (a *Adapter) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	return a.db.Close()
}

// Get retrieves a value by key.
func (a *Adapter) Get(ctx context.Context, key string) (string, bool, error) {
	if a.closed.Load() {
		return "", false, store.ErrAdapterClosed
	}
	row := a.db.QueryRowContext(ctx, `SELECT value FROM `+a.table+` WHERE key=?`, key)
	var value string
	switch err := row.Scan(&value); {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, classify(err)
	}
	return value, true, nil
}

// Set stores a value, replacing any previous one.
func (a *Adapter) Set(ctx context.Context, key, value string) error {
	if a.closed.Load() {
		return store.ErrAdapterClosed
	}
	_, err := a.db.ExecContext(ctx, `INSERT INTO `+a.table+`(key, value, updated_at) VALUES(?,?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC())
	return classify(err)
}

// Delete removes a key. Deleting a missing key is not an error.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	if a.closed.Load() {
		return store.ErrAdapterClosed
	}
	_, err := a.db.ExecContext(ctx, `DELETE FROM `+a.table+` WHERE key=?`, key)
	return classify(err)
}

// Keys returns all stored keys in ascending order.
func (a *Adapter) Keys(ctx context.Context) ([]string, error) {
	if a.closed.Load() {
		return nil, store.ErrAdapterClosed
	}
	rows, err := a.db.QueryContext(ctx, `SELECT key FROM `+a.table+` ORDER BY key`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// classify marks busy and locked database errors as transient so stores
// configured with store.WithRetry back off and try again.
func classify(err error) error {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return retry.MarkTransient(err)
		}
	}
	return err
}

var (
	_ store.Adapter   = (*Adapter)(nil)
	_ store.KeyLister = (*Adapter)(nil)
)
