// Package sqlitestore provides a SQLite-backed ledger.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/dyluth/papernet/pkg/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS world_state (
	key     BLOB PRIMARY KEY,
	value   BLOB NOT NULL,
	version INTEGER NOT NULL,
	tx_id   TEXT NOT NULL
) WITHOUT ROWID;
`

// Store persists ledger state in one SQLite table. Keys are stored as BLOBs so
// ordering and range scans compare raw bytes.
type Store struct {
	sqlDB *sql.DB
}

var _ ledger.Ledger = (*Store)(nil)

// Open opens (creating if needed) the SQLite ledger at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes transactions, matching the single-writer model.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Transact runs fn in a SQLite transaction. Buffered writes are upserted and
// committed when fn returns nil; otherwise the transaction is rolled back.
func (s *Store) Transact(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return wrapBusy("", fmt.Errorf("begin transaction: %w", err))
	}
	defer sqlTx.Rollback()

	txID := ledger.NewTxID()
	ws := ledger.NewWriteSet(txID, txReader{tx: sqlTx})
	if err := fn(ws); err != nil {
		return err
	}

	for _, kv := range ws.Writes() {
		_, err := sqlTx.ExecContext(ctx,
			`INSERT INTO world_state (key, value, version, tx_id) VALUES (?, ?, 1, ?)
			 ON CONFLICT(key) DO UPDATE SET
			   value = excluded.value,
			   version = world_state.version + 1,
			   tx_id = excluded.tx_id`,
			[]byte(kv.Key), kv.Value, txID,
		)
		if err != nil {
			return wrapBusy(txID, fmt.Errorf("write %q: %w", ledger.FormatKey(kv.Key), err))
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return wrapBusy(txID, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// Version returns how many times key has been written and the ID of the
// transaction that wrote it last. Returns *ledger.NotFoundError if key is absent.
func (s *Store) Version(ctx context.Context, key string) (int64, string, error) {
	var (
		version int64
		txID    string
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT version, tx_id FROM world_state WHERE key = ?`, []byte(key),
	).Scan(&version, &txID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", &ledger.NotFoundError{Key: key}
	}
	if err != nil {
		return 0, "", fmt.Errorf("read version of %q: %w", ledger.FormatKey(key), err)
	}
	return version, txID, nil
}

// txReader reads committed state through the open SQL transaction.
type txReader struct {
	tx *sql.Tx
}

func (r txReader) GetState(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.tx.QueryRowContext(ctx,
		`SELECT value FROM world_state WHERE key = ?`, []byte(key),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (r txReader) Scan(ctx context.Context, prefix string) ([]ledger.KeyValue, error) {
	// Keys are UTF-8, so no key under prefix contains the byte 0xff.
	rows, err := r.tx.QueryContext(ctx,
		`SELECT key, value FROM world_state WHERE key >= ? AND key < ? ORDER BY key`,
		[]byte(prefix), []byte(prefix+"\xff"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.KeyValue
	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out = append(out, ledger.KeyValue{Key: string(key), Value: value})
	}
	return out, rows.Err()
}

// wrapBusy turns SQLite lock contention into a ledger conflict.
func wrapBusy(txID string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return &ledger.ConflictError{TxID: txID, Err: err}
		}
	}
	return err
}
