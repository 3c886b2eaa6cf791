package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_storage (
	session_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (session_id, key)
)`

// updatedAtLayout has a fixed width so updated_at sorts lexically by time.
const updatedAtLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite keeps every session in one database file, keyed by session id.
type SQLite struct {
	db        *sql.DB
	sessionID string
}

func NewSQLite(path, sessionID string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("path", path))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	// A single connection keeps writes serialized without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to create session_storage table", goerr.V("path", path))
	}

	return &SQLite{db: db, sessionID: sessionID}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_storage WHERE session_id = ? AND key = ?`,
		s.sessionID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "no row for key",
			goerr.V("session", s.sessionID),
			goerr.V("key", key),
		)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query session storage", goerr.V("key", key))
	}
	return value, nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_storage (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.sessionID, key, value, time.Now().UTC().Format(updatedAtLayout),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert session storage", goerr.V("key", key))
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_storage WHERE session_id = ? AND key = ?`,
		s.sessionID, key,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to delete from session storage", goerr.V("key", key))
	}
	return nil
}

// pruneBefore deletes every session whose newest key was written before
// cutoff and returns the removed session ids.
func (s *SQLite) pruneBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin prune transaction")
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT session_id FROM session_storage GROUP BY session_id HAVING MAX(updated_at) < ?`,
		cutoff.UTC().Format(updatedAtLayout),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find stale sessions")
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, goerr.Wrap(err, "failed to scan session id")
		}
		stale = append(stale, id)
	}
	if err := rows.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to read stale sessions")
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_storage WHERE session_id = ?`, id); err != nil {
			return nil, goerr.Wrap(err, "failed to delete stale session", goerr.V("session", id))
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit prune")
	}
	return stale, nil
}

func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close sqlite database")
	}
	return nil
}
