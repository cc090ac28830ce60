package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/gestion/internal/session"

	_ "modernc.org/sqlite"
)

// DBFileName is the default database file name inside the data directory.
const DBFileName = "gestion.db"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// Scoped returns a session.Backend for origin.
func (s *SQLiteStore) Scoped(origin string) session.Backend {
	return &originBackend{store: s, origin: origin}
}

// Origins lists the origins that hold at least one entry.
func (s *SQLiteStore) Origins(ctx context.Context) ([]string, error) {
	s.logger.Debug("sql", "op", "select_origins", "table", "storage")

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT origin FROM storage ORDER BY origin`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var origins []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		origins = append(origins, o)
	}
	return origins, rows.Err()
}

// --- Storage operations ---

type originBackend struct {
	store  *SQLiteStore
	origin string
}

func (b *originBackend) Origin() string { return b.origin }

func (b *originBackend) Get(ctx context.Context, key string) (session.Entry, bool, error) {
	b.store.logger.Debug("sql", "op", "select", "table", "storage", "origin", b.origin, "key", key)

	var e session.Entry
	var updatedAt int64
	err := b.store.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM storage WHERE origin = ? AND key = ?`,
		b.origin, key,
	).Scan(&e.Value, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return session.Entry{}, false, nil
	}
	if err != nil {
		return session.Entry{}, false, err
	}

	e.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return e, true, nil
}

func (b *originBackend) Set(ctx context.Context, key string, e session.Entry) error {
	b.store.logger.Debug("sql", "op", "upsert", "table", "storage", "origin", b.origin, "key", key)

	_, err := b.store.db.ExecContext(ctx,
		`INSERT INTO storage (origin, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(origin, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.origin, key, e.Value, e.UpdatedAt.Unix(),
	)
	return err
}

func (b *originBackend) Delete(ctx context.Context, key string) error {
	b.store.logger.Debug("sql", "op", "delete", "table", "storage", "origin", b.origin, "key", key)

	_, err := b.store.db.ExecContext(ctx,
		`DELETE FROM storage WHERE origin = ? AND key = ?`, b.origin, key)
	return err
}
