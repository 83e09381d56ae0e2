package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/etfnews/newswatch/internal/failure"
	"github.com/etfnews/newswatch/internal/item"
)

// SQLiteStore keeps every source's list in one SQLite database.
type SQLiteStore struct {
	db        *sql.DB
	retention Retention
	now       func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string, retention Retention) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, failure.New(failure.Store, "", errors.New("sqlite path is required"))
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, failure.New(failure.Store, path, fmt.Errorf("create db dir: %w", err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, failure.New(failure.Store, path, fmt.Errorf("open sqlite: %w", err))
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, failure.New(failure.Store, path, fmt.Errorf("enable foreign keys: %w", err))
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, failure.New(failure.Store, path, err)
	}

	return &SQLiteStore{db: db, retention: retention, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, name string) ([]item.Item, error) {
	if s == nil || s.db == nil {
		return nil, failure.New(failure.Store, name, errors.New("store is not initialized"))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT title, url, source
		FROM state_items
		WHERE name = ?
		ORDER BY position ASC
	`, name)
	if err != nil {
		return nil, failure.New(failure.Store, name, fmt.Errorf("load items: %w", err))
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []item.Item
	for rows.Next() {
		var it item.Item
		if err := rows.Scan(&it.Title, &it.URL, &it.Source); err != nil {
			return nil, failure.New(failure.Store, name, fmt.Errorf("scan item: %w", err))
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, failure.New(failure.Store, name, fmt.Errorf("iterate items: %w", err))
	}

	return items, nil
}

// Save replaces name's list in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, name string, items []item.Item) (err error) {
	if s == nil || s.db == nil {
		return failure.New(failure.Store, name, errors.New("store is not initialized"))
	}
	items = s.retention.apply(items)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failure.New(failure.Store, name, fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO states (name, updated_at) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at
	`, name, formatTime(s.now())); err != nil {
		return failure.New(failure.Store, name, fmt.Errorf("upsert state: %w", err))
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM state_items WHERE name = ?", name); err != nil {
		return failure.New(failure.Store, name, fmt.Errorf("clear items: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO state_items (name, position, title, url, source)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return failure.New(failure.Store, name, fmt.Errorf("prepare insert: %w", err))
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, it := range items {
		if _, err = stmt.ExecContext(ctx, name, i, it.Title, it.URL, it.Source); err != nil {
			return failure.New(failure.Store, name, fmt.Errorf("insert item %d: %w", i, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return failure.New(failure.Store, name, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *SQLiteStore) UpdatedAt(ctx context.Context, name string) (time.Time, error) {
	if s == nil || s.db == nil {
		return time.Time{}, failure.New(failure.Store, name, errors.New("store is not initialized"))
	}

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT updated_at FROM states WHERE name = ?", name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, failure.New(failure.Store, name, fmt.Errorf("read updated_at: %w", err))
	}
	ts, err := parseTime(raw)
	if err != nil {
		return time.Time{}, failure.New(failure.Store, name, fmt.Errorf("parse updated_at: %w", err))
	}
	return ts, nil
}
