package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// migrate applies the idempotent schema and records its version. A
// database written by a newer build is refused rather than downgraded.
func migrate(ctx context.Context, db *sql.DB) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	current, err := readSchemaVersion(ctx, tx)
	if err != nil {
		return err
	}

	switch {
	case current == 0:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO metadata(key, value) VALUES('schema_version', ?)", strconv.Itoa(schemaVersion))
	case current > schemaVersion:
		err = fmt.Errorf("state schema version %d is newer than supported %d", current, schemaVersion)
	case current < schemaVersion:
		_, err = tx.ExecContext(ctx,
			"UPDATE metadata SET value = ? WHERE key = 'schema_version'", strconv.Itoa(schemaVersion))
	}
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// readSchemaVersion returns 0 when no version has been recorded yet.
func readSchemaVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", raw, err)
	}
	return v, nil
}
