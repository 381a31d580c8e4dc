// Package sqlite persists materialized occurrence rows in a SQLite
// database, with schema migrations applied on open.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/cyp0633/daterecur/occurrence"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements occurrence.Repository on a SQLite database. Instants are
// stored as Unix nanoseconds and returned in UTC.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put replaces the rows of one owner/version/component scope in a single
// transaction, so readers never observe a partially replaced set.
func (s *Store) Put(ctx context.Context, ownerID, versionID string, componentIndex int, rows []occurrence.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM occurrences WHERE owner_id = ? AND version_id = ? AND component_index = ?`,
		ownerID, versionID, componentIndex)
	if err != nil {
		return fmt.Errorf("delete old rows: %w", err)
	}

	for _, r := range rows {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO occurrences (owner_id, version_id, component_index, sequence_index, start_unix, end_unix)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			ownerID, versionID, componentIndex, r.SequenceIndex, r.Start.UnixNano(), r.End.UnixNano())
		if err != nil {
			return fmt.Errorf("insert row %d: %w", r.SequenceIndex, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Trim(ctx context.Context, ownerID, versionID string, componentIndex, maxSequence int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM occurrences
		 WHERE owner_id = ? AND version_id = ? AND component_index = ? AND sequence_index > ?`,
		ownerID, versionID, componentIndex, maxSequence)
	if err != nil {
		return fmt.Errorf("trim rows: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, versionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM occurrences WHERE owner_id = ? AND version_id = ?`,
		ownerID, versionID)
	if err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, ownerID string, from, to time.Time) ([]occurrence.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner_id, version_id, component_index, sequence_index, start_unix, end_unix
		 FROM occurrences
		 WHERE owner_id = ? AND start_unix <= ? AND end_unix >= ?
		 ORDER BY start_unix, component_index, sequence_index`,
		ownerID, to.UnixNano(), from.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []occurrence.Row
	for rows.Next() {
		var r occurrence.Row
		var startNano, endNano int64
		if err := rows.Scan(&r.OwnerID, &r.VersionID, &r.ComponentIndex, &r.SequenceIndex, &startNano, &endNano); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Start = time.Unix(0, startNano).UTC()
		r.End = time.Unix(0, endNano).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
