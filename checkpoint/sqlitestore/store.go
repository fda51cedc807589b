// Package sqlitestore persists randflake checkpoints in a SQLite database.
//
// One row per machine id. The upsert only ever raises the stored mark, so
// two writers racing on the same machine id cannot move it backwards.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sxyafiq/randflake"
)

// DefaultTable is the table used when Options.Table is empty.
const DefaultTable = "randflake_checkpoints"

// Options configures a Store.
type Options struct {
	// Table overrides DefaultTable.
	Table string
}

// Store implements randflake.Checkpointer on top of database/sql.
type Store struct {
	db     *sql.DB
	table  string
	closer bool
}

// Open opens (or creates) the SQLite database at path and prepares the
// checkpoint table.
//
// Example:
//
//	store, err := sqlitestore.Open("/var/lib/orders/randflake.db")
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and avoids
	// SQLITE_BUSY between our own writers.
	db.SetMaxOpenConns(1)

	s, err := New(context.Background(), db, Options{})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.closer = true
	return s, nil
}

// New wraps an existing handle. The caller keeps ownership of db.
func New(ctx context.Context, db *sql.DB, opts Options) (*Store, error) {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	s := &Store{db: db, table: table}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			machine_id  INTEGER PRIMARY KEY,
			ts          INTEGER NOT NULL,
			ahead_ms    INTEGER NOT NULL DEFAULT 0,
			incarnation TEXT    NOT NULL,
			updated_at  INTEGER NOT NULL
		)`, table))
	if err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return s, nil
}

// Load implements randflake.Checkpointer.
func (s *Store) Load(ctx context.Context, machineID int64) (randflake.Checkpoint, error) {
	var (
		cp        = randflake.Checkpoint{MachineID: machineID}
		aheadMs   int64
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT ts, ahead_ms, incarnation, updated_at FROM %s WHERE machine_id = ?`, s.table),
		machineID,
	).Scan(&cp.Timestamp, &aheadMs, &cp.Incarnation, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return randflake.Checkpoint{}, randflake.ErrNoCheckpoint
	}
	if err != nil {
		return randflake.Checkpoint{}, err
	}
	cp.Ahead = time.Duration(aheadMs) * time.Millisecond
	cp.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return cp, nil
}

// Save implements randflake.Checkpointer.
func (s *Store) Save(ctx context.Context, cp randflake.Checkpoint) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %[1]s (machine_id, ts, ahead_ms, incarnation, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(machine_id) DO UPDATE SET
			ts          = excluded.ts,
			ahead_ms    = excluded.ahead_ms,
			incarnation = excluded.incarnation,
			updated_at  = excluded.updated_at
		WHERE excluded.ts > %[1]s.ts`, s.table),
		cp.MachineID, cp.Timestamp, cp.Ahead.Milliseconds(), cp.Incarnation, cp.UpdatedAt.UnixMilli(),
	)
	return err
}

// Close closes the database if the Store opened it.
func (s *Store) Close() error {
	if !s.closer {
		return nil
	}
	return s.db.Close()
}
