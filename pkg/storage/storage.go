// Package storage persists hall of fame entries in SQLite and reconciles
// each freshly scraped batch against the high-water mark already on disk.
package storage

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nolasundae/hofmirror/pkg/halloffame"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// The surrogate id is AUTOINCREMENT on purpose: rows are inserted oldest
	// first, so id order tracks real-world chronology and survives a clear.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS hall_of_fame_entries (
  id                 INTEGER PRIMARY KEY AUTOINCREMENT,
  participant_number INTEGER UNIQUE NOT NULL CHECK (participant_number > 0),
  name               TEXT NOT NULL CHECK (length(name) <= 255),
  original_name      TEXT NOT NULL,
  date_str           TEXT NOT NULL,
  parsed_date        TEXT NOT NULL,
  notes              TEXT,
  age_days           INTEGER,
  elapsed_seconds    INTEGER,
  completion_count   INTEGER,
  created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_hof_participant ON hall_of_fame_entries(participant_number);
	`); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// HighWaterMark returns the highest participant number already persisted,
// or 0 when the store is empty.
func (d *DB) HighWaterMark(ctx context.Context) (int, error) {
	var hwm int
	err := d.sql.QueryRowContext(ctx, `SELECT COALESCE(MAX(participant_number), 0) FROM hall_of_fame_entries`).Scan(&hwm)
	if err != nil {
		return 0, err
	}
	return hwm, nil
}

const upsertEntrySQL = `
INSERT INTO hall_of_fame_entries
  (participant_number, name, original_name, date_str, parsed_date, notes, age_days, elapsed_seconds, completion_count)
VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(participant_number) DO UPDATE SET
  name             = excluded.name,
  original_name    = excluded.original_name,
  date_str         = excluded.date_str,
  parsed_date      = excluded.parsed_date,
  notes            = excluded.notes,
  age_days         = excluded.age_days,
  elapsed_seconds  = excluded.elapsed_seconds,
  completion_count = excluded.completion_count,
  updated_at       = CURRENT_TIMESTAMP`

// SaveNewEntries writes every entry above highWater, oldest first, in a
// single transaction. The page lists newest first, but surrogate ids must
// follow real-world chronology, so the delta is sorted ascending before any
// write. Re-running with the same input is a content no-op; only updated_at
// moves. Returns how many entries were written.
func (d *DB) SaveNewEntries(ctx context.Context, entries []halloffame.Entry, highWater int) (int, error) {
	delta := make([]halloffame.Entry, 0, len(entries))
	for _, e := range entries {
		if e.ParticipantNumber > highWater {
			delta = append(delta, e)
		}
	}
	if len(delta) == 0 {
		return 0, nil
	}

	sort.Slice(delta, func(i, j int) bool {
		return delta[i].ParticipantNumber < delta[j].ParticipantNumber
	})

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, e := range delta {
		notes, age, secs, count := noteColumns(e.Note)
		_, err = tx.ExecContext(ctx, upsertEntrySQL,
			e.ParticipantNumber, e.Name, e.OriginalName, e.DateText,
			e.Date.UTC().Format(time.RFC3339), notes, age, secs, count)
		if err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return len(delta), nil
}

// CountEntries returns the number of persisted entries.
func (d *DB) CountEntries(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM hall_of_fame_entries`).Scan(&n)
	return n, err
}

// ClearEntries deletes every entry and resets the surrogate id sequence so
// a fresh scrape rebuilds chronological ids from 1. Destructive; callers
// gate it behind an explicit confirmation.
func (d *DB) ClearEntries(ctx context.Context) (int64, error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM hall_of_fame_entries`)
	if err != nil {
		return 0, err
	}
	deleted, _ := res.RowsAffected()

	// sqlite_sequence only exists once an AUTOINCREMENT insert happened.
	if _, serr := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'hall_of_fame_entries'`); serr != nil {
		if !strings.Contains(serr.Error(), "no such table") {
			err = serr
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// noteColumns spreads the note sum type over the three nullable columns.
// The type system already guarantees at most one is set.
func noteColumns(n halloffame.Note) (notes, age, secs, count interface{}) {
	switch v := n.(type) {
	case halloffame.CompletionNote:
		return v.Raw, nil, nil, v.Count
	case halloffame.AgeNote:
		return v.Raw, v.Days, nil, nil
	case halloffame.DurationNote:
		return v.Raw, nil, v.Seconds, nil
	}
	return nil, nil, nil, nil
}

// parseSQLiteTime handles both CURRENT_TIMESTAMP and RFC3339 storage forms.
func parseSQLiteTime(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
