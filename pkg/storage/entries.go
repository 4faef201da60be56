package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nolasundae/hofmirror/pkg/halloffame"
)

// StoredEntry is a persisted row as read back from the database. Absent
// derived fields are zero-valued; they are only ever stored positive.
type StoredEntry struct {
	ID                int64     `json:"id"`
	ParticipantNumber int       `json:"participant_number"`
	Name              string    `json:"name"`
	OriginalName      string    `json:"original_name"`
	DateText          string    `json:"date_text"`
	Date              time.Time `json:"date"`
	Notes             string    `json:"notes,omitempty"`
	AgeDays           int       `json:"age_days,omitempty"`
	ElapsedSeconds    int       `json:"elapsed_seconds,omitempty"`
	CompletionCount   int       `json:"completion_count,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ListOptions controls selection when listing entries.
type ListOptions struct {
	Search string // substring match on name
	Since  time.Time
	Limit  int
}

// ListEntries returns entries matching filters, newest first.
func (d *DB) ListEntries(ctx context.Context, opts ListOptions) ([]StoredEntry, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.Search != "" {
		where += " AND name LIKE ?"
		args = append(args, fmt.Sprintf("%%%s%%", opts.Search))
	}
	if !opts.Since.IsZero() {
		where += " AND parsed_date >= ?"
		args = append(args, opts.Since.UTC().Format(time.RFC3339))
	}
	q := `SELECT id, participant_number, name, original_name, date_str, parsed_date,
  notes, age_days, elapsed_seconds, completion_count, created_at, updated_at
FROM hall_of_fame_entries ` + where + ` ORDER BY participant_number DESC`
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestEntry returns the most recent entry, or nil when the store is empty.
func (d *DB) LatestEntry(ctx context.Context) (*StoredEntry, error) {
	entries, err := d.ListEntries(ctx, ListOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// Stats summarizes how much of the mirror carries parsed attributes.
type Stats struct {
	TotalEntries    int `json:"total_entries"`
	WithNotes       int `json:"with_notes"`
	WithAge         int `json:"with_age"`
	WithElapsedTime int `json:"with_elapsed_time"`
	WithCompletion  int `json:"with_completion"`
	HighWaterMark   int `json:"high_water_mark"`
}

func (d *DB) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	err := d.sql.QueryRowContext(ctx, `
SELECT
  COUNT(*),
  COUNT(notes),
  COUNT(age_days),
  COUNT(elapsed_seconds),
  COUNT(completion_count),
  COALESCE(MAX(participant_number), 0)
FROM hall_of_fame_entries`).Scan(
		&s.TotalEntries, &s.WithNotes, &s.WithAge, &s.WithElapsedTime, &s.WithCompletion, &s.HighWaterMark)
	return s, err
}

// ReparseChange describes what a reparse would do to one row.
type ReparseChange struct {
	ParticipantNumber int    `json:"participant_number"`
	OldName           string `json:"old_name"`
	NewName           string `json:"new_name"`
	OldNotes          string `json:"old_notes,omitempty"`
	NewNotes          string `json:"new_notes,omitempty"`
}

// PreviewReparse reports the rows a reparse would touch, without writing.
func (d *DB) PreviewReparse(ctx context.Context) ([]ReparseChange, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT participant_number, name, original_name, notes FROM hall_of_fame_entries ORDER BY participant_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []ReparseChange
	for rows.Next() {
		var num int
		var name, original string
		var notes sql.NullString
		if err := rows.Scan(&num, &name, &original, &notes); err != nil {
			return nil, err
		}
		source := original
		if source == "" {
			source = name
		}
		newName, note := halloffame.Parse(source)
		newNotes := ""
		if note != nil {
			newNotes = note.Text()
		}
		if newName != name || newNotes != notes.String {
			changes = append(changes, ReparseChange{
				ParticipantNumber: num,
				OldName:           name,
				NewName:           newName,
				OldNotes:          notes.String,
				NewNotes:          newNotes,
			})
		}
	}
	return changes, rows.Err()
}

// ReparseEntries re-runs the name parser over every stored row using the
// preserved original name, in one transaction. The parser evolves; this
// re-derives stored attributes without a re-scrape. Returns how many rows
// changed.
func (d *DB) ReparseEntries(ctx context.Context) (int, error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `SELECT id, name, original_name FROM hall_of_fame_entries`)
	if err != nil {
		return 0, err
	}

	type rework struct {
		id   int64
		name string
		note halloffame.Note
	}
	var pending []rework
	for rows.Next() {
		var id int64
		var name, original string
		if err = rows.Scan(&id, &name, &original); err != nil {
			rows.Close()
			return 0, err
		}
		source := original
		if source == "" {
			source = name
		}
		newName, note := halloffame.Parse(source)
		pending = append(pending, rework{id: id, name: newName, note: note})
	}
	if err = rows.Close(); err != nil {
		return 0, err
	}

	changed := 0
	for _, p := range pending {
		notes, age, secs, count := noteColumns(p.note)
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
UPDATE hall_of_fame_entries
SET name = ?, notes = ?, age_days = ?, elapsed_seconds = ?, completion_count = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
  AND (name IS NOT ? OR notes IS NOT ? OR age_days IS NOT ? OR elapsed_seconds IS NOT ? OR completion_count IS NOT ?)`,
			p.name, notes, age, secs, count, p.id,
			p.name, notes, age, secs, count)
		if err != nil {
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			changed++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return changed, nil
}

func scanEntry(rows *sql.Rows) (StoredEntry, error) {
	var e StoredEntry
	var parsedDate, createdAt, updatedAt string
	var notes sql.NullString
	var age, secs, count sql.NullInt64
	if err := rows.Scan(&e.ID, &e.ParticipantNumber, &e.Name, &e.OriginalName, &e.DateText,
		&parsedDate, &notes, &age, &secs, &count, &createdAt, &updatedAt); err != nil {
		return StoredEntry{}, err
	}
	e.Date = parseSQLiteTime(parsedDate)
	e.CreatedAt = parseSQLiteTime(createdAt)
	e.UpdatedAt = parseSQLiteTime(updatedAt)
	e.Notes = notes.String
	e.AgeDays = int(age.Int64)
	e.ElapsedSeconds = int(secs.Int64)
	e.CompletionCount = int(count.Int64)
	return e, nil
}
