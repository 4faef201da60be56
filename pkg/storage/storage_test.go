package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nolasundae/hofmirror/pkg/halloffame"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "hofmirror.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func entry(number int, name string) halloffame.Entry {
	clean, note := halloffame.Parse(name)
	return halloffame.Entry{
		ParticipantNumber: number,
		Name:              clean,
		OriginalName:      name,
		DateText:          "5/11/25",
		Date:              time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC),
		Note:              note,
	}
}

func TestHighWaterMarkEmpty(t *testing.T) {
	db := openTestDB(t)
	hwm, err := db.HighWaterMark(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, hwm)
}

func TestSaveNewEntriesOrdering(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Page order is newest first; persistence must go oldest first so the
	// surrogate ids preserve chronology.
	entries := []halloffame.Entry{
		entry(750, "B PERSON"),
		entry(751, "C PERSON"),
		entry(749, "A PERSON"),
	}
	saved, err := db.SaveNewEntries(ctx, entries, 748)
	require.NoError(t, err)
	require.Equal(t, 3, saved)

	rows, err := db.sql.Query(`SELECT id, participant_number FROM hall_of_fame_entries ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var ids, numbers []int
	for rows.Next() {
		var id, num int
		require.NoError(t, rows.Scan(&id, &num))
		ids = append(ids, id)
		numbers = append(numbers, num)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []int{1, 2, 3}, ids)
	require.Equal(t, []int{749, 750, 751}, numbers)
}

func TestSaveNewEntriesDelta(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	entries := []halloffame.Entry{entry(749, "A"), entry(750, "B")}
	saved, err := db.SaveNewEntries(ctx, entries, 749)
	require.NoError(t, err)
	require.Equal(t, 1, saved)

	hwm, err := db.HighWaterMark(ctx)
	require.NoError(t, err)
	require.Equal(t, 750, hwm)

	// Everything at or below the mark is not a delta at all.
	saved, err = db.SaveNewEntries(ctx, entries, hwm)
	require.NoError(t, err)
	require.Equal(t, 0, saved)
}

func TestSaveNewEntriesIdempotence(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	entries := []halloffame.Entry{
		entry(749, "JILL SMITH 11 YEARS 5 MONTHS 21 DAYS"),
		entry(750, "Bob Jones, 2nd time"),
	}
	_, err := db.SaveNewEntries(ctx, entries, 0)
	require.NoError(t, err)

	before, err := db.ListEntries(ctx, ListOptions{})
	require.NoError(t, err)

	// A re-run with a stale high-water mark walks the upsert path: content
	// must come out byte-identical, no duplicate rows.
	saved, err := db.SaveNewEntries(ctx, entries, 0)
	require.NoError(t, err)
	require.Equal(t, 2, saved)

	after, err := db.ListEntries(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, after, 2)

	for i := range before {
		b, a := before[i], after[i]
		require.Equal(t, b.ID, a.ID)
		require.Equal(t, b.ParticipantNumber, a.ParticipantNumber)
		require.Equal(t, b.Name, a.Name)
		require.Equal(t, b.OriginalName, a.OriginalName)
		require.Equal(t, b.DateText, a.DateText)
		require.Equal(t, b.Notes, a.Notes)
		require.Equal(t, b.AgeDays, a.AgeDays)
		require.Equal(t, b.ElapsedSeconds, a.ElapsedSeconds)
		require.Equal(t, b.CompletionCount, a.CompletionCount)
		require.Equal(t, b.CreatedAt, a.CreatedAt)
	}
}

func TestSaveNewEntriesAtomicity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// The middle entry violates the name length constraint; the rows
	// written before it must roll back with it.
	oversized := entry(750, strings.Repeat("X", 300))
	entries := []halloffame.Entry{
		entry(749, "FIRST FINE"),
		oversized,
		entry(751, "LAST FINE"),
	}
	_, err := db.SaveNewEntries(ctx, entries, 748)
	require.Error(t, err)

	n, err := db.CountEntries(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestNoteColumnsLandInTheRightPlace(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	entries := []halloffame.Entry{
		entry(1, "JILL SMITH 11 YEARS 5 MONTHS 21 DAYS"),
		entry(2, "STEVEN HAMMOND 7 MINUTES"),
		entry(3, "Bob Jones, 2nd time"),
		entry(4, "Jane Smith"),
	}
	_, err := db.SaveNewEntries(ctx, entries, 0)
	require.NoError(t, err)

	stored, err := db.ListEntries(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, stored, 4)

	byNumber := map[int]StoredEntry{}
	for _, s := range stored {
		byNumber[s.ParticipantNumber] = s
	}

	jill := byNumber[1]
	require.Equal(t, "JILL SMITH", jill.Name)
	require.Equal(t, "11 YEARS 5 MONTHS 21 DAYS", jill.Notes)
	require.Equal(t, 4196, jill.AgeDays)
	require.Zero(t, jill.ElapsedSeconds)
	require.Zero(t, jill.CompletionCount)

	steven := byNumber[2]
	require.Equal(t, 420, steven.ElapsedSeconds)
	require.Zero(t, steven.AgeDays)

	bob := byNumber[3]
	require.Equal(t, "BOB JONES", bob.Name)
	require.Equal(t, "2ND TIME", bob.Notes)
	require.Equal(t, 2, bob.CompletionCount)

	jane := byNumber[4]
	require.Equal(t, "JANE SMITH", jane.Name)
	require.Empty(t, jane.Notes)
	require.Zero(t, jane.AgeDays)
	require.Zero(t, jane.ElapsedSeconds)
	require.Zero(t, jane.CompletionCount)
}

func TestClearEntriesResetsSequence(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.SaveNewEntries(ctx, []halloffame.Entry{entry(10, "A"), entry(11, "B")}, 0)
	require.NoError(t, err)

	deleted, err := db.ClearEntries(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	n, err := db.CountEntries(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	// Sequence reset: the next insert starts over at id 1.
	_, err = db.SaveNewEntries(ctx, []halloffame.Entry{entry(12, "C")}, 0)
	require.NoError(t, err)

	var id int
	require.NoError(t, db.sql.QueryRow(`SELECT id FROM hall_of_fame_entries`).Scan(&id))
	require.Equal(t, 1, id)
}

func TestClearEntriesOnFreshStore(t *testing.T) {
	db := openTestDB(t)
	deleted, err := db.ClearEntries(context.Background())
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func TestReparseEntries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Simulate rows written before the parser knew about age suffixes: the
	// stored name still carries the suffix and no derived columns are set.
	_, err := db.sql.Exec(`
INSERT INTO hall_of_fame_entries (participant_number, name, original_name, date_str, parsed_date)
VALUES (700, 'JILL SMITH 11 YEARS 5 MONTHS 21 DAYS', 'JILL SMITH 11 YEARS 5 MONTHS 21 DAYS', '5/11/25', '2025-05-11T00:00:00Z'),
       (701, 'JANE SMITH', 'JANE SMITH', '5/12/25', '2025-05-12T00:00:00Z')`)
	require.NoError(t, err)

	changed, err := db.ReparseEntries(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, changed)

	stored, err := db.ListEntries(ctx, ListOptions{Search: "JILL"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "JILL SMITH", stored[0].Name)
	require.Equal(t, 4196, stored[0].AgeDays)
	require.Equal(t, "JILL SMITH 11 YEARS 5 MONTHS 21 DAYS", stored[0].OriginalName)

	// Reparsing an already-parsed store is a no-op.
	changed, err = db.ReparseEntries(ctx)
	require.NoError(t, err)
	require.Zero(t, changed)
}

func TestPreviewReparse(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.sql.Exec(`
INSERT INTO hall_of_fame_entries (participant_number, name, original_name, date_str, parsed_date)
VALUES (700, 'JILL SMITH 11 YEARS 5 MONTHS 21 DAYS', 'JILL SMITH 11 YEARS 5 MONTHS 21 DAYS', '5/11/25', '2025-05-11T00:00:00Z'),
       (701, 'JANE SMITH', 'JANE SMITH', '5/12/25', '2025-05-12T00:00:00Z')`)
	require.NoError(t, err)

	changes, err := db.PreviewReparse(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, 700, changes[0].ParticipantNumber)
	require.Equal(t, "JILL SMITH", changes[0].NewName)
	require.Equal(t, "11 YEARS 5 MONTHS 21 DAYS", changes[0].NewNotes)

	// Preview does not write.
	stored, err := db.ListEntries(ctx, ListOptions{Search: "JILL"})
	require.NoError(t, err)
	require.Equal(t, "JILL SMITH 11 YEARS 5 MONTHS 21 DAYS", stored[0].Name)
}

func TestGetStatsAndLatest(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.SaveNewEntries(ctx, []halloffame.Entry{
		entry(749, "JILL SMITH 11 YEARS 5 MONTHS 21 DAYS"),
		entry(750, "STEVEN HAMMOND 7 MINUTES"),
		entry(751, "Jane Smith"),
	}, 0)
	require.NoError(t, err)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{
		TotalEntries:    3,
		WithNotes:       2,
		WithAge:         1,
		WithElapsedTime: 1,
		WithCompletion:  0,
		HighWaterMark:   751,
	}, stats)

	latest, err := db.LatestEntry(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, 751, latest.ParticipantNumber)
}

func TestLatestEntryEmptyStore(t *testing.T) {
	db := openTestDB(t)
	latest, err := db.LatestEntry(context.Background())
	require.NoError(t, err)
	require.Nil(t, latest)
}
