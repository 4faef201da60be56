package halloffame

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Entry is one fully parsed hall of fame row, ready for persistence.
// Entries are built fresh on every invocation and never mutated.
type Entry struct {
	ParticipantNumber int
	Name              string // trimmed, upper-cased, suffix stripped
	OriginalName      string // verbatim source text, kept for audit and reparsing
	DateText          string
	Date              time.Time

	Note Note // nil when the name carried no recognizable suffix
}

// Note is the single derived attribute extracted from a name suffix. At most
// one kind applies per entry; the concrete type carries the value, so the
// kinds cannot coexist.
type Note interface {
	// Text returns the verbatim substring that triggered the derivation.
	Text() string
	noteKind()
}

// CompletionNote marks a repeat champion ("BOB JONES, 2ND TIME").
type CompletionNote struct {
	Raw   string
	Count int
}

// AgeNote marks an age suffix ("JILL SMITH 11 YEARS 5 MONTHS 21 DAYS").
type AgeNote struct {
	Raw  string
	Days int
}

// DurationNote marks a finishing-time suffix ("STEVEN HAMMOND 7 MINUTES").
type DurationNote struct {
	Raw     string
	Seconds int
}

func (n CompletionNote) Text() string { return n.Raw }
func (n AgeNote) Text() string        { return n.Raw }
func (n DurationNote) Text() string   { return n.Raw }

func (CompletionNote) noteKind() {}
func (AgeNote) noteKind()        {}
func (DurationNote) noteKind()   {}

// RowError records a single row that could not be coerced into an entry.
// The rest of the batch is unaffected.
type RowError struct {
	Index int
	Cell  string
	Err   error
}

func (e RowError) Error() string {
	return "row " + strconv.Itoa(e.Index) + " (" + e.Cell + "): " + e.Err.Error()
}

func (e RowError) Unwrap() error { return e.Err }

// BuildEntries parses raw rows into entries, accumulating per-row failures
// instead of aborting the batch. Unparseable dates resolve to the Epoch
// sentinel and do not fail the row.
func BuildEntries(rows []RawRow) ([]Entry, []RowError) {
	entries := make([]Entry, 0, len(rows))
	var skipped []RowError
	for i, r := range rows {
		num, err := strconv.Atoi(strings.TrimSpace(r.Ordinal))
		if err != nil {
			skipped = append(skipped, RowError{Index: i, Cell: r.Ordinal, Err: err})
			continue
		}
		if num <= 0 {
			skipped = append(skipped, RowError{Index: i, Cell: r.Ordinal, Err: errors.New("participant number must be positive")})
			continue
		}
		name, note := Parse(r.Name)
		entries = append(entries, Entry{
			ParticipantNumber: num,
			Name:              name,
			OriginalName:      r.Name,
			DateText:          r.DateText,
			Date:              ParseDate(r.DateText),
			Note:              note,
		})
	}
	return entries, skipped
}
