// Package pipeline runs one mirror invocation end to end: fetch the page,
// extract rows (structurally, with an LLM fallback), parse names and dates,
// and reconcile the batch against the persisted high-water mark.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nolasundae/hofmirror/pkg/ai"
	"github.com/nolasundae/hofmirror/pkg/halloffame"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Fetcher retrieves the source page body.
type Fetcher interface {
	Page(ctx context.Context, url string) (string, error)
}

// Store is the slice of the database the pipeline needs.
type Store interface {
	HighWaterMark(ctx context.Context) (int, error)
	SaveNewEntries(ctx context.Context, entries []halloffame.Entry, highWater int) (int, error)
}

// maxFallbackContextBytes caps how much page HTML goes to the LLM.
const maxFallbackContextBytes = 4000

// Config wires a single invocation. Everything is constructed by the caller
// and passed in; nothing here is process-global.
type Config struct {
	URL      string
	Fetcher  Fetcher
	Store    Store
	Fallback ai.Extractor // optional; consulted when the structural parse fails
	Log      Logger       // optional; nil discards
}

// Result summarizes a successful invocation.
type Result struct {
	TotalProcessed     int       `json:"total_processed"`
	NewEntriesSaved    int       `json:"new_entries_saved"`
	SkippedRows        int       `json:"skipped_rows"`
	LastSavedNumber    int       `json:"last_saved_number"`
	HighestNumberFound int       `json:"highest_number_found"`
	Timestamp          time.Time `json:"timestamp"`
}

// Failure is the summary shape reported when an invocation aborts.
type Failure struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFailure wraps an error into the reportable failure shape.
func NewFailure(err error) Failure {
	return Failure{Error: err.Error(), Timestamp: time.Now().UTC()}
}

// Run executes one invocation. Row-level problems are absorbed (skipped and
// counted); fetch, structural, and database problems abort with no partial
// writes.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}

	body, err := cfg.Fetcher.Page(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}

	rows, err := halloffame.Extract(body)
	if err != nil {
		var structErr *halloffame.StructuralParseError
		if errors.As(err, &structErr) && cfg.Fallback != nil {
			log.Warnf("structural parse failed (%v), falling back to LLM extraction", err)
			rows, err = cfg.Fallback.ExtractRows(ctx, halloffame.TableHTML(body, maxFallbackContextBytes))
			if err != nil {
				return nil, fmt.Errorf("llm fallback after structural failure: %w", err)
			}
		} else if err != nil {
			return nil, err
		}
	}

	entries, skipped := halloffame.BuildEntries(rows)
	for _, s := range skipped {
		log.Warnf("skipping unparseable %v", s)
	}
	if len(entries) == 0 {
		return nil, &halloffame.StructuralParseError{Reason: "no rows survived parsing"}
	}

	highWater, err := cfg.Store.HighWaterMark(ctx)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	saved, err := cfg.Store.SaveNewEntries(ctx, entries, highWater)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	highest := 0
	for _, e := range entries {
		if e.ParticipantNumber > highest {
			highest = e.ParticipantNumber
		}
	}

	log.Infof("processed %d entries, saved %d new (high-water mark was %d, highest found %d)",
		len(entries), saved, highWater, highest)

	return &Result{
		TotalProcessed:     len(entries),
		NewEntriesSaved:    saved,
		SkippedRows:        len(skipped),
		LastSavedNumber:    highWater,
		HighestNumberFound: highest,
		Timestamp:          time.Now().UTC(),
	}, nil
}
