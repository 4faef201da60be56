package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nolasundae/hofmirror/pkg/halloffame"
	"github.com/nolasundae/hofmirror/pkg/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	entries := []halloffame.Entry{}
	for i, raw := range []string{"PHILLIP FANGUE", "STEVEN HAMMOND 7 MINUTES", "Bob Jones, 2nd time"} {
		name, note := halloffame.Parse(raw)
		entries = append(entries, halloffame.Entry{
			ParticipantNumber: 749 + i,
			Name:              name,
			OriginalName:      raw,
			DateText:          "5/11/25",
			Date:              time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC),
			Note:              note,
		})
	}
	_, err = db.SaveNewEntries(context.Background(), entries, 0)
	require.NoError(t, err)

	return New(db, "", "")
}

func TestHandleEntries(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleEntries(rec, httptest.NewRequest(http.MethodGet, "/api/entries", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []storage.StoredEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	// Newest first.
	require.Equal(t, 751, entries[0].ParticipantNumber)
}

func TestHandleEntriesFilters(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.handleEntries(rec, httptest.NewRequest(http.MethodGet, "/api/entries?search=BOB&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []storage.StoredEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "BOB JONES", entries[0].Name)

	rec = httptest.NewRecorder()
	s.handleEntries(rec, httptest.NewRequest(http.MethodGet, "/api/entries?since=nope", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.handleEntries(rec, httptest.NewRequest(http.MethodGet, "/api/entries?limit=-1", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStats(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats storage.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 3, stats.TotalEntries)
	require.Equal(t, 751, stats.HighWaterMark)
}

func TestHandleLatest(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleLatest(rec, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var latest storage.StoredEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.Equal(t, 751, latest.ParticipantNumber)
}

func TestBasicAuth(t *testing.T) {
	s := testServer(t)
	s.Username = "op"
	s.Password = "secret"

	handler := s.basicAuth(s.handleStats)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.SetBasicAuth("op", "secret")
	handler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
