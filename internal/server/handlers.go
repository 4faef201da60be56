package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nolasundae/hofmirror/pkg/storage"
)

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.ListOptions{
		Search: q.Get("search"),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			http.Error(w, "since must be RFC3339", http.StatusBadRequest)
			return
		}
		opts.Since = t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		opts.Limit = n
	}

	entries, err := s.DB.ListEntries(r.Context(), opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []storage.StoredEntry{}
	}
	writeJSON(w, entries)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := s.DB.LatestEntry(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if latest == nil {
		http.Error(w, "no entries yet", http.StatusNotFound)
		return
	}
	writeJSON(w, latest)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
