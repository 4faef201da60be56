package server

import (
	"net/http"

	"github.com/nolasundae/hofmirror/internal/utils"
	"github.com/nolasundae/hofmirror/pkg/storage"
)

// Server exposes the mirrored entries over a small read-only JSON API.
type Server struct {
	DB       *storage.DB
	Username string
	Password string
}

func New(db *storage.DB, user, pass string) *Server {
	return &Server{
		DB:       db,
		Username: user,
		Password: pass,
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/entries", s.basicAuth(s.handleEntries))
	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("GET /api/latest", s.basicAuth(s.handleLatest))

	utils.Log.Infof("Starting server on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
