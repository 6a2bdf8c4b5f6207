// Package server exposes the capture flow over HTTP: the surface the
// capture, verification and report screens call.
package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"receipt-lens/internal/flow"
	"receipt-lens/internal/report"
)

// BasicAuth holds basic authentication credentials. Empty credentials
// disable authentication.
type BasicAuth struct {
	Username string
	Password string
}

// Server routes capture and report requests to the per-session flows and
// the attempt store.
type Server struct {
	sessions  *flow.Sessions
	reports   *report.Service
	storage   Storage
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// New creates a Server with a default mux.
func New(sessions *flow.Sessions, reports *report.Service, storage Storage, basicAuth BasicAuth) *Server {
	return NewWithMux(sessions, reports, storage, basicAuth, http.NewServeMux())
}

// NewWithMux creates a Server with a custom mux for testing.
func NewWithMux(sessions *flow.Sessions, reports *report.Service, storage Storage, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		sessions:  sessions,
		reports:   reports,
		storage:   storage,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// Routes are registered most specific first to avoid pattern conflicts.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/captures/reset", s.requireAuth(s.handleResetCapture))
	s.mux.HandleFunc("GET /api/captures/current", s.requireAuth(s.handleCurrentCapture))
	s.mux.HandleFunc("POST /api/captures", s.requireAuth(s.handleUploadCapture))

	s.mux.HandleFunc("POST /api/attempts/{id}/verify", s.requireAuth(s.handleVerifyAttempt))
	s.mux.HandleFunc("GET /api/attempts/{id}", s.requireAuth(s.handleGetAttempt))
	s.mux.HandleFunc("DELETE /api/attempts/{id}", s.requireAuth(s.handleDeleteAttempt))
	s.mux.HandleFunc("GET /api/attempts", s.requireAuth(s.handleListAttempts))
}

func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Lens"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Session")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	log.Info().Str("address", addr).Msg("starting server")
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(s.mux.ServeHTTP)(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
