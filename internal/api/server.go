// Package api is the perchd HTTP server: a JSON API over internal/serverdb
// for accounts, the shared timeline, likes, and media uploads.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/myles/perch/internal/serverdb"
)

// Server is the HTTP API server for perchd.
type Server struct {
	config Config
	http   *http.Server
	store  *serverdb.ServerDB
}

// NewServer creates a new Server with the given config and store.
func NewServer(cfg Config, store *serverdb.ServerDB) (*Server, error) {
	if err := os.MkdirAll(cfg.MediaDir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	s := &Server{
		config: cfg,
		store:  store,
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Auth (public)
	mux.HandleFunc("POST /v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)

	// Timeline
	mux.HandleFunc("GET /v1/timeline", s.requireAuth(s.handleTimeline))
	mux.HandleFunc("GET /v1/timeline/newer", s.requireAuth(s.handleNewer))

	// Posts
	mux.HandleFunc("POST /v1/posts", s.requireAuth(s.handleCreatePost))
	mux.HandleFunc("DELETE /v1/posts/{id}", s.requireAuth(s.handleDeletePost))
	mux.HandleFunc("POST /v1/posts/{id}/like", s.requireAuth(s.handleLike))
	mux.HandleFunc("DELETE /v1/posts/{id}/like", s.requireAuth(s.handleUnlike))

	// Media
	mux.HandleFunc("POST /v1/media", s.requireAuth(s.handleUploadMedia))
	mux.HandleFunc("GET /media/{name}", s.handleServeMedia)

	return chain(mux, recoverMiddleware, traceMiddleware, accessLog, limitBody(s.config.MaxUploadBytes+1<<20))
}

// handleHealth returns a health check response, pinging the server DB.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
