// Package server exposes the daemon's control API over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/devnet-tools/devnetctl/internal/app"
)

// Server hosts the JSON control API for a running daemon.
type Server struct {
	app  *app.App
	log  *slog.Logger
	http *http.Server
}

// New creates the server bound to the configured listen address.
func New(a *app.App) *Server {
	s := &Server{
		app: a,
		log: a.Log.With("component", "server"),
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.Router())

	s.http = &http.Server{
		Addr:              a.Config.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route table. Exposed for tests.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1.HandleFunc("/nodes", s.handleListNodes).Methods(http.MethodGet)
	v1.HandleFunc("/nodes", s.handleStartNode).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/stop-all", s.handleStopAll).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/{id}", s.handleShowNode).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}", s.handleStopNode).Methods(http.MethodDelete)

	v1.HandleFunc("/nodes/{id}/snapshots", s.handleListSnapshots).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}/snapshots", s.handleCaptureSnapshot).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/{id}/snapshots/revert", s.handleRevertSnapshot).Methods(http.MethodPost)

	v1.HandleFunc("/nodes/{id}/impersonations", s.handleListImpersonations).Methods(http.MethodGet)
	v1.HandleFunc("/nodes/{id}/impersonations", s.handleStartImpersonation).Methods(http.MethodPost)
	v1.HandleFunc("/nodes/{id}/impersonations/{address}", s.handleStopImpersonation).Methods(http.MethodDelete)

	return r
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info("control API listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
