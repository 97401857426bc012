// Package server provides the HTTP control surface of airpointer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/airpointer/internal/log"
	"github.com/ayusman/airpointer/internal/server/api"
	"github.com/ayusman/airpointer/internal/store"
)

// Controller is what the server needs from the control loop.
type Controller interface {
	api.Controller
	HandSource
}

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Controller Controller
	// BroadcastInterval is the landmark stream period. Defaults to ~15 Hz.
	BroadcastInterval time.Duration
}

// Server represents the HTTP server of the application.
type Server struct {
	config    Config
	mux       *http.ServeMux
	start     time.Time
	landmarks *LandmarksHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Controller != nil {
		control := api.NewControlHandler(s.config.Controller)
		s.mux.Handle("/api/status", control)
		s.mux.Handle("/api/control/", control)
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Controller, s.config.Store))

		s.landmarks = NewLandmarksHandler(s.config.Controller, s.config.BroadcastInterval)
		s.mux.Handle("/api/landmarks", s.landmarks)
	}

	if s.config.Store != nil {
		var ctrl api.Controller
		if s.config.Controller != nil {
			ctrl = s.config.Controller
		}
		runs := api.NewRunsHandler(s.config.Store, ctrl)
		s.mux.Handle("/api/runs", runs)
		s.mux.Handle("/api/runs/", runs)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Close stops the landmark broadcaster and disconnects its clients.
func (s *Server) Close() {
	if s.landmarks != nil {
		s.landmarks.Close()
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
