// Package server exposes the overlay feed and debug endpoints over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"handteleop/internal/capture"
	"handteleop/internal/transport"
)

// Config holds the server configuration.
type Config struct {
	Camera capture.Camera
	Sender transport.Sender
}

// Server serves the overlay WebSocket, a debug MJPEG stream, and a health
// endpoint.
type Server struct {
	config  Config
	mux     *http.ServeMux
	overlay *OverlayHandler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config:  config,
		mux:     http.NewServeMux(),
		overlay: NewOverlayHandler(),
		start:   time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/overlay", s.overlay)

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera))
	}
}

// Overlay returns the handler the pipeline publishes overlay payloads to.
func (s *Server) Overlay() *OverlayHandler {
	return s.overlay
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
	if s.config.Sender != nil {
		response["transport"] = s.config.Sender.State().String()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
