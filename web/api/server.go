// Package api exposes the coordination run over HTTP: JSON snapshots for
// dashboards and a websocket feed for live updates.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/hochfrequenz/review-coordinator/internal/config"
	"github.com/hochfrequenz/review-coordinator/internal/coord"
	"github.com/hochfrequenz/review-coordinator/internal/fetch"
)

// Server is the HTTP API server
type Server struct {
	engine  *coord.Engine
	fetcher *fetch.Fetcher
	agents  []config.Agent
	addr    string
	mux     *http.ServeMux
	hub     *wsHub
}

// NewServer creates a new API server
func NewServer(engine *coord.Engine, fetcher *fetch.Fetcher, agents []config.Agent, addr string) *Server {
	s := &Server{
		engine:  engine,
		fetcher: fetcher,
		agents:  agents,
		addr:    addr,
		mux:     http.NewServeMux(),
		hub:     newWSHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/run", s.runHandler())
	s.mux.HandleFunc("/api/agents", s.listAgentsHandler())
	s.mux.HandleFunc("/api/detection", s.detectionHandler())
	s.mux.HandleFunc("/api/comments", s.commentsHandler())
	s.mux.HandleFunc("/api/ws", s.wsHandler)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.hub.run()
	return http.ListenAndServe(s.addr, s.mux)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
