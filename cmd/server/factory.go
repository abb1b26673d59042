package main

import (
	"net/http"

	"github.com/lychee-technology/sqlsandbox/internal/engine"
)

// Server is the thin HTTP adapter around the engine: a manual
// http.ServeMux with no router framework.
type Server struct {
	engine *engine.Engine
	mux    *http.ServeMux
}

// NewServer creates a new Server around an already-initialized engine.
func NewServer(eng *engine.Engine) *Server {
	return &Server{
		engine: eng,
		mux:    http.NewServeMux(),
	}
}

// RegisterRoutes registers the run, compare, and batch_compare endpoints.
// Auth, request audit logging, and OpenAPI docs are external collaborators
// and are not implemented here.
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("/api/v1/run", s.handleRun)
	s.mux.HandleFunc("/api/v1/compare", s.handleCompare)
	s.mux.HandleFunc("/api/v1/batch_compare", s.handleBatchCompare)
}
