// Copyright 2025 CreativeGHQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the orchestrator over HTTP: job lifecycle
// endpoints, metadata validation, and websocket progress streaming.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/metadata"
	"github.com/creativeghq/matflow/orchestrator"
	"github.com/creativeghq/matflow/storage"
)

// Server is the admin HTTP surface of a matflow daemon.
type Server struct {
	orch      *orchestrator.Orchestrator
	store     storage.Store
	validator *metadata.Validator
	gateway   *ai.Gateway
	logger    *slog.Logger

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server bound to addr.
func New(addr string, orch *orchestrator.Orchestrator, store storage.Store, validator *metadata.Validator, gateway *ai.Gateway, opts ...Option) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}

	s := &Server{
		orch:      orch,
		store:     store,
		validator: validator,
		gateway:   gateway,
		logger:    slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the route table, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /jobs", s.handleSubmitJob)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /jobs/{id}/cancel", s.handleCancelJob)
	mux.HandleFunc("POST /jobs/{id}/resume", s.handleResumeJob)
	mux.HandleFunc("GET /jobs/{id}/checkpoints", s.handleListCheckpoints)
	mux.HandleFunc("GET /jobs/{id}/products", s.handleListProducts)
	mux.HandleFunc("GET /jobs/{id}/ai-usage", s.handleJobUsage)
	mux.HandleFunc("GET /jobs/{id}/stream", s.handleStream)

	mux.HandleFunc("POST /validate-metadata", s.handleValidateMetadata)
	mux.HandleFunc("GET /properties", s.handleListProperties)
	mux.HandleFunc("POST /properties/{key}/prototypes", s.handlePutPrototype)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

// Start serves until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
