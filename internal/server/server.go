// Package server exposes the training workbench over REST. It owns the
// single "current model" slot: an explicitly guarded handle rather than
// process-wide mutable state.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"StockPredictor/internal/usecase"
)

// Server wires the workbench to HTTP routes and holds the current model.
type Server struct {
	workbench *usecase.Workbench
	logger    *slog.Logger

	mu      sync.RWMutex
	current *usecase.ModelHandle
}

// New builds the REST surface around a workbench.
func New(wb *usecase.Workbench, logger *slog.Logger) *Server {
	return &Server{workbench: wb, logger: logger}
}

// Handler returns the route table; also used directly by tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /model/info", s.handleModelInfo)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("POST /train", s.handleTrain)
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("POST /evaluate", s.handleEvaluate)
	return mux
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) currentHandle() *usecase.ModelHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// setCurrent replaces the model slot; the last completed training wins.
func (s *Server) setCurrent(h *usecase.ModelHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = h
}

func (s *Server) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Server) logError(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
