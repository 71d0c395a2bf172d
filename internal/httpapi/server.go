package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"tradelab/internal/domain"
	"tradelab/internal/engine"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// StatusClientClosedRequest reports a run abandoned because the caller went
// away.
const StatusClientClosedRequest = 499

// RequestIDHeader carries the per-request ID on responses.
const RequestIDHeader = "X-Request-ID"

// Runner runs backtests. *engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, req engine.Request) ([]domain.BacktestResult, error)
}

// Compile-time interface check.
var _ Runner = (*engine.Engine)(nil)

// Server serves the backtest HTTP API.
type Server struct {
	runner Runner
	log    *slog.Logger
}

// NewServer creates a Server that runs backtests on runner.
func NewServer(runner Runner, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{runner: runner, log: log.With("component", "httpapi")}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/backtests", s.handleRunBacktest)
	mux.HandleFunc("GET /api/v1/strategy-types", s.handleStrategyTypes)
	mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns an http.Handler with request-ID and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return requestIDMiddleware(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware echoes a caller-supplied request ID or assigns one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, RequestID: w.Header().Get(RequestIDHeader)})
}

// StatusFor maps a Run error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get(RequestIDHeader)
	log := s.log.With("request", reqID)

	var body BacktestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	req, err := body.EngineRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.runner.Run(r.Context(), req)
	if err != nil {
		status := StatusFor(err)
		switch {
		case status == http.StatusInternalServerError:
			log.Error("backtest failed", "error", err)
		case status != http.StatusBadRequest:
			log.Info("backtest abandoned", "error", err)
		}
		writeError(w, status, err.Error())
		return
	}

	log.Info("backtest served", "strategies", len(req.Strategies), "results", len(results))
	writeJSON(w, http.StatusOK, BacktestResponse{RequestID: reqID, Results: results})
}

func (s *Server) handleStrategyTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StrategyTypes())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
