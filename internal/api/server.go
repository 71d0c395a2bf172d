// Package api hosts the tradelab HTTP and gRPC endpoints and defines the
// gRPC Backtest service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc"

	"tradelab/internal/config"
	"tradelab/internal/httpapi"
)

// Server is the main API server that hosts HTTP and gRPC endpoints.
type Server struct {
	httpAddr string
	grpcAddr string
	http     *http.Server
	grpc     *grpc.Server
	log      *slog.Logger
}

// NewServer creates a new Server configured from the given Config, serving
// backtests on runner.
func NewServer(cfg *config.Config, runner httpapi.Runner, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		httpAddr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		grpcAddr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCPort)),
		grpc:     NewGRPCServer(runner, log),
		log:      log.With("component", "api"),
	}
	s.http = &http.Server{
		Addr:              s.httpAddr,
		Handler:           httpapi.NewServer(runner, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts the HTTP and gRPC listeners and blocks until the
// context is cancelled or a listener fails. On cancellation both servers
// are shut down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	hl, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpAddr, err)
	}
	gl, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		hl.Close()
		return fmt.Errorf("listening on %s: %w", s.grpcAddr, err)
	}
	return s.Serve(ctx, hl, gl)
}

// Serve serves HTTP on hl and gRPC on gl until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, hl, gl net.Listener) error {
	errCh := make(chan error, 2)
	go func() {
		s.log.Info("http listening", "addr", hl.Addr().String())
		if err := s.http.Serve(hl); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		s.log.Info("grpc listening", "addr", gl.Addr().String())
		if err := s.grpc.Serve(gl); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.shutdown()
		return err
	}
	s.shutdown()
	return nil
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.log.Warn("shutdown", "error", err)
	}
}

// Shutdown performs a graceful shutdown of the HTTP and gRPC servers.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	err := s.http.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
	s.log.Info("servers stopped")
	return err
}
