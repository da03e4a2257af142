// Package api exposes a node over HTTP and streams new snapshots over a
// WebSocket.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/roach88/dlog/internal/node"
	"github.com/roach88/dlog/internal/universe"
)

// Server routes HTTP requests to a node.
type Server struct {
	node   *node.Node
	logger *slog.Logger
	mux    *http.ServeMux
}

// New builds a server for n. A nil logger uses slog.Default().
func New(n *node.Node, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{node: n, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /snapshot", s.handleLatestSnapshot)
	s.mux.HandleFunc("POST /fold", s.handleFold)
	s.mux.HandleFunc("GET /snapshots", s.handleListSnapshots)
	s.mux.HandleFunc("GET /snapshots/stream", s.handleStream)
	s.mux.HandleFunc("GET /snapshots/{height}", s.handleSnapshot)
	s.mux.HandleFunc("GET /snapshots/{height}/verify", s.handleVerify)
	s.mux.HandleFunc("GET /snapshots/{height}/proof/{owner}/{label}", s.handleProof)
	s.mux.HandleFunc("GET /snapshots/{height}/balances/{owner}/{label}", s.handleBalanceAt)

	s.mux.HandleFunc("GET /balances/{owner}/{label}", s.handleBalance)
	s.mux.HandleFunc("GET /balances/{owner}/{label}/history", s.handleBalanceHistory)

	s.mux.HandleFunc("POST /transfers", s.handleTransfer)
	s.mux.HandleFunc("POST /mints", s.handleMint)
	s.mux.HandleFunc("POST /burns", s.handleBurn)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.logger.Debug("http request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes through to the underlying writer so WebSocket upgrades
// work behind the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    universe.ErrorCode `json:"code"`
	Message string             `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("write response failed", "error", err)
	}
}

// writeError maps err to a status and writes it as an errorBody.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}

	body := errorBody{Code: universe.CodeOf(err), Message: err.Error()}
	var le *universe.LedgerError
	if errors.As(err, &le) {
		body.Message = le.Message
	}
	s.writeJSON(w, status, body)
}

// statusFor maps ledger error codes to HTTP statuses.
func statusFor(err error) int {
	if errors.Is(err, node.ErrSnapshotNotFound) {
		return http.StatusNotFound
	}
	var bad *badRequestError
	if errors.As(err, &bad) {
		return http.StatusBadRequest
	}

	switch universe.CodeOf(err) {
	case universe.CodeInvalidAmount:
		return http.StatusBadRequest
	case universe.CodeInsufficientBalance:
		return http.StatusConflict
	case universe.CodeUnknownLabel:
		return http.StatusNotFound
	case universe.CodeRootMismatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// badRequestError marks malformed requests (bad JSON, bad path values).
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}
