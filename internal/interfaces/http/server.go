package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/molgrid/pkg/errors"
)

// Server wraps http.Server with molgrid's timeouts. Write timeout is generous
// because a dense grid response can run to hundreds of megabytes.
type Server struct {
	srv    *http.Server
	router http.Handler
	logger logging.Logger
}

func NewServer(addr string, router http.Handler, logger logging.Logger) *Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{srv: srv, router: router, logger: logger}
}

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", logging.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "http server failed")
	}
	return nil
}

func (s *Server) Stop(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := s.srv.Shutdown(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "server shutdown failed")
	}
	s.logger.Info("HTTP server stopped", logging.Duration("drain", time.Since(start)))
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

//Personal.AI order the ending
