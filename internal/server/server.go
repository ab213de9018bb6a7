// Package server exposes the bounce classifier over HTTP: ad-hoc
// classification of a posted message, a read-only bounce report per mbox
// file in a directory, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxMessageSize bounds POST /api/classify bodies.
const maxMessageSize = 10 << 20

type Server struct {
	basePath string
	log      *slog.Logger
	mux      *http.ServeMux
}

// New serves the mbox files found in basePath.
func New(basePath string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{basePath: basePath, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("/api/classify", s.classifyHandler)
	s.mux.HandleFunc("/api/mailboxes/", s.handleMailboxRoutes)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
