package observe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
	"github.com/daesuck/AI-Audio-Responsive-Production/logging"
)

// StatusServer exposes the engine read-only over HTTP: GET /status returns
// the engine snapshot as JSON, GET /metrics serves the Prometheus scrape
// endpoint. It never mutates engine state.
type StatusServer struct {
	srv    *http.Server
	logger logging.Logger
}

// NewStatusServer creates a server for the given listen address.
func NewStatusServer(addr string, status func() engine.Status) *StatusServer {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return &StatusServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logging.WithFields(logging.Fields{"component": "status_server", "addr": addr}),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *StatusServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
