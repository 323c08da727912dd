package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wiratama/idx-broker-crawler/internal/broker"
)

// HealthSource reports storage health for the /healthz endpoint.
type HealthSource interface {
	Health(ctx context.Context) broker.HealthStatus
}

// Server exposes /metrics and /healthz while a run executes.
type Server struct {
	addr   string
	health HealthSource
	logger *zap.Logger
}

// NewServer constructs a Server.
func NewServer(addr string, health HealthSource, logger *zap.Logger) *Server {
	return &Server{addr: addr, health: health, logger: logger}
}

// Run serves until the context finishes, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.healthz)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("telemetry server shutdown failed", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	status := broker.HealthStatus{Status: "healthy", Connected: true}
	if s.health != nil {
		status = s.health.Health(r.Context())
	}
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn("write health response failed", zap.Error(err))
	}
}
