package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/openbuilders/sol-batch-sender/internal/health"
	"github.com/openbuilders/sol-batch-sender/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// APIHandler is a custom handler type that returns data or an error
type APIHandler func(w http.ResponseWriter, r *http.Request) (interface{}, error)

type HealthChecker interface {
	GetHealthStatus() health.HealthStatus
}

// Server exposes health probes and Prometheus metrics on two ports.
type Server struct {
	config  *Config
	checker HealthChecker
	ready   atomic.Bool
	log     *slog.Logger
}

type Config struct {
	ListenAddr   string
	MetricsPort  int
	ProbesPort   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	ID           string
}

func NewServer(config *Config, checker HealthChecker) *Server {
	return &Server{
		config:  config,
		checker: checker,
		log:     slog.With("pod", config.ID, "component", "web-server"),
	}
}

// SetReady flips the readiness probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) ProbesHandler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", WithMethod(
		WithJSONResponse(s.HealthHandler),
		http.MethodGet,
	))

	mux.Handle("/ready", WithMethod(
		WithJSONResponse(s.ReadinessHandler),
		http.MethodGet,
	))

	return mux
}

func (s *Server) MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	return mux
}

func (s *Server) HealthHandler(w http.ResponseWriter,
	r *http.Request) (interface{}, error) {

	status := s.checker.GetHealthStatus()
	if !status.Healthy {
		return status, ErrUnhealthy
	}

	return status, nil
}

func (s *Server) ReadinessHandler(w http.ResponseWriter,
	r *http.Request) (interface{}, error) {

	if !s.ready.Load() {
		return nil, ErrNotReady
	}

	return "ready", nil
}

// Start serves probes and metrics until ctx is done, then shuts both
// listeners down.
func (s *Server) Start(ctx context.Context) error {
	servers := []*http.Server{
		s.newHTTPServer(s.config.ProbesPort, s.ProbesHandler()),
		s.newHTTPServer(s.config.MetricsPort, s.MetricsHandler()),
	}

	group, ctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		group.Go(func() error {
			s.log.Info("Starting server", "addr", srv.Addr)

			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()

		s.log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.log.Error("Server forced to shutdown", "addr", srv.Addr, "error", err)
			}
		}

		s.log.Info("Server exiting")

		return nil
	})

	return group.Wait()
}

func (s *Server) newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.ListenAddr, port),
		Handler:      http.TimeoutHandler(handler, s.config.WriteTimeout, "Timeout"),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}
