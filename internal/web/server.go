// Package web serves the scan API: scans run as background jobs and their
// results, remediation and reports are fetched over HTTP.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/buemura/zapscan/internal/policy"
	"github.com/buemura/zapscan/internal/scanner"
	"github.com/buemura/zapscan/internal/web/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthFunc queries the engine and returns its version.
type HealthFunc func(ctx context.Context) (string, error)

// Options carries the optional parts of a Server.
type Options struct {
	Logger *slog.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Health is consulted by /health when set.
	Health HealthFunc
	// ScanDefaults are applied to every scan before the request's options.
	ScanDefaults []scanner.ScanOption
}

// Server is the HTTP server for the zapscan API.
type Server struct {
	router   chi.Router
	addr     string
	manager  *jobs.Manager
	policies *policy.Manager
	opts     Options
	http     *http.Server
}

// NewServer builds a new Server with middleware and routes configured.
func NewServer(addr string, manager *jobs.Manager, policies *policy.Manager, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		router:   chi.NewRouter(),
		addr:     addr,
		manager:  manager,
		policies: policies,
		opts:     opts,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(opts.Logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.registerRoutes()

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening on the configured address. It returns nil after
// Shutdown.
func (s *Server) Start() error {
	s.opts.Logger.Info("listening", "addr", s.addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then cancels running scans and waits
// for them to release their engine resources.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.http.Shutdown(ctx)
	jobsErr := s.manager.Shutdown(ctx)
	return errors.Join(httpErr, jobsErr)
}

// Router exposes the chi.Router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
