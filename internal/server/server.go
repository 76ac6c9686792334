package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/electivepro/internal/bootstrap"
	"github.com/yigit/electivepro/internal/pkg/helpers"
)

// Server runs the HTTP API and releases its resources on shutdown.
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
	closers         []func()
	logger          zerolog.Logger
}

// New wraps handler in an http.Server listening on addr. closers run in
// order after the listener has drained.
func New(addr string, handler http.Handler, shutdownTimeout time.Duration, logger zerolog.Logger, closers ...func()) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			// CSV exports stream whole offerings
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		closers:         closers,
		logger:          logger,
	}
}

// NewServer builds the API from configuration: database, migrations, seed
// data, services and routes.
func NewServer() (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	dbPool, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(cfg, dbPool, lgr)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	router, err := bootstrap.SetupRouter(cfg, deps, lgr)
	if err != nil {
		deps.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	timeout := helpers.ParseDuration(cfg.Server.ShutdownTimeout, 15*time.Second)
	return New(":"+cfg.Server.Port, router, timeout, lgr, deps.Close, dbPool.Close), nil
}

// Run serves until ctx is cancelled or the listener fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		s.release()
		return fmt.Errorf("error starting server: %w", err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		serveErr <- s.http.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		s.release()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server stopped: %w", err)
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	s.release()
	if err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info().Msg("Server stopped")
	return nil
}

func (s *Server) release() {
	for _, closeFn := range s.closers {
		closeFn()
	}
	s.closers = nil
}
