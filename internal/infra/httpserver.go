package infra

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net"
	"net/http"

	"github.com/rs/zerolog"
)

// HTTPServer serves the ledger API until its context ends, then drains
// in-flight requests for at most cfg.ShutdownTimeout.
type HTTPServer struct {
	server  *http.Server
	cfg     *Config
	logger  zerolog.Logger
	started chan net.Addr
}

func NewHTTPServer(cfg *Config, handler http.Handler, logger zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: cfg.HTTPHeaderTimeout,
			WriteTimeout:      cfg.HTTPWriteTimeout,
			IdleTimeout:       cfg.HTTPIdleTimeout,
			ErrorLog:          stdlog.New(logger.With().Str("component", "http").Logger(), "", 0),
		},
		cfg:     cfg,
		logger:  logger.With().Str("component", "http").Logger(),
		started: make(chan net.Addr, 1),
	}
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

// Started yields the bound address once the listener is open.
func (s *HTTPServer) Started() <-chan net.Addr {
	return s.started
}

// Serve listens on the configured port and blocks until ctx is cancelled or
// the listener fails. A cancelled ctx is a clean stop and returns nil.
func (s *HTTPServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	s.started <- ln.Addr()

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Dur("timeout", s.cfg.ShutdownTimeout).Msg("draining connections")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("shutdown incomplete")
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
