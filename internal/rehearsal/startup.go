package rehearsal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"talentloop/internal/observability"
)

const (
	sessionTTL    = 2 * time.Hour
	pruneInterval = 10 * time.Minute
)

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, om *observability.ObservabilityManager) error {
	server := s.httpServer(om)

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	s.displayServerInfo(ln.Addr().String())
	return s.serve(ctx, server, ln)
}

func (s *Server) httpServer(om *observability.ObservabilityManager) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(om),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

func (s *Server) serve(ctx context.Context, server *http.Server, ln net.Listener) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting rehearsal server", "address", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-serverErrors:
			s.closeRateLimiter()
			return fmt.Errorf("server failed: %w", err)
		case <-ticker.C:
			if n := s.Sessions.Prune(time.Now().Add(-sessionTTL)); n > 0 {
				s.Logger.Debug("Pruned stale rehearsal sessions", "count", n)
			}
		case <-ctx.Done():
			s.Logger.Info("Shutdown requested, starting graceful shutdown")
			return s.performGracefulShutdown(server)
		}
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.closeRateLimiter()

	s.Logger.Info("Shutting down rehearsal server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) closeRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
