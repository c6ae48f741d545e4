package api

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storebridge/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Server runs the bridge's HTTP surface and shuts it down cleanly when the
// context is cancelled, so in-flight method calls can finish replying.
type Server struct {
	httpServer *http.Server
	logg       *logger.Logger
}

func NewServer(addr string, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
		logg: logg,
	}
}

// Run serves until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logg.Info(shutdownCtx, "shutting down http server")
	return s.httpServer.Shutdown(shutdownCtx)
}
