package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/agenthands/medscan/internal/config"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Serve runs every enabled service on its own port until ctx is cancelled
// or one listener fails, then shuts all of them down.
func (s *Server) Serve(ctx context.Context, services config.ServicesConfig) error {
	named := services.Named()

	var servers []*http.Server
	for _, name := range Names() {
		svc := named[name]
		if !svc.Enabled {
			continue
		}
		r, err := s.Router(name)
		if err != nil {
			return err
		}
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", svc.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		})
		s.logger.Info("starting service", "service", name, "port", svc.Port)
	}
	if len(servers) == 0 {
		return config.ErrNoServices
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listener %s failed: %w", srv.Addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	s.logger.Info("all services stopped")
	return err
}
