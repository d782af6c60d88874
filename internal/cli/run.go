package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/studio/pkg/adapters/http"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Run drives the studio frame loop and, when configured, the HTTP inspector
// until ctx is done or either fails. The journal is saved on the way out.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Studio.Run(gctx, a.Config.FrameInterval())
	})

	if addr := a.Config.HTTP.Addr; addr != "" {
		srv := &http.Server{
			Addr: addr,
			Handler: httpadapter.NewHandler(a.Studio,
				httpadapter.WithGatherer(a.Registry),
				httpadapter.WithStreams(a.Streams),
				httpadapter.WithLogger(a.logger),
			),
			ReadHeaderTimeout: 5 * time.Second,
			// Streams end with the studio instead of holding Shutdown open.
			BaseContext: func(net.Listener) context.Context { return gctx },
		}

		g.Go(func() error {
			a.logger.Info("inspector listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				a.logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			return nil
		})
	}

	err := g.Wait()
	a.logger.Info("studio stopped")
	return err
}
