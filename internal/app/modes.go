package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/feedsim/internal/server"
	"github.com/alanyoungcy/feedsim/internal/server/handler"
	"github.com/alanyoungcy/feedsim/internal/view"
)

// ServeMode starts the house feed, the WebSocket hub, and the HTTP server,
// then blocks until the context is cancelled or a subsystem fails.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode",
		slog.Int("port", a.cfg.Server.Port),
		slog.Bool("redis_mirror", deps.Bus != nil),
	)

	g, ctx := errgroup.WithContext(ctx)

	// House feed: backs HTTP pagination and the optional Redis mirror.
	g.Go(func() error {
		return deps.HouseFeed.Run(ctx)
	})

	// Hub registry loop.
	g.Go(func() error {
		return deps.Hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		History: handler.NewHistoryHandler(deps.HouseFeed, a.cfg.Feed.HistoryPageLimit, a.logger),
		Stats:   handler.NewStatsHandler(deps.Hub, deps.HouseFeed, deps.StartedAt, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, deps.Hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// ViewMode dials the streaming endpoint and runs the local reconciler: the
// socket feeds snapshots, pages, and live updates into the reconciler, and
// the reconciler flushes queued trade prints on the display cadence.
func (a *App) ViewMode(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting view mode",
		slog.String("server_url", a.cfg.Client.ServerURL),
	)

	rec := view.NewReconciler(view.Config{
		SeriesCapacity:   a.cfg.Client.SeriesCapacity,
		TradeLogCapacity: a.cfg.Client.TradeLogCapacity,
		FlushInterval:    a.cfg.Client.FlushInterval(),
	}, a.logger)

	sock := view.NewSocket(a.cfg.Client.ServerURL, rec, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rec.Run(ctx)
	})

	g.Go(func() error {
		defer sock.Close()
		return sock.Run(ctx)
	})

	return g.Wait()
}
