package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/fhecity/internal/api"
	"github.com/mcoot/fhecity/internal/api/middleware"
	"github.com/mcoot/fhecity/internal/config"
	"github.com/mcoot/fhecity/internal/factory"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		return err
	}

	app, err := factory.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("error closing application", slog.String("error", err.Error()))
		}
	}()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter, err = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			MaxClients:        cfg.RateLimit.MaxClients,
		})
		if err != nil {
			return err
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		CityController: app.CityController,
		GatewayService: app.GatewayService,
		Storage:        app.Storage,
		HubManager:     app.HubManager,
		RateLimiter:    limiter,
	})
	server := api.NewServer(router, cfg.Server, logger)
	// End event streams so draining does not wait on them
	server.OnShutdown(app.HubManager.Close)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.ListenAndServe(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		return server.Shutdown(context.WithoutCancel(ctx))
	})

	g.Go(func() error {
		cleanup(ctx, app, cfg.Server.CleanupInterval, logger)
		return nil
	})

	return g.Wait()
}

// cleanup periodically drops expired sessions and idle event hubs
func cleanup(ctx context.Context, app *factory.App, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions := app.AuthService.CleanExpiredSessions()
			hubs := app.HubManager.CleanupEmptyHubs()
			logger.Debug("periodic cleanup",
				slog.Int("expired_sessions", sessions),
				slog.Int("empty_hubs", hubs))
		}
	}
}
