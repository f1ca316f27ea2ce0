package factory

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/fhecity/internal/config"
	"github.com/mcoot/fhecity/internal/dependencies/clock"
	"github.com/mcoot/fhecity/internal/dependencies/random"
	"github.com/mcoot/fhecity/internal/events"
	"github.com/mcoot/fhecity/internal/fhe/sealed"
	"github.com/mcoot/fhecity/internal/services/auth"
	"github.com/mcoot/fhecity/internal/services/city"
	"github.com/mcoot/fhecity/internal/services/gateway"
	"github.com/mcoot/fhecity/internal/storage"
	"github.com/mcoot/fhecity/internal/storage/memory"
	redisstorage "github.com/mcoot/fhecity/internal/storage/redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Engine *sealed.Engine

	// Services
	AuthService    *auth.Service
	CityController *city.Controller
	GatewayService *gateway.Service
	HubManager     *events.HubManager
	Broadcaster    *events.Broadcaster

	closers []io.Closer
}

// New creates a new application with all dependencies wired
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	// Use no-op logger if not provided
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		store   storage.Storage
		closers []io.Closer
	)
	switch cfg.Storage.Type {
	case config.StorageTypeMemory:
		store = memory.New()
	case config.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		redisCfg.EventLogSize = cfg.Storage.EventLogSize
		redisCfg.Logger = logger
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		store = redisStore
		closers = append(closers, redisStore)
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	key, err := cfg.Engine.KeyBytes()
	if err != nil {
		return nil, err
	}
	if key == nil {
		logger.Warn("no engine key configured, generating an ephemeral key; stored ciphertexts will not survive a restart")
		if key, err = sealed.GenerateKey(rnd); err != nil {
			return nil, err
		}
	}
	engine, err := sealed.New(key, rnd)
	if err != nil {
		return nil, err
	}

	authCfg := auth.DefaultConfig()
	if cfg.Auth.SessionDuration > 0 {
		authCfg.SessionDuration = cfg.Auth.SessionDuration
	}

	app := newWithDependencies(store, engine, clk, rnd, authCfg, city.Config{StoreID: cfg.Engine.StoreID}, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	engine *sealed.Engine,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	cityCfg city.Config,
	logger *slog.Logger,
) *App {
	hubManager := events.NewHubManager(logger)
	broadcaster := events.NewBroadcaster(hubManager, store, clk, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Engine:         engine,
		AuthService:    auth.New(store, clk, rnd, logger, authCfg),
		CityController: city.NewController(store, engine, clk, broadcaster, logger, cityCfg),
		GatewayService: gateway.New(engine, logger),
		HubManager:     hubManager,
		Broadcaster:    broadcaster,
	}
}

// Close releases hubs and storage connections
func (a *App) Close() error {
	a.HubManager.Close()
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
