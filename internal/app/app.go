package app

import (
	"context"

	"cache-mate/internal/circuitbreaker"
	"cache-mate/internal/common/logging"
	"cache-mate/internal/config"
	"cache-mate/internal/metrics"
	"cache-mate/internal/ratelimit"
	rediscli "cache-mate/internal/redis"
	"cache-mate/internal/registry"
	"cache-mate/internal/remotemap"
	"cache-mate/internal/resync"
)

// App holds all the application dependencies
type App struct {
	Config   *config.Config
	Redis    *rediscli.Provider
	Breaker  *circuitbreaker.Breaker
	Remote   *remotemap.Client
	Registry *registry.Registry
	Metrics  *metrics.Collector
	Resync   *resync.Scheduler
	Limiter  *ratelimit.Limiter
	Logger   logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.Component("app"),
	}

	// Initialize components in order of dependency
	app.initializeRedis()
	app.initializeCaches()
	app.Metrics = metrics.NewCollector(app.Registry)

	scheduler, err := resync.New(app.Registry, cfg.CacheResyncSchedule, logging.Component("resync"))
	if err != nil {
		app.Cleanup()
		return nil, err
	}
	app.Resync = scheduler

	if err := app.initializeRateLimiter(); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

// initializeCaches builds the remote map client and the local cache registry over the shared
// connection, both behind one circuit breaker
func (app *App) initializeCaches() {
	app.Breaker = circuitbreaker.New("redis", app.Config.Breaker(), logging.Component("circuitbreaker"))

	app.Remote = remotemap.New(app.Redis,
		remotemap.WithBreaker(app.Breaker),
		remotemap.WithLogger(logging.Component("remotemap")),
	)

	near := app.Config.NearCache()
	app.Registry = registry.New(app.Redis, registry.DefaultShapes(),
		registry.WithCapacity(near.Capacity),
		registry.WithEvictionPolicy(near.EvictionPolicy),
		registry.WithSyncStrategy(near.SyncStrategy),
		registry.WithBreaker(app.Breaker),
		registry.WithLogger(logging.Component("registry")),
	)

	app.Logger.Info("Caches: Ready",
		logging.Int("capacity", near.Capacity),
		logging.String("eviction", string(near.EvictionPolicy)),
		logging.String("sync", string(near.SyncStrategy)),
	)
}

// Shutdown stops background work and closes every local cache
func (app *App) Shutdown(ctx context.Context) error {
	if app.Resync != nil {
		app.Resync.Stop(ctx)
	}
	if app.Registry != nil {
		if err := app.Registry.Close(); err != nil {
			app.Logger.Warn("Error closing local caches", logging.Err(err))
			return err
		}
		app.Logger.Info("Local caches closed")
	}
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Warn("Error closing Redis connection", logging.Err(err))
		}
	}
}
