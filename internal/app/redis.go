package app

import (
	"context"
	"time"

	"cache-mate/internal/common/logging"
	rediscli "cache-mate/internal/redis"
)

// startupPingTimeout bounds the connection check made while booting
const startupPingTimeout = 5 * time.Second

// initializeRedis creates the shared connection provider. An unreachable store at boot is
// logged, not fatal: the provider reconnects on first use and /health reports the outage.
func (app *App) initializeRedis() {
	app.Redis = rediscli.NewProvider(app.Config.Redis(), logging.Component("redis"))

	ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
	defer cancel()

	if err := app.Redis.Health(ctx); err != nil {
		app.Logger.Warn("Redis: Not reachable at startup, continuing",
			logging.Strings("addresses", app.Config.Addresses()),
			logging.Err(err),
		)
		return
	}
	app.Logger.Info("Redis: Connected",
		logging.Strings("addresses", app.Config.Addresses()),
		logging.String("topology", app.Config.RedisTopology),
	)
}
