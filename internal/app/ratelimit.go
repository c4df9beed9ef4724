package app

import (
	"cache-mate/internal/common/logging"
	"cache-mate/internal/ratelimit"
)

// initializeRateLimiter builds the per-client API throttle
func (app *App) initializeRateLimiter() error {
	limiter, err := ratelimit.New(app.Config.RateLimit())
	if err != nil {
		return err
	}
	app.Limiter = limiter

	if !limiter.Enabled() {
		app.Logger.Info("Rate Limiting: Disabled")
		return nil
	}
	cfg := limiter.Config()
	app.Logger.Info("Rate Limiting: Enabled",
		logging.Int("rps", cfg.RequestsPerSecond),
		logging.Int("burst", cfg.BurstSize),
	)
	return nil
}
