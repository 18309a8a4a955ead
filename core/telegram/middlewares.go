package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/notesbot/core/config"
	"github.com/m3rciful/notesbot/core/telegram/callbacks"
	"github.com/m3rciful/notesbot/core/telegram/middleware"
)

// ChainOptions feeds DefaultMiddlewares.
type ChainOptions struct {
	// KeyOf names callback data for logs.
	KeyOf     callbacks.KeyFunc
	OnLimited tele.HandlerFunc
	Observe   middleware.ObserveFunc
}

// DefaultMiddlewares builds the global chain: logging context first, then
// panic recovery, metrics and the optional rate limit.
func DefaultMiddlewares(cfg *coreconfig.Config, opts ChainOptions) []Middleware {
	mws := []Middleware{
		{Name: "logger", Use: middleware.Logger(opts.KeyOf)},
		{Name: "recover", Use: middleware.Recover},
	}
	if opts.Observe != nil {
		mws = append(mws, Middleware{Name: "metrics", Use: middleware.Observe(opts.Observe)})
	}

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			exclude[kind] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimit(middleware.RateLimitOptions{
				Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:   exclude,
				OnLimited: opts.OnLimited,
			}),
		})
	}
	return mws
}
