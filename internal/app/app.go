// Package app wires notesbot: database, conversation state, dispatcher,
// Telegram routes and the metrics endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/notesbot/core/bootstrap"
	"github.com/m3rciful/notesbot/core/cmd"
	"github.com/m3rciful/notesbot/core/logger"
	tg "github.com/m3rciful/notesbot/core/telegram"
	"github.com/m3rciful/notesbot/core/telegram/sender"
	"github.com/m3rciful/notesbot/internal/bot"
	"github.com/m3rciful/notesbot/internal/convstate"
	"github.com/m3rciful/notesbot/internal/flow"
	"github.com/m3rciful/notesbot/internal/metrics"
	"github.com/m3rciful/notesbot/internal/storage"
)

// App holds the running components.
type App struct {
	cfg *Config

	db      *sqlx.DB
	redis   *redis.Client
	states  convstate.Store
	reg     *prometheus.Registry
	metrics *metrics.Flow
	tg      *metrics.Telegram
	bot     *bot.Bot

	server *http.Server
}

var _ cmd.TelegramApp = (*App)(nil)

// Bootstrap initializes logging, the database and the state store and builds the dispatcher.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, db: res.DB, reg: prometheus.NewRegistry()}
	a.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewFlow(a.reg)
	a.tg = metrics.NewTelegram(a.reg)

	if err := a.openStates(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	dispatcher, err := flow.New(flow.Config{
		Gateway:       storage.NewPostgres(a.db),
		States:        a.states,
		Metrics:       a.metrics,
		LockTimeout:   cfg.Flow.LockTimeout,
		OpTimeout:     cfg.Flow.OpTimeout,
		NotesPageSize: cfg.Flow.NotesPageSize,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.bot = bot.New(dispatcher)
	return a, nil
}

func (a *App) openStates(ctx context.Context) error {
	st := a.cfg.State
	if st.Backend != StateRedis {
		store, err := convstate.NewMemoryStore(st.MemorySize)
		if err != nil {
			return err
		}
		a.states = store
		logger.Info(ctx, "app", "state.open", slog.String("backend", StateMemory))
		return nil
	}

	opts, err := redis.ParseURL(st.RedisURL)
	if err != nil {
		return fmt.Errorf("parse state.redis_url: %w", err)
	}
	a.redis = redis.NewClient(opts)
	store := convstate.NewRedisStore(a.redis, convstate.RedisOptions{
		KeyPrefix:  st.KeyPrefix,
		TTL:        st.TTL,
		LockExpiry: st.LockExpiry,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Error(ctx, "app", "state.open",
			slog.String("status", "fail"),
			slog.String("backend", StateRedis),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("redis state store: %w", err)
	}
	a.states = store
	logger.Info(ctx, "app", "state.open",
		slog.String("status", "ok"),
		slog.String("backend", StateRedis),
		slog.String("addr", opts.Addr),
	)
	return nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return tg.RunOptions{}, err
	}
	core := &a.cfg.Config
	return tg.RunOptions{
		Config:   core,
		Registry: reg,
		Sender: &sender.Options{
			QueueSize:  core.Sender.QueueSize,
			Workers:    core.Sender.Workers,
			MaxRetries: core.Sender.MaxRetries,
			OnResult:   a.tg.Sent,
		},
		Middlewares: tg.DefaultMiddlewares(core, tg.ChainOptions{
			KeyOf:   bot.KeyOf,
			Observe: a.tg.Observe,
		}),
		Routes:  a.bot.Routes(reg),
		OnStart: a.startMetrics,
		OnStop:  a.stopMetrics,
	}, nil
}

func (a *App) startMetrics(ctx context.Context, _ tg.Runtime) error {
	if a.cfg.Metrics.Listen == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{Registry: a.reg}))
	a.server = &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "app", "metrics.serve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
	logger.Info(ctx, "app", "metrics.serve",
		slog.String("status", "ok"),
		slog.String("listen", a.cfg.Metrics.Listen),
	)
	return nil
}

func (a *App) stopMetrics(ctx context.Context, _ tg.Runtime) error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

// Close releases the database pool and the Redis client.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
