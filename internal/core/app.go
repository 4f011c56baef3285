package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"relaybot/internal/access"
	"relaybot/internal/adapters/telegram"
	"relaybot/internal/kit"
	"relaybot/internal/services/broadcast"
	"relaybot/internal/services/scheduler"
	"relaybot/internal/storage"
	"relaybot/pkg/logx"
)

const (
	updateBuffer    = 256
	jobTimeout      = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// App owns the full wiring: config, store, adapter, router, services. It is
// built once in main and driven by Start/Stop.
type App struct {
	cfgMgr  *ConfigManager
	logs    *logx.Service
	log     logx.Logger
	store   storage.Store
	adapter *telegram.Adapter
	policy  *access.Policy
	caster  *broadcast.Service
	sched   *scheduler.Service
	router  *CommandManager

	updates chan kit.Update
	sup     *Supervisor
}

func NewApp(cfgPath string) (*App, error) {
	cfgMgr := NewConfigManager(cfgPath)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return nil, fmt.Errorf("telegram token is not set (config telegram.token or %s)", EnvBotToken)
	}

	boot := logx.NewConsole(cfg.Logging.Level)

	pollTimeout, _ := parseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, boot)
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	logs, log := logx.New(logxConfig(cfg), adapter)
	logs.SetTelegramTarget(cfg.Telegram.LogChatID)
	cfgMgr.SetLogger(log.With(logx.String("comp", "config")))

	busy, _ := parseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	policy := access.NewPolicy(store, log.With(logx.String("comp", "access")))
	caster := broadcast.New(broadcast.Config{RatePerSec: cfg.Broadcast.RatePerSec},
		adapter, log.With(logx.String("comp", "broadcast")))

	sched := scheduler.New(scheduler.Config{
		Enabled:        cfg.Maintenance.Enabled,
		DefaultTimeout: jobTimeout,
	}, log.With(logx.String("comp", "scheduler")))

	router := NewCommandManager(log.With(logx.String("comp", "router")), adapter, policy)
	handlers := NewHandlers(store, caster, log.With(logx.String("comp", "handlers")))
	router.Register(handlers.Commands()...)
	router.SetGroupHandler(handlers.RegisterGroup)
	router.SetTextHandler(handlers.Broadcast)

	app := &App{
		cfgMgr:  cfgMgr,
		logs:    logs,
		log:     log,
		store:   store,
		adapter: adapter,
		policy:  policy,
		caster:  caster,
		sched:   sched,
		router:  router,
		updates: make(chan kit.Update, updateBuffer),
	}
	if err := app.registerJobs(cfg); err != nil {
		_ = store.Close()
		_ = logs.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) registerJobs(cfg *Config) error {
	if err := a.sched.Add("store.stats", cfg.Maintenance.StatsSchedule, func(ctx context.Context) error {
		st, err := a.store.Stats(ctx)
		if err != nil {
			return err
		}
		a.log.Info("store stats",
			logx.Int("chats", st.Chats),
			logx.Int("admins", st.Admins),
			logx.Int("owners", st.Owners))
		return nil
	}); err != nil {
		return err
	}
	return a.sched.Add("store.optimize", cfg.Maintenance.OptimizeSchedule, func(ctx context.Context) error {
		return a.store.Maintain(ctx)
	})
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgMgr.Get()

	a.sup = NewSupervisor(ctx,
		WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		WithCancelOnError(true))

	if err := a.seedOwners(ctx, cfg.Telegram.OwnerUserIDs); err != nil {
		return err
	}

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return fmt.Errorf("start adapter: %w", err)
	}
	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	}

	a.sup.Go("commands.dispatch", func(ctx context.Context) error {
		return a.router.DispatchLoop(ctx, a.updates)
	})

	reloads := a.cfgMgr.Subscribe(1)
	a.sup.Go("config.reload", func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case next := <-reloads:
				a.applyReload(ctx, next)
			}
		}
	})
	a.sup.Go("config.watch", a.cfgMgr.Watch)

	a.log.Info("started")
	return nil
}

// applyReload pushes hot-reloadable settings into running services. The
// token, storage path, and poll timeout are fixed for the process lifetime.
func (a *App) applyReload(ctx context.Context, cfg *Config) {
	a.logs.Apply(logxConfig(cfg))
	a.logs.SetTelegramTarget(cfg.Telegram.LogChatID)
	a.caster.Apply(broadcast.Config{RatePerSec: cfg.Broadcast.RatePerSec})
	if err := a.seedOwners(ctx, cfg.Telegram.OwnerUserIDs); err != nil {
		a.log.Warn("owner re-seed failed", logx.Err(err))
	}
	a.log.Info("config reloaded")
}

// seedOwners grants owner status to every configured id. Grants are monotonic
// so repeating this on reload is harmless.
func (a *App) seedOwners(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if err := a.store.GrantAdmin(ctx, id, true); err != nil {
			return fmt.Errorf("seed owner %d: %w", id, err)
		}
	}
	ok, err := a.store.HasAnyOwner(ctx)
	if err != nil {
		return err
	}
	if !ok {
		a.log.Warn("no owners configured; owner commands are unreachable",
			logx.String("hint", "set "+EnvOwnerIDs+" or telegram.owner_user_ids"))
	}
	return nil
}

// Wait blocks until a supervised goroutine fails or ctx is canceled.
func (a *App) Wait(ctx context.Context) error {
	err := a.sup.Wait(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Stop(ctx context.Context) {
	a.log.Info("stopping")

	a.sched.Stop(ctx)
	if err := a.adapter.Stop(ctx); err != nil {
		a.log.Warn("adapter stop", logx.Err(err))
	}

	if a.sup != nil {
		a.sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.sup.Wait(wctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("shutdown wait", logx.Err(err))
		}
		cancel()
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close", logx.Err(err))
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
}

func logxConfig(cfg *Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}
