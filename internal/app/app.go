// Package app wires configuration, storage, notification and the Telegram handlers into one runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"elpbot/core/bootstrap"
	"elpbot/core/logger"
	tg "elpbot/core/telegram"
	tgsender "elpbot/core/telegram/sender"
	"elpbot/core/telegram/state"
	"elpbot/internal/bot"
	"elpbot/internal/conversation"
	"elpbot/internal/knowledge"
	"elpbot/internal/leads"
	"elpbot/internal/notify"
	"elpbot/internal/storage/memory"
	"elpbot/internal/storage/postgres"
)

// App is the assembled bot, ready to hand its run options to the Telegram runtime.
type App struct {
	cfg      *Config
	boot     *bootstrap.Result
	service  *leads.Service
	notifier *notify.Dispatcher
	machine  *conversation.Machine
	bot      *bot.Bot
	registry *tg.Registry
	health   *HealthServer
}

// New bootstraps infrastructure and builds the handlers.
func New(cfg *Config) (*App, error) {
	return build(cfg, bootstrap.Options{})
}

// build lets tests replace the logger, connect and migrate steps.
func build(cfg *Config, base bootstrap.Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	base.Config = &cfg.Config
	if cfg.Storage.Driver == StoragePostgres {
		base.Database = cfg.Database
		base.Migrations = postgres.Migrations
		base.MigrationsDir = postgres.MigrationsDir
	}
	res, err := bootstrap.Run(base)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, boot: res}
	a.service = leads.NewService(openStore(cfg.Storage.Driver, res))
	a.notifier = notify.New(notify.Options{AdminID: cfg.Telegram.AdminID, SMTP: cfg.SMTP})
	a.machine = conversation.New(nil, bot.NewSubmitter(a.service, a.notifier))
	a.bot = bot.New(bot.Deps{
		Machine:   a.machine,
		Leads:     a.service,
		Knowledge: knowledge.New(cfg.KnowledgeBroker()),
		AdminID:   cfg.Telegram.AdminID,
	})
	a.registry = tg.NewRegistry()
	if err := a.bot.Register(a.registry); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}

	logger.L.With("component", "app").Info("app configured",
		slog.String("event", "configure"),
		slog.String("storage", cfg.Storage.Driver),
		slog.Bool("store_enabled", a.service.Enabled()),
		slog.Bool("email_enabled", a.notifier.EmailEnabled()),
		slog.Bool("admin_configured", cfg.Telegram.AdminID != 0),
		slog.Bool("health_enabled", cfg.Health.Addr() != ""),
	)
	return a, nil
}

// openStore returns nil when no store can serve: the service then runs degraded.
func openStore(driver string, res *bootstrap.Result) leads.Store {
	switch driver {
	case StorageMemory:
		return memory.New()
	case StoragePostgres:
		if res != nil && res.DB != nil {
			return postgres.New(res.DB)
		}
	}
	return nil
}

// Service exposes the lead service.
func (a *App) Service() *leads.Service { return a.service }

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := &a.cfg.Config
	mws := tg.DefaultMiddlewares(core, nil)
	mws = append(mws, tg.Middleware{
		Name: "step",
		Use:  state.WithStep(a.machine.Store(), conversation.Label),
	})
	return tg.RunOptions{
		Config:   core,
		Registry: a.registry,
		DispatcherOptions: tgsender.Options{
			QueueSize:  core.Sender.QueueSize,
			Workers:    core.Sender.Workers,
			MaxRetries: core.Sender.MaxRetries,
		},
		Middlewares: mws,
		Routes:      a.bot.Routes(a.registry),
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	if rt.Bot != nil {
		a.notifier.Bind(rt.Bot)
	}
	a.ensureSchema(ctx)
	if addr := a.cfg.Health.Addr(); addr != "" {
		hs, err := StartHealth(addr)
		if err != nil {
			return err
		}
		a.health = hs
	}
	return nil
}

// ensureSchema re-applies the schema SQL directly when the migration run failed.
func (a *App) ensureSchema(ctx context.Context) {
	if a.boot == nil || a.boot.SchemaErr == nil || !a.service.Enabled() {
		return
	}
	if err := a.service.EnsureSchema(ctx); err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelWarn, "schema.fallback",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	err := a.health.Shutdown(ctx)
	a.bot.Close()
	if cerr := a.service.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("app: close store: %w", cerr))
	}
	return err
}
