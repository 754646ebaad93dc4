package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "elpbot/core/config"
	"elpbot/core/logger"
	tghelpers "elpbot/core/telegram/helpers"
	tgsender "elpbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// stopGrace bounds the OnStop hook once polling has ended.
const stopGrace = 10 * time.Second

// Middleware is a global handler wrapper installed with bot.Use, in slice order.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to a telebot endpoint: a "/command", tele.OnText, tele.OnCallback and so on.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot, installs middlewares and routes, and polls until ctx is done.
// Cancellation is a clean stop and returns nil.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	rt, poll, err := connect(opts)
	if err != nil {
		return err
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(rt.Dispatcher)
	}
	release := func() {
		rt.Dispatcher.Close()
		if !opts.DisableHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	if !poll.webhook && !opts.DisableWebhookCleanup {
		dropWebhook(rt.Bot)
	}
	install(rt.Bot, opts)
	InitBotCommands(rt.Bot, rt.Registry, opts.Config.Telegram.AdminID)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	runErr := poll.until(ctx, rt.Bot)

	var stopErr error
	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopGrace)
		stopErr = opts.OnStop(stopCtx, rt)
		cancel()
	}
	release()

	if stopErr != nil {
		return stopErr
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

type pollMode struct {
	webhook bool
}

func connect(opts RunOptions) (Runtime, pollMode, error) {
	cfg := opts.Config
	po := PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	}
	poller := BuildPoller(po)

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:     cfg.Telegram.Token,
		Poller:    poller,
		Client:    BuildHTTPClient(po.LongPollTimeout()),
		ParseMode: tele.ModeHTML,
		OnError:   reportHandlerError,
	})
	if err != nil {
		return Runtime{}, pollMode{}, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	d := opts.Dispatcher
	if d == nil {
		d = tgsender.NewDispatcher(opts.DispatcherOptions)
	}

	attrs := []slog.Attr{
		slog.String("event", "mode"),
		slog.Duration("duration", logger.Took(start)),
	}
	mode := pollMode{}
	if wh, ok := poller.(*tele.Webhook); ok {
		mode.webhook = true
		attrs = append(attrs,
			slog.String("mode", "webhook"),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
	} else {
		attrs = append(attrs,
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(po.LongPollTimeout()/time.Second)),
		)
	}
	logger.TG.LogAttrs(context.Background(), slog.LevelInfo, "bot connected", attrs...)

	return Runtime{Bot: bot, Dispatcher: d, Registry: opts.Registry}, mode, nil
}

// reportHandlerError logs errors that escaped a handler, under that update's rid.
func reportHandlerError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelError, "handler.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

// dropWebhook clears a webhook left over from an earlier deployment; getUpdates fails while one is set.
func dropWebhook(bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.TG.Warn("failed to delete webhook",
			slog.String("event", "delete_webhook"),
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(strings.TrimSpace(err.Error()), 256)),
		)
		return
	}
	logger.TG.Info("webhook deleted",
		slog.String("event", "delete_webhook"),
		slog.String("status", "ok"),
	)
}

func install(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
}

// until runs the poller and blocks until it ends on its own or ctx is cancelled.
func (pollMode) until(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}
