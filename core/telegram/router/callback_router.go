package router

import (
	"log/slog"

	tg "elpbot/core/telegram"
	"elpbot/core/telegram/callbacks"
	"elpbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
	// Before runs ahead of every resolved or unknown callback, e.g. for activity tracking.
	Before func(c tele.Context, key string)
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// The callback is answered before dispatch so the client never shows a stuck spinner.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.ParseCallbackData(c.Callback())
		sum := track("callback", key).with(slog.String("cb_key", key))

		_ = c.Respond()
		if opts.Before != nil && key != "" {
			opts.Before(c, key)
		}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := opts.NotFound
			if fallback == nil {
				fallback = reg.CallbackNotFound()
			}
			sum.with(slog.String("cause", "not_found")).forced("skip")
			if fallback == nil {
				sum.done(c, nil)
				return nil
			}
			return sum.run(c, fallback)
		}
		return sum.run(c, cbHandler)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
