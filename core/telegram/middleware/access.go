package middleware

import (
	"log/slog"

	"elpbot/core/logger"
	tghelpers "elpbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	// AdminID is compared by exact equality with the sender id. Zero matches nobody.
	AdminID  int64
	OnReject tele.HandlerFunc
}

// IsAdmin reports whether the sender of c is the configured admin.
func (o AdminOptions) IsAdmin(c tele.Context) bool {
	if o.AdminID == 0 {
		return false
	}
	sender := c.Sender()
	return sender != nil && sender.ID == o.AdminID
}

// AdminOnlyMiddleware lets only the admin reach downstream handlers.
// Rejections are logged and otherwise silent unless OnReject is set.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.IsAdmin(c) {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			attrs := []slog.Attr{slog.String("status", "skip")}
			if opts.AdminID == 0 {
				attrs = append(attrs, slog.String("cause", "admin_not_configured"))
			}
			logger.Warn(ctx, "tg.access", "admin.reject", attrs...)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
