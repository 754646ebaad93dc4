package state

import (
	"elpbot/core/logger"
	tghelpers "elpbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// WithStep tags the update's log context with the chat's current step, as named by label.
func WithStep[T any](store *Store[T], label func(T) string) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || store == nil || label == nil {
				return next(c)
			}
			if v, ok := store.Get(chat.ID); ok {
				ctx := logger.WithStep(tghelpers.BuildContext(c), label(v))
				tghelpers.StoreContext(c, ctx)
			}
			return next(c)
		}
	}
}
