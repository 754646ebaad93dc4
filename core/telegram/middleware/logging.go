package middleware

import (
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"elpbot/core/logger"
	"elpbot/core/telegram/callbacks"
	tghelpers "elpbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers update ids for a short window. Route wrappers and the global chain
// both run LoggerMiddleware, and only the first pass writes update.received.
type seenUpdates struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[int]time.Time
}

var received = &seenUpdates{ttl: 10 * time.Second, seen: make(map[int]time.Time)}

func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, k)
		}
	}
	if _, dup := s.seen[id]; dup {
		return false
	}
	s.seen[id] = now
	return true
}

// LoggerMiddleware binds the update's log context and writes one sampled update.received line.
// Message text may carry a lead's name or contact, so only its length is logged.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BeginUpdate(c)
		upd := c.Update()
		if !logger.ShouldSampleDebug() || !received.first(upd.ID, time.Now()) {
			return next(c)
		}

		attrs := []slog.Attr{slog.String("status", "ok")}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if u := c.Sender(); u != nil && u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		switch {
		case upd.Callback != nil:
			if key, _ := callbacks.ParseCallbackData(upd.Callback); key != "" {
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
			}
		case upd.Message != nil:
			if n := utf8.RuneCountInString(c.Text()); n > 0 {
				attrs = append(attrs, slog.Int("text_len", n))
			}
			if upd.Message.Contact != nil {
				attrs = append(attrs, slog.String("contact_kind", "shared"))
			}
		}
		logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		return next(c)
	}
}
