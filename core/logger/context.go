package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	keyScope ctxKey = iota
	keyLogger
)

// scope is the per-update correlation data every log line of the update carries.
type scope struct {
	rid      string
	updateID int
	userID   int64
	chatID   int64
	handler  string
	step     string
}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(keyScope).(scope)
	return s
}

func withScope(ctx context.Context, fn func(*scope)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	s := scopeFrom(ctx)
	fn(&s)
	return context.WithValue(ctx, keyScope, s)
}

// fill adds scope fields the record did not set itself.
func (s scope) fill(e *entry) {
	if s.rid != "" {
		e.setDefault("rid", s.rid)
	}
	if s.step != "" {
		e.setDefault("step", s.step)
	}
	if s.userID != 0 {
		e.setDefault("user_id", s.userID)
	}
	if s.updateID != 0 {
		e.setDefault("update_id", int64(s.updateID))
	}
	if s.chatID != 0 {
		e.setDefault("chat_id", s.chatID)
	}
	if s.handler != "" {
		e.setDefault("handler", s.handler)
	}
}

// WithLogger stores log in ctx for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored by WithLogger, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(keyLogger).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID attaches the update correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withScope(ctx, func(s *scope) { s.rid = rid })
}

// RIDFrom returns the correlation id, if any.
func RIDFrom(ctx context.Context) string { return scopeFrom(ctx).rid }

// WithUpdateMeta attaches the update, user and chat ids.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withScope(ctx, func(s *scope) {
		s.updateID = updateID
		s.userID = userID
		s.chatID = chatID
	})
}

// WithHandler names the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.handler = handler })
}

// WithStep records the conversation step active while the update is handled.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.step = step })
}

// StepFrom returns the step stored by WithStep.
func StepFrom(ctx context.Context) string { return scopeFrom(ctx).step }

// UserIDFrom returns the Telegram user id.
func UserIDFrom(ctx context.Context) int64 { return scopeFrom(ctx).userID }

// ChatIDFrom returns the chat id.
func ChatIDFrom(ctx context.Context) int64 { return scopeFrom(ctx).chatID }
