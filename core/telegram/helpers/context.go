package helpers

import (
	"context"

	"elpbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// ctxSlot is the tele.Context key holding the update's log context.
const ctxSlot = "elp.log_ctx"

type updateIDs struct {
	update int
	chat   int64
	user   int64
}

func idsOf(c tele.Context) updateIDs {
	ids := updateIDs{update: c.Update().ID}
	if chat := c.Chat(); chat != nil {
		ids.chat = chat.ID
	}
	if u := c.Sender(); u != nil {
		ids.user = u.ID
	}
	return ids
}

func freshContext(ids updateIDs) context.Context {
	ctx := logger.WithUpdateMeta(context.Background(), ids.update, ids.user, ids.chat)
	ctx = logger.WithRID(ctx, logger.BuildRID(ids.update, ids.chat, ids.user))
	return logger.WithLogger(ctx, logger.TG)
}

// StoreContext replaces the log context carried by c.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxSlot, ctx)
	}
}

// ContextFrom returns the log context stored on c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxSlot).(context.Context)
	return ctx, ok && ctx != nil
}

// BeginUpdate binds a new log context to c. A step tagged earlier in the chain is kept.
func BeginUpdate(c tele.Context) context.Context {
	ctx := freshContext(idsOf(c))
	if prev, ok := ContextFrom(c); ok {
		ctx = logger.WithStep(ctx, logger.StepFrom(prev))
	}
	StoreContext(c, ctx)
	return ctx
}

// BuildContext returns the update's log context, creating it on first use.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	ctx := freshContext(idsOf(c))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler names the handler in the update's log context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}
