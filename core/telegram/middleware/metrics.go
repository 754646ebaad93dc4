package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersSlot = "elp.reply_counters"

// replyCounters tracks what a handler sent back, for the handler summary line.
// Sends may run on dispatcher workers while the summary reads the counters.
type replyCounters struct {
	messages atomic.Int64
	keyboard atomic.Bool
}

func countersOf(c tele.Context) *replyCounters {
	rc, _ := c.Get(countersSlot).(*replyCounters)
	return rc
}

// countingContext counts successful replies sent through the wrapped context.
type countingContext struct {
	tele.Context
	rc *replyCounters
}

func (m countingContext) count(err error, opts []interface{}) error {
	if err != nil {
		return err
	}
	m.rc.messages.Add(1)
	if carriesMarkup(opts) {
		m.rc.keyboard.Store(true)
	}
	return nil
}

func carriesMarkup(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m countingContext) Send(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Send(what, opts...), opts)
}

func (m countingContext) Reply(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Reply(what, opts...), opts)
}

func (m countingContext) Edit(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Edit(what, opts...), opts)
}

func (m countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.EditOrSend(what, opts...), opts)
}

func (m countingContext) EditOrReply(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware resets the reply counters and hands the handler a counting context.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		rc := &replyCounters{}
		c.Set(countersSlot, rc)
		return next(countingContext{Context: c, rc: rc})
	}
}

// Counters reports how many replies the handler sent and whether any carried a keyboard.
func Counters(c tele.Context) (int, bool) {
	if c == nil {
		return 0, false
	}
	rc := countersOf(c)
	if rc == nil {
		return 0, false
	}
	return int(rc.messages.Load()), rc.keyboard.Load()
}
