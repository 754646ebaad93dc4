package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"elpbot/core/logger"
)

const (
	activityQueue   = 128
	activityTimeout = 3 * time.Second
)

type activityEvent struct {
	ctx    context.Context
	userID int64
	action string
}

// activityLog writes button presses from one background worker so a slow store never
// delays the callback answer. Events past a full queue are dropped.
type activityLog struct {
	leads   Leads
	queue   chan activityEvent
	pending sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
}

func newActivityLog(l Leads) *activityLog {
	a := &activityLog{leads: l, queue: make(chan activityEvent, activityQueue), done: make(chan struct{})}
	go a.run()
	return a
}

func (a *activityLog) run() {
	defer close(a.done)
	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(ev.ctx, activityTimeout)
		a.leads.InsertActivity(ctx, ev.userID, ev.action, "")
		cancel()
		a.pending.Done()
	}
}

func (a *activityLog) record(ctx context.Context, userID int64, action string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	a.pending.Add(1)
	select {
	case a.queue <- activityEvent{ctx: context.WithoutCancel(ctx), userID: userID, action: action}:
	default:
		a.pending.Done()
		logger.LogEvent(ctx, logger.SVCLeads, slog.LevelWarn, "activity.drop",
			slog.String("status", "skip"),
			slog.String("action", action),
			slog.String("cause", "queue_full"),
		)
	}
}

// flush waits until every queued event has been handed to the store.
func (a *activityLog) flush() { a.pending.Wait() }

func (a *activityLog) close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	<-a.done
}
