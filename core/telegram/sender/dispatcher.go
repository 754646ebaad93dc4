// Package sender runs outbound Bot API calls on a small pool of per-chat ordered workers,
// so a slow Telegram reply never blocks update handling.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"elpbot/core/logger"
	"elpbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull means the chat's worker queue is saturated; the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	errNilRun = errors.New("telegram sender: nil run function")
)

const component = "tg.sender"

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the per-worker queue capacity.
	QueueSize int
	Workers   int
	// MaxRetries of 0 disables retries: a failed send is logged once and dropped.
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single job, retries included.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

func (j job) attrs() []slog.Attr {
	a := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		a = append(a, slog.String("endpoint", j.endpoint))
	}
	return a
}

// Dispatcher executes outbound Telegram calls asynchronously.
// Jobs are sharded by chat id, so sends to one chat keep their enqueue order.
type Dispatcher struct {
	opts   Options
	queues []chan job

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewDispatcher starts the workers. Zero options get defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, queues: make([]chan job, opts.Workers)}
	d.wg.Add(opts.Workers)
	for i := range d.queues {
		q := make(chan job, opts.QueueSize)
		d.queues[i] = q
		go func() {
			defer d.wg.Done()
			for j := range q {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run on the worker owning the chat found in ctx.
// The run closure must be idempotent if retries are enabled.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errNilRun
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.queues[d.shard(logger.ChatIDFrom(ctx))] <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shard(chatID int64) int {
	if chatID < 0 {
		chatID = -chatID
	}
	return int(chatID % int64(len(d.queues)))
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		for _, q := range d.queues {
			close(q)
		}
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(j.ctx, component, "send.start", j.attrs()...)

	attempt, err := d.attempt(ctx, j)
	if err == nil {
		ev := "send.success"
		level := logger.Debug
		if attempt > 1 {
			ev, level = "send.retry.success", logger.Info
		}
		level(j.ctx, component, ev, append(j.attrs(),
			slog.Int("attempts", attempt),
			slog.Duration("elapsed", logger.Took(start)),
		)...)
		return
	}

	d.failed.Add(1)
	logger.Error(j.ctx, component, "send.fail", append(j.attrs(),
		slog.String("status", "fail"),
		slog.String("err", redactToken(err)),
		slog.String("err_code", errorKind(err)),
		slog.Int("attempts", attempt),
		slog.Duration("elapsed", logger.Took(start)),
	)...)
}

// attempt runs j until it succeeds, fails permanently, runs out of retries or ctx expires.
// It returns the number of runs made.
func (d *Dispatcher) attempt(ctx context.Context, j job) (int, error) {
	limit := d.opts.MaxRetries + 1
	for n := 1; ; n++ {
		err := j.run()
		if err == nil {
			return n, nil
		}
		if n >= limit || !netutil.ShouldRetry(err) {
			return n, err
		}
		delay := max(d.opts.RetryBackoff*time.Duration(n), netutil.RetryAfter(err))
		logger.Debug(j.ctx, component, "send.retry.backoff", append(j.attrs(),
			slog.Int("attempt", n),
			slog.Duration("delay", delay),
		)...)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return n, errors.Join(err, ctx.Err())
		case <-t.C:
		}
	}
}
