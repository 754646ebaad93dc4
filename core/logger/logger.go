// Package logger provides the bot's structured logging: one line per event, a stable key order,
// per-update correlation ids carried in the context and masked lead contact details.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"elpbot/core/buildinfo"
	coreconfig "elpbot/core/config"
)

var (
	initOnce sync.Once
	stopMu   sync.Mutex
	stopped  bool

	sink    *bufferedSink
	closers []io.Closer

	levelVar     slog.LevelVar
	debugSampler sampler
	trace        bool

	// L is the base logger. Before InitLogger it points at slog.Default so early call sites never see nil.
	L *slog.Logger

	// DB logs connection pool events.
	DB *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// MIG logs schema migration runs.
	MIG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// SVCLeads logs lead intake and activity tracking.
	SVCLeads *slog.Logger
	// NOTIFY logs admin and email notification delivery.
	NOTIFY *slog.Logger
	// HTTP logs the health endpoint.
	HTTP *slog.Logger
)

func init() {
	debugSampler.Set(1, 50)
	L = slog.Default()
	bindComponents()
}

// settings is the logging configuration after defaults are applied.
type settings struct {
	profile  string
	format   logFormat
	level    slog.Level
	order    []string
	num, den int
	file     string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{profile: "prod", format: formatJSON, level: slog.LevelInfo, order: defaultKeyOrder, num: 1, den: 50}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}
	if raw := strings.TrimSpace(lc.DebugSample); raw != "" {
		s.num, s.den = parseRatio(raw)
	}
	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		s.file = filepath.Join(dir, name)
	}
	return s
}

// InitLogger installs the structured handler as the slog default. Only the first call has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		s := resolve(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.num, s.den)
		trace = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		outs := []io.Writer{os.Stdout}
		if s.file != "" {
			f, err := openLogFile(s.file)
			if err != nil {
				initErr = err
				return
			}
			outs = append(outs, f)
			closers = append(closers, f)
		}
		sink = newBufferedSink(outs, 64*1024, sinkFlushEvery)

		L = slog.New(newLineHandler(handlerOptions{
			level:  &levelVar,
			sink:   sink,
			format: s.format,
			order:  s.order,
		}))
		slog.SetDefault(L)
		bindComponents()

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build", buildinfo.Summary()),
			slog.String("cfg_profile", s.profile),
			slog.String("format", string(s.format)),
		)
	})
	return initErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

func bindComponents() {
	DB = L.With("component", "db")
	TG = L.With("component", "tg")
	MIG = L.With("component", "db.migrate")
	TWire = L.With("component", "tg.wire")
	SVCLeads = L.With("component", "service.leads")
	NOTIFY = L.With("component", "notify")
	HTTP = L.With("component", "http")
}

// Shutdown flushes buffered output and closes the log file. It is safe to call more than once.
func Shutdown() error {
	stopMu.Lock()
	defer stopMu.Unlock()
	if stopped {
		return nil
	}
	stopped = true

	var errs []error
	if sink != nil {
		errs = append(errs, sink.Close())
	}
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// LogEvent writes attrs under event, using logg or else the logger carried by ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

func emit(ctx context.Context, component string, level slog.Level, event string, attrs []slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelDebug, event, attrs)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelInfo, event, attrs)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelWarn, event, attrs)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelError, event, attrs)
}

// ShouldSampleDebug reports whether a high-volume debug event should be written.
// TRACE=1 or LOG_TRACE=1 lets every one through.
func ShouldSampleDebug() bool {
	return trace || debugSampler.Allow()
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
