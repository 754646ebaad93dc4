package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"elpbot/core/logger"
	tghelpers "elpbot/core/telegram/helpers"
	"elpbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary times one handler run and writes the handler.handled line for it.
type summary struct {
	name   string
	start  time.Time
	status string
	attrs  []slog.Attr
}

func track(kind, key string) *summary {
	name := kind
	if key != "" {
		name = kind + "." + handlerKey(key)
	}
	return &summary{name: name, start: time.Now()}
}

func (s *summary) with(attrs ...slog.Attr) *summary {
	s.attrs = append(s.attrs, attrs...)
	return s
}

// forced pins the logged status regardless of the handler result.
func (s *summary) forced(status string) *summary {
	s.status = status
	return s
}

func (s *summary) run(c tele.Context, h tele.HandlerFunc) error {
	tghelpers.WithHandler(c, s.name)
	err := h(c)
	s.done(c, err)
	return err
}

// skip records that no handler took the update.
func (s *summary) skip(c tele.Context) {
	s.status = "skip"
	s.done(c, nil)
}

func (s *summary) done(c tele.Context, err error) {
	ctx := tghelpers.WithHandler(c, s.name)
	sent, kb := middleware.Counters(c)

	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	status := s.status
	if status == "" {
		status = outcome
	}
	attrs := make([]slog.Attr, 0, 8+len(s.attrs))
	attrs = append(attrs,
		slog.String("status", status),
		slog.String("handler", s.name),
		slog.String("outcome", outcome),
		slog.Int("messages", sent),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(s.start)),
	)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
			slog.String("cause", s.name),
		)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", append(attrs, s.attrs...)...)
}

// handlerKey turns "/Stats" or "start request" into "stats" and "start_request".
func handlerKey(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

type coded interface{ Code() string }

// errorCode prefers an explicit Code() anywhere in the chain, else the error's type name.
func errorCode(err error) string {
	var ce coded
	if errors.As(err, &ce) {
		if code := strings.TrimSpace(ce.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(name)
}
