package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	tsLayout = "2006-01-02T15:04:05.000Z07:00"
)

type field struct {
	key string
	val any
}

// entry is one log line under construction. Later writes to a key replace the value in place.
type entry struct {
	fields []field
	index  map[string]int
}

func newEntry() *entry {
	return &entry{fields: make([]field, 0, 16), index: make(map[string]int, 16)}
}

func (e *entry) set(key string, val any) {
	if i, ok := e.index[key]; ok {
		e.fields[i].val = val
		return
	}
	e.index[key] = len(e.fields)
	e.fields = append(e.fields, field{key: key, val: val})
}

func (e *entry) setDefault(key string, val any) {
	if _, ok := e.index[key]; !ok {
		e.set(key, val)
	}
}

func (e *entry) get(key string) (any, bool) {
	i, ok := e.index[key]
	if !ok {
		return nil, false
	}
	return e.fields[i].val, true
}

func (e *entry) str(key string) (string, bool) {
	v, ok := e.get(key)
	if !ok {
		return "", false
	}
	if s, isStr := v.(string); isStr {
		return s, true
	}
	return fmt.Sprint(v), true
}

func (e *entry) del(key string) {
	i, ok := e.index[key]
	if !ok {
		return
	}
	e.fields = slices.Delete(e.fields, i, i+1)
	delete(e.index, key)
	for j := i; j < len(e.fields); j++ {
		e.index[e.fields[j].key] = j
	}
}

// sorted returns the fields with the keys in order first, the rest alphabetically.
func (e *entry) sorted(order []string) []field {
	out := make([]field, 0, len(e.fields))
	taken := make(map[string]bool, len(order))
	for _, k := range order {
		if i, ok := e.index[k]; ok && !taken[k] {
			out = append(out, e.fields[i])
			taken[k] = true
		}
	}
	rest := make([]field, 0, len(e.fields)-len(out))
	for _, f := range e.fields {
		if !taken[f.key] {
			rest = append(rest, f)
		}
	}
	slices.SortFunc(rest, func(a, b field) int { return strings.Compare(a.key, b.key) })
	return append(out, rest...)
}

type handlerOptions struct {
	level  slog.Leveler
	sink   *bufferedSink
	format logFormat
	order  []string
}

// lineHandler renders records as single JSON or key=value lines with a stable key order.
type lineHandler struct {
	opts   handlerOptions
	attrs  []slog.Attr
	prefix string
}

func newLineHandler(opts handlerOptions) *lineHandler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if opts.order == nil {
		opts.order = defaultKeyOrder
	}
	return &lineHandler{opts: opts}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.opts.sink == nil {
		return errNoSink
	}
	jsonOut := h.opts.format == formatJSON

	e := newEntry()
	ts := r.Time.UTC()
	e.set("ts", ts.Truncate(time.Millisecond).Format(tsLayout))
	e.set("level", levelName(r.Level))
	if jsonOut {
		e.set("ts_unix_nano", ts.UnixNano())
	}
	for _, a := range h.attrs {
		h.walk(e, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.walk(e, h.prefix, a)
		return true
	})
	scopeFrom(ctx).fill(e)

	if rid, _ := e.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			if jsonOut {
				e.setDefault("rid_full", rid)
			}
			e.set("rid", short)
		}
	}
	if ev, _ := e.str("event"); ev == "" {
		ev = r.Message
		if ev == "" {
			ev = "unknown"
		}
		e.set("event", ev)
	}
	if c, _ := e.str("component"); c == "" {
		e.set("component", "app")
	}
	normalizeEnums(e)
	maskPII(e)

	var line []byte
	var err error
	if jsonOut {
		line, err = renderJSON(e.sorted(h.opts.order))
		if err != nil {
			return err
		}
	} else {
		line = renderKV(e.sorted(h.opts.order))
	}
	return h.opts.sink.Write(append(line, '\n'))
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, prefixed(h.prefix, a))
	}
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

// walk flattens groups into dotted keys. Attrs from WithAttrs carry their group prefix already.
func (h *lineHandler) walk(e *entry, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			h.walk(e, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, v, ok := normalizeValue(key, a.Value); ok {
		e.set(k, v)
	}
}

func prefixed(prefix string, a slog.Attr) slog.Attr {
	if prefix == "" {
		return a
	}
	return slog.Group(prefix, a)
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// normalizeValue converts v to a JSON-friendly value. Durations become whole milliseconds under a *_ms key.
// Empty strings and nils are dropped.
func normalizeValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		s := strings.TrimSpace(v.String())
		return key, s, s != ""
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		s := strings.TrimSpace(x.String())
		return key, s, s != ""
	default:
		return key, fmt.Sprint(x), true
	}
}

func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

func renderJSON(fields []field) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = append(buf, '{')
	for i, f := range fields {
		data, err := json.Marshal(f.val)
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", f.key, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, f.key)
		buf = append(buf, ':')
		buf = append(buf, data...)
	}
	return append(buf, '}'), nil
}

func renderKV(fields []field) []byte {
	buf := make([]byte, 0, 256)
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, f.key...)
		buf = append(buf, '=')
		var s string
		switch v := f.val.(type) {
		case string:
			s = v
		case bool:
			s = strconv.FormatBool(v)
		case int64:
			s = strconv.FormatInt(v, 10)
		default:
			s = fmt.Sprint(v)
		}
		if strings.IndexFunc(s, needsQuote) >= 0 {
			buf = strconv.AppendQuote(buf, s)
		} else {
			buf = append(buf, s...)
		}
	}
	return buf
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

var errNoSink = errors.New("logger: sink not initialized")
