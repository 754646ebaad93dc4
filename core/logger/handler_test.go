package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "elpbot/core/config"
)

func newTestLogger(buf *bytes.Buffer, format logFormat) (*slog.Logger, *bufferedSink) {
	s := newBufferedSink([]io.Writer{buf}, 1024, time.Hour)
	return slog.New(newLineHandler(handlerOptions{
		level:  slog.LevelInfo,
		sink:   s,
		format: format,
	})), s
}

func flushLine(t *testing.T, s *bufferedSink, buf *bytes.Buffer) string {
	t.Helper()
	require.NoError(t, s.Close())
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line, "expected log line")
	return line
}

func TestLineHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	log, s := newTestLogger(buf, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", "app"), slog.LevelInfo, "lead.saved",
		slog.String("cause", "unit"),
		slog.String("status", "ok"),
	)
	line := flushLine(t, s, buf)

	tokens := strings.Split(line, " ")
	require.GreaterOrEqual(t, len(tokens), 6, line)
	expected := []string{"ts=", "level=INFO", "component=app", "event=lead.saved", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		assert.Truef(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, expected prefix %s", i, tokens[i], prefix)
	}
	assert.Contains(t, line, "update_id=42 user_id=7 chat_id=9")
}

func TestLineHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	log, s := newTestLogger(buf, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	LogEvent(ctx, log.With("component", "service.leads"), slog.LevelError, "lead.insert",
		slog.String("err", "boom"),
		slog.String("status", "fail"),
		slog.Duration("duration", 1500*time.Microsecond),
	)
	line := flushLine(t, s, buf)

	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.leads"`, `"event":"lead.insert"`, `"status":"fail"`, `"rid":"rid-json"`, `"duration_ms":2`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.Truef(t, idx != -1 && idx > pos, "prefix %s not found in order within %s", pref, line)
		pos = idx
	}
}

func TestLineHandlerCompactRID(t *testing.T) {
	tests := []struct {
		name    string
		format  logFormat
		want    []string
		notWant []string
	}{
		{
			name:    "kv",
			format:  formatKV,
			want:    []string{"rid=" + CompactRID("123:456:789")},
			notWant: []string{"rid_full="},
		},
		{
			name:   "json",
			format: formatJSON,
			want: []string{
				`"rid":"3f.co.lx"`,
				`"rid_full":"123:456:789"`,
				`"ts_unix_nano"`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log, s := newTestLogger(buf, tt.format)
			ctx := WithRID(context.Background(), "123:456:789")
			LogEvent(ctx, log, slog.LevelInfo, "rid.test")
			line := flushLine(t, s, buf)
			for _, w := range tt.want {
				assert.Contains(t, line, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, line, nw)
			}
		})
	}
}

func TestLineHandlerEnums(t *testing.T) {
	buf := &bytes.Buffer{}
	log, s := newTestLogger(buf, formatKV)
	ctx := WithStep(context.Background(), "awaiting_contact")

	LogEvent(ctx, log.With("component", "notify"), slog.LevelInfo, "notify.admin",
		slog.String("email_status", "SENT"),
		slog.String("outcome", "maybe"),
		slog.String("status", "Weird"),
	)
	line := flushLine(t, s, buf)

	assert.Contains(t, line, "step=awaiting_contact")
	assert.Contains(t, line, "email_status=sent")
	assert.Contains(t, line, "status=weird")
	assert.NotContains(t, line, "outcome=")
}

func TestLineHandlerMasksContactDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	log, s := newTestLogger(buf, formatJSON)

	LogEvent(context.Background(), log, slog.LevelWarn, "lead.debug",
		slog.String("phone", "+77011234567"),
		slog.String("name", "Ая"),
		slog.Int64("lead_id", 5),
	)
	line := flushLine(t, s, buf)

	assert.Contains(t, line, `"phone":"+7***67"`)
	assert.Contains(t, line, `"name":"***"`)
	assert.Contains(t, line, `"lead_id":5`)
	assert.NotContains(t, line, "+77011234567")
}

func TestLineHandlerGroupsAndEmptyValues(t *testing.T) {
	buf := &bytes.Buffer{}
	log, s := newTestLogger(buf, formatKV)

	log.WithGroup("db").With("host", "pg").Info("pool",
		slog.String("db_name", ""),
		slog.Group("pool", slog.Int("max", 4)),
	)
	line := flushLine(t, s, buf)

	assert.Contains(t, line, "event=pool")
	assert.Contains(t, line, "db.host=pg")
	assert.Contains(t, line, "db.pool.max=4")
	assert.NotContains(t, line, "db_name")
}

func TestEntryDeleteKeepsIndex(t *testing.T) {
	e := newEntry()
	e.set("a", 1)
	e.set("b", 2)
	e.set("c", 3)
	e.del("a")
	e.set("c", 4)

	v, ok := e.get("c")
	require.True(t, ok)
	assert.Equal(t, 4, v)
	assert.Equal(t, []field{{"b", 2}, {"c", 4}}, e.sorted(nil))
}

func TestSinkWriteAfterClose(t *testing.T) {
	buf := &bytes.Buffer{}
	s := newBufferedSink([]io.Writer{buf}, 16, time.Hour)
	require.NoError(t, s.Write([]byte("one\n")))
	require.NoError(t, s.Close())
	assert.Equal(t, "one\n", buf.String())
	assert.ErrorIs(t, s.Write([]byte("two\n")), errSinkClosed)
}

func TestSampler(t *testing.T) {
	var s sampler
	s.Set(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	num, den := parseRatio("2/10")
	assert.Equal(t, []int{2, 10}, []int{num, den})
	num, den = parseRatio("25")
	assert.Equal(t, []int{1, 25}, []int{num, den})
	num, den = parseRatio("x")
	assert.Equal(t, []int{0, 0}, []int{num, den})
}

func TestResolveSettings(t *testing.T) {
	s := resolve(nil)
	assert.Equal(t, formatJSON, s.format)
	assert.Equal(t, slog.LevelInfo, s.level)

	cfg := &coreconfig.Config{}
	cfg.Logging.Profile = "Dev"
	cfg.Logging.Level = "warning"
	cfg.Logging.KeysOrder = "event, ts ,"
	cfg.Logging.DebugSample = "1/5"
	cfg.Logging.Dir = "logs"
	cfg.Logging.BotFile = "bot.log"
	s = resolve(cfg)
	assert.Equal(t, formatKV, s.format)
	assert.Equal(t, slog.LevelWarn, s.level)
	assert.Equal(t, []string{"event", "ts"}, s.order)
	assert.Equal(t, []int{1, 5}, []int{s.num, s.den})
	assert.Equal(t, "logs/bot.log", s.file)

	cfg.Logging.Format = "json"
	assert.Equal(t, formatJSON, resolve(cfg).format)
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "Иван", SanitizeLimit("Ив\x00ан​", 10))
	assert.Equal(t, "Ива", SanitizeLimit("Иван", 3))
	assert.Equal(t, "", SanitizeLimit("Иван", 0))
}

func TestCompactRIDPassThrough(t *testing.T) {
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1.a.z", CompactRID(BuildRID(1, 10, 35)))
}
