package logger

import (
	"log/slog"
	"strings"
)

// levelName maps slog levels onto the four names the log pipeline indexes on.
func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// enumField lists the accepted values of a closed-vocabulary field.
// Unknown values are kept verbatim when keepUnknown is set, dropped otherwise.
type enumField struct {
	values      []string
	keepUnknown bool
}

var enumFields = map[string]enumField{
	"status":       {values: []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled"}, keepUnknown: true},
	"email_status": {values: []string{"sent", "failed", "disabled"}},
	"outcome":      {values: []string{"ok", "fail", "cancelled", "rate_limited"}},
}

func normalizeEnums(e *entry) {
	for key, rule := range enumFields {
		raw, ok := e.str(key)
		if !ok || raw == "" {
			continue
		}
		v := strings.ToLower(strings.TrimSpace(raw))
		known := false
		for _, allowed := range rule.values {
			if v == allowed {
				known = true
				break
			}
		}
		switch {
		case known:
			e.set(key, v)
		case rule.keepUnknown:
			e.set(key, v)
		default:
			e.del(key)
		}
	}
}

// piiFields hold lead contact data. Handlers should not log them; if one slips through it is masked.
var piiFields = map[string]bool{
	"name":    true,
	"contact": true,
	"phone":   true,
	"email":   true,
}

func maskPII(e *entry) {
	for key := range piiFields {
		if v, ok := e.str(key); ok && v != "" {
			e.set(key, mask(v))
		}
	}
}

func mask(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return "***"
	}
	return string(r[:2]) + "***" + string(r[len(r)-2:])
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"step",
	"cb_key",
	"outcome",
	"duration_ms",
	"lead_id",
	"ref",
	"durable",
	"action",
	"contact_kind",
	"email_status",
	"admin",
	"count",
	"text_len",
	"messages",
	"kb",
	"mode",
	"addr",
	"host",
	"port",
	"db",
	"err",
	"err_code",
	"cause",
	"attempts",
}
