// Package format builds Telegram HTML fragments from untrusted text.
package format

import (
	"html"
	"strings"
)

// Escape makes s safe inside Telegram HTML.
func Escape(s string) string {
	return html.EscapeString(s)
}

// Bold wraps escaped s in <b>.
func Bold(s string) string {
	return "<b>" + Escape(s) + "</b>"
}

// Code wraps escaped s in <code>.
func Code(s string) string {
	return "<code>" + Escape(s) + "</code>"
}

// Field renders "label: value" with a bold label. An empty value becomes fallback.
func Field(label, value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	return "<b>" + Escape(label) + ":</b> " + Escape(value)
}

// Truncate shortens s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
