package helpers

import "time"

const (
	// StampLayout is used for timestamps shown to people in chat messages.
	StampLayout = "02.01.2006 15:04"
	// DateLayout is the short form for daily figures.
	DateLayout = "02.01.2006"
)

// FormatStamp renders t with StampLayout, or a dash placeholder for the zero time.
func FormatStamp(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format(StampLayout)
}
