package helpers

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// DisplayName joins the sender's first and last name.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// Username returns the @-less Telegram username, falling back to the display name when it is absent.
func Username(u *tele.User) string {
	if u == nil {
		return ""
	}
	if name := strings.TrimPrefix(strings.TrimSpace(u.Username), "@"); name != "" {
		return name
	}
	return DisplayName(u)
}
