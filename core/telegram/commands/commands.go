package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
// AdminOnly commands are routed through the admin gate and listed only in the admin chat menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Public reports whether the command belongs in the menu shown to every user.
func (c Command) Public() bool {
	return !c.AdminOnly && !c.Hidden
}
