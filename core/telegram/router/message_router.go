package router

import (
	"strings"

	tg "elpbot/core/telegram"
	"elpbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Conversation is the part of a per-chat dialog that the message routes need.
type Conversation interface {
	InProgress(chatID int64) bool
	HandleText(c tele.Context) error
	HandleContact(c tele.Context) error
}

// TextOptions controls fallback behaviour for updates outside a conversation.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownContact  tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text, shared-contact and document updates.
// A chat with an active conversation gets its input routed there first.
func TextRoutes(conv Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	inProgress := func(c tele.Context) bool {
		chat := c.Chat()
		return conv != nil && chat != nil && conv.InProgress(chat.ID)
	}

	// Text naming a public command or one of its aliases runs that command.
	// Inside a conversation only slash-prefixed text counts, bare words are form input.
	textHandler := func(c tele.Context) error {
		active := inProgress(c)
		if reg != nil && (!active || strings.HasPrefix(strings.TrimSpace(c.Text()), "/")) {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return track("command", key).run(c, cmd.Handler)
			}
		}
		if active {
			return track("conversation", "text").run(c, conv.HandleText)
		}
		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return track("fallback", "").run(c, fb)
			}
		}
		return orSkip(c, "unknown_text", opts.UnknownText)
	}

	contactHandler := func(c tele.Context) error {
		if inProgress(c) {
			return track("conversation", "contact").run(c, conv.HandleContact)
		}
		return orSkip(c, "unexpected_contact", opts.UnknownContact)
	}

	docHandler := func(c tele.Context) error {
		return orSkip(c, "unexpected_document", opts.UnknownDocument)
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(textHandler)},
		{Endpoint: tele.OnContact, Handler: wrap(contactHandler)},
		{Endpoint: tele.OnDocument, Handler: wrap(docHandler)},
	}
}

func orSkip(c tele.Context, name string, h tele.HandlerFunc) error {
	s := track(name, "")
	if h == nil {
		s.skip(c)
		return nil
	}
	return s.run(c, h)
}
