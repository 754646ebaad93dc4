package bot

import (
	"log/slog"

	"elpbot/core/telegram/callbacks"
	tghelpers "elpbot/core/telegram/helpers"
	"elpbot/core/telegram/keyboard"
	"elpbot/internal/conversation"
	"elpbot/internal/leads"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) onStartRequest(c tele.Context) error {
	return b.render(c, b.machine.Start(chatID(c), userOf(c)))
}

func (b *Bot) onArea(c tele.Context) error {
	return b.render(c, b.machine.SelectArea(chatID(c), userOf(c), callbacks.CallbackKey(c)))
}

func (b *Bot) onTerm(c tele.Context) error {
	return b.render(c, b.machine.SelectTerm(chatID(c), callbacks.CallbackKey(c)))
}

func (b *Bot) onBackToArea(c tele.Context) error {
	return b.render(c, b.machine.BackToArea(chatID(c)))
}

// onBackToTerm steps back one screen: from the contact step to the name prompt,
// from the name prompt to the term choice.
func (b *Bot) onBackToTerm(c tele.Context) error {
	id := chatID(c)
	if st, ok := b.machine.Current(id); ok && st.Step == conversation.StepAwaitingName {
		return b.render(c, b.machine.BackToTerm(id))
	}
	return b.render(c, b.machine.BackToName(id))
}

func (b *Bot) onContactKind(kind leads.ContactKind) tele.HandlerFunc {
	return func(c tele.Context) error {
		return b.render(c, b.machine.ChooseContactKind(chatID(c), kind))
	}
}

// onCancel serves both the button and /cancel.
func (b *Bot) onCancel(c tele.Context) error {
	id := chatID(c)
	prev, _ := b.machine.Current(id)
	b.machine.Cancel(id)
	if prev.PendingKind == leads.ContactPhone {
		if err := tghelpers.SendHTML(c, cancelledText, keyboard.RemoveKeyboard()); err != nil {
			return err
		}
		return tghelpers.SendHTML(c, menuText, mainMenuKeyboard())
	}
	return tghelpers.EditOrSendHTML(c, cancelledText+"\n\n"+menuText, mainMenuKeyboard())
}

// render turns a machine reply into the next screen.
func (b *Bot) render(c tele.Context, r conversation.Reply) error {
	hint := ""
	if r.Repeat && c.Callback() == nil {
		hint = useButtonsText
	}
	switch r.Prompt {
	case conversation.PromptArea:
		return tghelpers.EditOrSendHTML(c, hint+areaPrompt(), areaKeyboard())
	case conversation.PromptTerm:
		return tghelpers.EditOrSendHTML(c, hint+termPrompt(r.Form), termKeyboard())
	case conversation.PromptName:
		return tghelpers.EditOrSendHTML(c, namePrompt(r.Form), backCancelKeyboard())
	case conversation.PromptContactKind:
		return tghelpers.EditOrSendHTML(c, contactKindPrompt(r.Form), contactKindKeyboard())
	case conversation.PromptContactValue:
		if r.Kind == leads.ContactPhone {
			// A reply keyboard cannot be attached to an edited message.
			return tghelpers.SendHTML(c, contactValuePrompt(r.Kind), sharePhoneKeyboard())
		}
		return tghelpers.EditOrSendHTML(c, contactValuePrompt(r.Kind), backCancelKeyboard())
	case conversation.PromptSubmitted:
		logf(c, slog.LevelInfo, "lead.confirmed",
			slog.String("ref", r.Ref.String()),
			slog.String("contact_kind", string(r.Kind)),
			slog.Bool("durable", r.Ref.Durable()),
		)
		if err := tghelpers.SendHTML(c, submittedText(r.Lead, r.Ref), keyboard.RemoveKeyboard()); err != nil {
			return err
		}
		return tghelpers.SendHTML(c, menuText, mainMenuKeyboard())
	case conversation.PromptCancelled:
		return tghelpers.EditOrSendHTML(c, cancelledText+"\n\n"+menuText, mainMenuKeyboard())
	default:
		return tghelpers.EditOrSendHTML(c, menuText, mainMenuKeyboard())
	}
}
