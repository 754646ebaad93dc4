package bot

import (
	"log/slog"

	"elpbot/core/telegram/callbacks"
	tghelpers "elpbot/core/telegram/helpers"
	"elpbot/internal/knowledge"

	tele "gopkg.in/telebot.v4"
)

// onStart drops any unfinished form and shows the main menu.
func (b *Bot) onStart(c tele.Context) error {
	b.machine.Cancel(chatID(c))
	return tghelpers.SendHTML(c, welcomeText, mainMenuKeyboard())
}

// onMainMenu leaves the form, if any, and shows the menu.
func (b *Bot) onMainMenu(c tele.Context) error {
	b.machine.Cancel(chatID(c))
	return tghelpers.EditOrSendHTML(c, menuText, mainMenuKeyboard())
}

func (b *Bot) onTopic(c tele.Context) error {
	topic, ok := knowledge.Parse(callbacks.CallbackKey(c))
	if !ok {
		return nil
	}
	return b.showTopic(c, topic)
}

func (b *Bot) showTopic(c tele.Context, topic knowledge.Topic) error {
	text, ok := b.kb.Text(topic)
	if !ok {
		return tghelpers.EditOrSendHTML(c, menuText, mainMenuKeyboard())
	}
	return tghelpers.EditOrSendHTML(c, text, topicKeyboard(topic))
}

func (b *Bot) onWriteEmail(c tele.Context) error {
	return tghelpers.EditOrSendHTML(c, writeEmailText(b.kb.Broker()), requestOrMenuKeyboard())
}

func (b *Bot) onScheduleTour(c tele.Context) error {
	return tghelpers.EditOrSendHTML(c, scheduleTourText(b.kb.Broker()), requestOrMenuKeyboard())
}

// onFreeText answers text outside the form: greeting, thanks, a topic, or the menu prompt.
func (b *Bot) onFreeText(c tele.Context) error {
	m := knowledge.Classify(c.Text())
	logf(c, slog.LevelDebug, "text.classified",
		slog.String("intent", m.Intent.String()),
		slog.String("topic", string(m.Topic)),
	)
	switch m.Intent {
	case knowledge.IntentGreeting:
		return tghelpers.SendHTML(c, greetingText+menuText, mainMenuKeyboard())
	case knowledge.IntentThanks:
		return tghelpers.SendHTML(c, thanksText+menuText, mainMenuKeyboard())
	case knowledge.IntentTopic:
		return b.showTopic(c, m.Topic)
	default:
		return tghelpers.SendHTML(c, fallbackText, mainMenuKeyboard())
	}
}
