package bot

import (
	"elpbot/core/telegram/keyboard"
	"elpbot/internal/knowledge"
	"elpbot/internal/leads"

	tele "gopkg.in/telebot.v4"
)

// Control callback keys.
const (
	KeyStartRequest = "start_request"
	KeyMainMenu     = "main_menu"
	KeyCancel       = "cancel"
	KeyBackToArea   = "back_to_area"
	KeyBackToTerm   = "back_to_term"
	KeySendPhone    = "send_phone"
	KeySendEmail    = "send_email"
	KeyWriteEmail   = "write_email"
	KeyScheduleTour = "schedule_tour"
)

var (
	btnRequest  = keyboard.Btn("📝 Оставить заявку", KeyStartRequest)
	btnMainMenu = keyboard.Btn("🏠 Главное меню", KeyMainMenu)
	btnCancel   = keyboard.Btn("❌ Отмена", KeyCancel)
	btnEmail    = keyboard.Btn("✉️ Написать на email", KeyWriteEmail)
	btnTour     = keyboard.Btn("🗓 Записаться на экскурсию", KeyScheduleTour)
)

var topicButtons = map[knowledge.Topic]keyboard.InlineBtn{
	knowledge.TopicArea:     keyboard.Btn("📐 Площади", string(knowledge.TopicArea)),
	knowledge.TopicPrice:    keyboard.Btn("💰 Стоимость", string(knowledge.TopicPrice)),
	knowledge.TopicLocation: keyboard.Btn("📍 Расположение", string(knowledge.TopicLocation)),
	knowledge.TopicSpecs:    keyboard.Btn("⚙️ Характеристики", string(knowledge.TopicSpecs)),
	knowledge.TopicTimeline: keyboard.Btn("📅 Сроки", string(knowledge.TopicTimeline)),
	knowledge.TopicContact:  keyboard.Btn("🤝 Брокер", string(knowledge.TopicContact)),
}

// Markups are rebuilt for every send: telebot encodes button data in place.

func mainMenuKeyboard() *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(topicButtons))
	for _, t := range knowledge.Topics() {
		btns = append(btns, topicButtons[t])
	}
	return keyboard.InlineButtonsNPerRow(btns, 2, []keyboard.InlineBtn{btnRequest})
}

// topicKeyboard offers the follow-up actions that fit the topic just shown.
func topicKeyboard(t knowledge.Topic) *tele.ReplyMarkup {
	var actions []keyboard.InlineBtn
	switch t {
	case knowledge.TopicArea:
		actions = []keyboard.InlineBtn{btnRequest, topicButtons[knowledge.TopicPrice]}
	case knowledge.TopicPrice:
		actions = []keyboard.InlineBtn{btnRequest, btnEmail}
	case knowledge.TopicLocation:
		actions = []keyboard.InlineBtn{btnTour, topicButtons[knowledge.TopicSpecs]}
	case knowledge.TopicSpecs:
		actions = []keyboard.InlineBtn{btnRequest, topicButtons[knowledge.TopicArea]}
	case knowledge.TopicContact:
		actions = []keyboard.InlineBtn{btnEmail, btnRequest}
	case knowledge.TopicTimeline:
		actions = []keyboard.InlineBtn{btnRequest, btnTour}
	}
	return keyboard.InlineButtonsRows(actions, []keyboard.InlineBtn{btnMainMenu})
}

func requestOrMenuKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{btnRequest}, []keyboard.InlineBtn{btnMainMenu})
}

func optionButtons(opts []leads.Option) []keyboard.InlineBtn {
	out := make([]keyboard.InlineBtn, len(opts))
	for i, o := range opts {
		out[i] = keyboard.Btn(o.Label, o.Key)
	}
	return out
}

func areaKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsNPerRow(optionButtons(leads.Areas), 2, []keyboard.InlineBtn{btnCancel})
}

func termKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsNPerRow(optionButtons(leads.Terms), 2,
		[]keyboard.InlineBtn{keyboard.Btn("⬅️ Назад", KeyBackToArea), btnCancel})
}

func backCancelKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{keyboard.Btn("⬅️ Назад", KeyBackToTerm), btnCancel})
}

func contactKindKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{keyboard.Btn("📞 Телефон", KeySendPhone), keyboard.Btn("✉️ Email", KeySendEmail)},
		[]keyboard.InlineBtn{keyboard.Btn("⬅️ Назад", KeyBackToTerm), btnCancel},
	)
}

func sharePhoneKeyboard() *tele.ReplyMarkup {
	return keyboard.ContactRequest("📱 Поделиться номером", "")
}
