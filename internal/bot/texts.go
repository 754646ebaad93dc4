package bot

import (
	"fmt"
	"strings"

	"elpbot/core/telegram/format"
	"elpbot/internal/conversation"
	"elpbot/internal/knowledge"
	"elpbot/internal/leads"
	"elpbot/internal/notify"
)

const (
	welcomeText = "🏭 <b>Евразийский Логистический Парк (ELP)</b>\n\n" +
		"Логистический парк класса А в 30 км от Алматы. " +
		"Расскажу о площадях, ценах и расположении и помогу оставить заявку на аренду.\n\n" +
		"Выберите вопрос:"
	menuText     = "🏭 <b>Евразийский Логистический Парк (ELP)</b>\n\nВыберите вопрос:"
	fallbackText = "Выберите вопрос из меню или напишите: площадь, стоимость, расположение и т.д."
	greetingText = "👋 Здравствуйте!\n\n"
	thanksText   = "🙏 Рады помочь! Если появятся вопросы, выберите раздел в меню.\n\n"

	cancelledText  = "❌ Заявка отменена."
	useButtonsText = "Пожалуйста, выберите вариант кнопкой ниже.\n\n"

	tourText = "🗓 <b>Экскурсия по ELP</b>\n\n" +
		"Оставьте заявку, и брокер согласует с вами удобное время визита на объект."
)

func areaPrompt() string {
	return "📝 <b>Заявка на аренду</b>\n\nШаг 1 из 4. Какая площадь вам нужна?"
}

func termPrompt(f conversation.Form) string {
	return "📝 <b>Заявка на аренду</b>\n\n" +
		format.Field("Площадь", f.Area, "—") + "\n\n" +
		"Шаг 2 из 4. На какой срок планируете аренду?"
}

func namePrompt(f conversation.Form) string {
	return "📝 <b>Заявка на аренду</b>\n\n" +
		format.Field("Площадь", f.Area, "—") + "\n" +
		format.Field("Срок", f.Term, "—") + "\n\n" +
		"Шаг 3 из 4. Как к вам обращаться? Напишите ваше имя."
}

func contactKindPrompt(f conversation.Form) string {
	return "📝 <b>Заявка на аренду</b>\n\n" +
		format.Field("Имя", f.Name, "—") + "\n\n" +
		"Шаг 4 из 4. Как с вами связаться? Выберите способ или просто напишите контакт сообщением."
}

func contactValuePrompt(kind leads.ContactKind) string {
	if kind == leads.ContactPhone {
		return "📞 Нажмите кнопку ниже, чтобы поделиться номером, или введите его вручную."
	}
	return "✉️ Введите ваш email:"
}

func submittedText(lead leads.Lead, ref leads.Ref) string {
	var b strings.Builder
	name := strings.TrimSpace(lead.Name)
	if name == "" {
		b.WriteString("✅ <b>Спасибо!</b>\n\n")
	} else {
		b.WriteString("✅ <b>Спасибо, " + format.Escape(format.Truncate(name, 64)) + "!</b>\n\n")
	}
	fmt.Fprintf(&b, "Ваша заявка %s принята. Брокер свяжется с вами в ближайшее время.\n\n", format.Bold(ref.String()))
	b.WriteString(format.Field("Площадь", lead.Area, "—") + "\n")
	b.WriteString(format.Field("Срок", lead.Term, "—") + "\n")
	b.WriteString(format.Field("Контакт", lead.Contact, "—"))
	return b.String()
}

func writeEmailText(br knowledge.Broker) string {
	return "✉️ Напишите нам: " + format.Code(br.Email) + "\n\n" +
		"Или оставьте заявку, и брокер свяжется с вами сам."
}

func scheduleTourText(br knowledge.Broker) string {
	return tourText + "\n\n📞 " + format.Escape(br.Phone)
}

const (
	statsRecent  = 5
	leadsRecent  = 10
	exportLimit  = 1000
	fieldMaxRune = 100
)

func statsBlock(st leads.Stats) string {
	return fmt.Sprintf("• Всего заявок: %d\n• Сегодня: %d\n• Новые: %d\n• В работе: %d",
		st.Total, st.Today, st.New, st.Contacted)
}

const storeDisabledText = "⚠️ База данных не подключена, данные недоступны."

func statsText(st leads.Stats, recent []leads.Lead, enabled bool) string {
	var b strings.Builder
	b.WriteString("📊 <b>Статистика заявок</b>\n\n")
	b.WriteString(statsBlock(st))
	if !enabled {
		b.WriteString("\n\n" + storeDisabledText)
		return b.String()
	}
	b.WriteString("\n\n<b>Последние заявки:</b>\n")
	if len(recent) == 0 {
		b.WriteString("Заявок пока нет.")
		return b.String()
	}
	for _, l := range recent {
		fmt.Fprintf(&b, "%s · %s · %s · %s\n",
			format.Bold(leads.DurableRef(l.ID).String()),
			format.Escape(format.Truncate(l.Name, 40)),
			format.Escape(l.Area),
			format.Escape(formatStamp(l)),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func leadsText(list []leads.Lead, enabled bool) string {
	if !enabled {
		return "📋 <b>Последние заявки</b>\n\n" + storeDisabledText
	}
	if len(list) == 0 {
		return "📋 <b>Последние заявки</b>\n\nЗаявок пока нет."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Последние заявки</b> (%d)\n", len(list))
	for _, l := range list {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s · %s\n", format.Bold(leads.DurableRef(l.ID).String()), format.Escape(formatStamp(l)))
		user := format.Escape(format.Truncate(l.Name, fieldMaxRune))
		if h := l.Handle(); h != "" {
			user += " (" + format.Escape(h) + ")"
		}
		b.WriteString("👤 " + user + "\n")
		fmt.Fprintf(&b, "📞 %s (%s)\n", format.Escape(format.Truncate(l.Contact, fieldMaxRune)), notify.ContactKindLabel(l.ContactKind))
		fmt.Fprintf(&b, "📐 %s · 📅 %s\n", format.Escape(l.Area), format.Escape(l.Term))
		b.WriteString("🏷 " + statusLabel(l.Status) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func dashboardText(st leads.Stats, enabled bool) string {
	text := "📊 <b>Панель управления ELP Bot</b>\n\n" + statsBlock(st) + "\n\n"
	if !enabled {
		text += storeDisabledText + "\n\n"
	}
	return text + "<b>Команды:</b>\n" +
		"/stats - статистика и последние заявки\n" +
		"/leads - последние заявки подробно\n" +
		"/export - экспорт в Excel"
}

func statusLabel(s leads.Status) string {
	if s == leads.StatusContacted {
		return "в работе"
	}
	return "новая"
}
