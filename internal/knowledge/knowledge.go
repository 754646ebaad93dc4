// Package knowledge serves the static park information and classifies free text into it.
package knowledge

import (
	"fmt"
	"strings"

	"elpbot/core/telegram/format"
)

// Topic is a knowledge key. It doubles as the callback key of its menu button.
type Topic string

const (
	TopicArea     Topic = "area"
	TopicPrice    Topic = "price"
	TopicLocation Topic = "location"
	TopicSpecs    Topic = "specs"
	TopicContact  Topic = "contact"
	TopicTimeline Topic = "timeline"
)

// Topics lists every topic in menu order.
func Topics() []Topic {
	return []Topic{TopicArea, TopicPrice, TopicLocation, TopicSpecs, TopicContact, TopicTimeline}
}

// Keys returns the topics as callback keys.
func Keys() []string {
	out := make([]string, 0, len(Topics()))
	for _, t := range Topics() {
		out = append(out, string(t))
	}
	return out
}

// Parse resolves a callback key into a topic.
func Parse(key string) (Topic, bool) {
	for _, t := range Topics() {
		if string(t) == key {
			return t, true
		}
	}
	return "", false
}

// Broker holds the contact details shown in the contact topic.
type Broker struct {
	Phone string
	Email string
}

const (
	defaultBrokerPhone = "+7 XXX XXX-XX-XX"
	defaultBrokerEmail = "broker@elp.kz"
)

// Base is the read-only topic to HTML text mapping.
type Base struct {
	broker Broker
	texts  map[Topic]string
}

// New renders the texts once. Empty broker fields fall back to the placeholders.
func New(b Broker) *Base {
	phone := strings.TrimSpace(b.Phone)
	if phone == "" {
		phone = defaultBrokerPhone
	}
	email := strings.TrimSpace(b.Email)
	if email == "" {
		email = defaultBrokerEmail
	}
	return &Base{broker: Broker{Phone: phone, Email: email}, texts: map[Topic]string{
		TopicArea: "🏭 " + format.Bold("ELP") + " — логистический парк класса А общей площадью 250 000 кв. м.\n\n" +
			"• Корпус А: 32 800 м²\n" +
			"• Корпус В: 17 500 м²\n" +
			"• Минимальная аренда: от 3 500 м²",
		TopicPrice: "💰 " + format.Bold("От 5 500 ₸/м² с OPEX") + "\n\n" +
			"• Включает эксплуатационные расходы\n" +
			"• Индивидуальный расчет у брокера",
		TopicLocation: "📍 " + format.Bold("Кульджинский тракт, 200") + " (Талгарский р-н)\n\n" +
			"• 30 км до Алматы\n" +
			"• 22 км до аэропорта\n" +
			"• 5 км до БАКАД",
		TopicSpecs: "⚙️ " + format.Bold("Класс А") + "\n\n" +
			"• Высота: 12 м\n" +
			"• Нагрузка на пол: 8 т/м²\n" +
			"• Сетка колонн: 12×24 м",
		TopicContact: "🤝 " + format.Bold("Эксклюзивный брокер: Bright Rich | CORFAC International") + "\n\n" +
			fmt.Sprintf("📞 %s\n✉️ %s", format.Escape(phone), format.Escape(email)),
		TopicTimeline: "📅 " + format.Bold("Проект: 2025–2028 гг.") + "\n\n" +
			"• 1 этап (Корпус В) — сдан",
	}}
}

// Text returns the HTML text of a topic.
func (b *Base) Text(t Topic) (string, bool) {
	s, ok := b.texts[t]
	return s, ok
}

// Broker returns the contact details with defaults applied.
func (b *Base) Broker() Broker {
	return b.broker
}
