// Package bot binds the ELP menu, the lead form and the admin commands to Telegram.
package bot

import (
	"context"
	"log/slog"
	"time"

	"elpbot/core/logger"
	tg "elpbot/core/telegram"
	"elpbot/core/telegram/commands"
	tghelpers "elpbot/core/telegram/helpers"
	"elpbot/core/telegram/router"
	"elpbot/internal/conversation"
	"elpbot/internal/knowledge"
	"elpbot/internal/leads"

	tele "gopkg.in/telebot.v4"
)

// Leads is the persistence surface the handlers read from and track activity into.
type Leads interface {
	Enabled() bool
	InsertActivity(ctx context.Context, userID int64, action, details string)
	AggregateStats(ctx context.Context) leads.Stats
	RecentLeads(ctx context.Context, limit int) []leads.Lead
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Machine   *conversation.Machine
	Leads     Leads
	Knowledge *knowledge.Base
	AdminID   int64
	Now       func() time.Time
}

// Bot holds the handlers. It implements router.Conversation.
type Bot struct {
	machine  *conversation.Machine
	leads    Leads
	kb       *knowledge.Base
	adminID  int64
	now      func() time.Time
	activity *activityLog
}

// New builds a Bot. Missing knowledge falls back to the default broker contacts.
func New(d Deps) *Bot {
	b := &Bot{machine: d.Machine, leads: d.Leads, kb: d.Knowledge, adminID: d.AdminID, now: d.Now}
	if b.machine == nil {
		b.machine = conversation.New(nil, nil)
	}
	if b.kb == nil {
		b.kb = knowledge.New(knowledge.Broker{})
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.leads != nil {
		b.activity = newActivityLog(b.leads)
	}
	return b
}

// Close drains the activity queue. Presses after Close are not recorded.
func (b *Bot) Close() {
	if b.activity != nil {
		b.activity.close()
	}
}

// Register adds commands and callbacks to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: b.onStart, Description: "Главное меню", Aliases: []string{"/menu"}}},
		{"/cancel", commands.Command{Handler: b.onCancel, Description: "Отменить заявку"}},
		{"/stats", commands.Command{Handler: b.onStats, Description: "Статистика заявок", AdminOnly: true}},
		{"/leads", commands.Command{Handler: b.onLeads, Description: "Последние заявки", AdminOnly: true}},
		{"/export", commands.Command{Handler: b.onExport, Description: "Экспорт заявок в Excel", AdminOnly: true}},
		{"/dashboard", commands.Command{Handler: b.onDashboard, Description: "Панель управления", AdminOnly: true}},
	}
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return err
		}
	}

	groups := []struct {
		keys []string
		h    tele.HandlerFunc
	}{
		{leads.Keys(leads.Areas), b.onArea},
		{leads.Keys(leads.Terms), b.onTerm},
		{knowledge.Keys(), b.onTopic},
		{[]string{KeyStartRequest}, b.onStartRequest},
		{[]string{KeyMainMenu}, b.onMainMenu},
		{[]string{KeyCancel}, b.onCancel},
		{[]string{KeyBackToArea}, b.onBackToArea},
		{[]string{KeyBackToTerm}, b.onBackToTerm},
		{[]string{KeySendPhone}, b.onContactKind(leads.ContactPhone)},
		{[]string{KeySendEmail}, b.onContactKind(leads.ContactEmail)},
		{[]string{KeyWriteEmail}, b.onWriteEmail},
		{[]string{KeyScheduleTour}, b.onScheduleTour},
	}
	for _, g := range groups {
		if err := reg.RegisterCallbacks(g.keys, g.h); err != nil {
			return err
		}
	}
	return nil
}

// Routes wraps the registry into telebot routes.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: b.adminID})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{Before: b.trackActivity}))
	routes = append(routes, router.TextRoutes(b, reg, router.TextOptions{
		UnknownText:     b.onFreeText,
		UnknownContact:  b.onMainMenu,
		UnknownDocument: b.onMainMenu,
	})...)
	return routes
}

// StepLabel names the chat's step for logs.
func (b *Bot) StepLabel(s conversation.State) string { return conversation.Label(s) }

// InProgress reports whether the chat is filling the lead form.
func (b *Bot) InProgress(chatID int64) bool { return b.machine.InProgress(chatID) }

// HandleText feeds a message into the form.
func (b *Bot) HandleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return b.render(c, b.machine.Text(ctx, chatID(c), c.Text()))
}

// HandleContact completes the form with a shared phone number.
func (b *Bot) HandleContact(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Contact == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	return b.render(c, b.machine.ShareContact(ctx, chatID(c), msg.Contact.PhoneNumber))
}

// trackActivity queues every button press for the store and returns at once.
func (b *Bot) trackActivity(c tele.Context, key string) {
	if b.activity == nil {
		return
	}
	sender := c.Sender()
	if sender == nil {
		return
	}
	b.activity.record(tghelpers.BuildContext(c), sender.ID, key)
}

func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if s := c.Sender(); s != nil {
		return s.ID
	}
	return 0
}

func userOf(c tele.Context) conversation.User {
	s := c.Sender()
	if s == nil {
		return conversation.User{}
	}
	return conversation.User{ID: s.ID, Username: tghelpers.Username(s)}
}

func formatStamp(l leads.Lead) string {
	return tghelpers.FormatStamp(l.CreatedAt)
}

func logf(c tele.Context, level slog.Level, event string, attrs ...slog.Attr) {
	logger.LogEvent(tghelpers.BuildContext(c), logger.Component("tg"), level, event, attrs...)
}
