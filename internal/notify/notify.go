// Package notify relays submitted leads to the administrator by chat and, optionally, by email.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"
	"gopkg.in/mail.v2"

	"elpbot/core/logger"
	"elpbot/internal/leads"
)

// Messenger sends chat messages. *tele.Bot satisfies it.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Mailer delivers composed emails. *mail.Dialer satisfies it.
type Mailer interface {
	DialAndSend(m ...*mail.Message) error
}

// EmailStatus is the outcome of the email channel, shown in the admin message.
type EmailStatus string

const (
	EmailSent     EmailStatus = "sent"
	EmailFailed   EmailStatus = "failed"
	EmailDisabled EmailStatus = "disabled"
)

// SMTPConfig configures the optional email channel.
type SMTPConfig struct {
	Host     string `yaml:"host" envconfig:"SMTP_HOST"`
	Port     int    `yaml:"port" envconfig:"SMTP_PORT"`
	User     string `yaml:"user" envconfig:"SMTP_USER"`
	Password string `yaml:"password" envconfig:"SMTP_PASSWORD"`
	From     string `yaml:"from" envconfig:"SMTP_FROM"`
	To       string `yaml:"to" envconfig:"EMAIL_TO"`
}

// Enabled reports whether both a relay and a recipient are set.
func (c SMTPConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != "" && strings.TrimSpace(c.To) != ""
}

func (c SMTPConfig) sender() string {
	if from := strings.TrimSpace(c.From); from != "" {
		return from
	}
	return strings.TrimSpace(c.User)
}

const (
	defaultSMTPPort = 587
	dialTimeout     = 10 * time.Second
)

// NewDialer builds the mail.v2 dialer for cfg.
func NewDialer(cfg SMTPConfig) *mail.Dialer {
	port := cfg.Port
	if port <= 0 {
		port = defaultSMTPPort
	}
	d := mail.NewDialer(cfg.Host, port, cfg.User, cfg.Password)
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	d.Timeout = dialTimeout
	return d
}

// Options configure a Dispatcher. Mailer defaults to NewDialer(SMTP) when SMTP is enabled.
// Messenger may be left nil and bound later, once the bot exists.
type Options struct {
	AdminID   int64
	SMTP      SMTPConfig
	Mailer    Mailer
	Messenger Messenger
	Now       func() time.Time
}

// Dispatcher sends one admin message and at most one email per lead. Failures never propagate.
type Dispatcher struct {
	adminID int64
	smtp    SMTPConfig
	mailer  Mailer
	now     func() time.Time

	mu        sync.RWMutex
	messenger Messenger
}

// New builds a Dispatcher.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		adminID:   opts.AdminID,
		smtp:      opts.SMTP,
		mailer:    opts.Mailer,
		now:       opts.Now,
		messenger: opts.Messenger,
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.mailer == nil && opts.SMTP.Enabled() {
		d.mailer = NewDialer(opts.SMTP)
	}
	return d
}

// Bind sets the messenger used for admin messages.
func (d *Dispatcher) Bind(m Messenger) {
	d.mu.Lock()
	d.messenger = m
	d.mu.Unlock()
}

func (d *Dispatcher) currentMessenger() Messenger {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.messenger
}

// EmailEnabled reports whether the email channel is active.
func (d *Dispatcher) EmailEnabled() bool {
	return d != nil && d.mailer != nil && d.smtp.Enabled()
}

// Result reports what each channel did.
type Result struct {
	EmailStatus EmailStatus
	AdminSent   bool
}

// Notify emails the lead when configured, then messages the admin chat with the email outcome.
func (d *Dispatcher) Notify(ctx context.Context, lead leads.Lead, ref leads.Ref) Result {
	if d == nil {
		return Result{EmailStatus: EmailDisabled}
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = d.now()
	}
	res := Result{EmailStatus: d.sendEmail(ctx, lead, ref)}
	res.AdminSent = d.sendAdmin(ctx, d.currentMessenger(), lead, ref, res.EmailStatus)
	return res
}

func (d *Dispatcher) sendEmail(ctx context.Context, lead leads.Lead, ref leads.Ref) EmailStatus {
	if !d.EmailEnabled() {
		return EmailDisabled
	}
	msg, err := d.composeEmail(lead, ref)
	if err == nil {
		start := time.Now()
		err = d.mailer.DialAndSend(msg)
		if err == nil {
			logger.LogEvent(ctx, logger.NOTIFY, slog.LevelInfo, "notify.email",
				slog.String("email_status", string(EmailSent)),
				slog.String("ref", ref.String()),
				slog.Duration("duration", logger.Took(start)),
			)
			return EmailSent
		}
	}
	logger.LogEvent(ctx, logger.NOTIFY, slog.LevelError, "notify.email",
		slog.String("email_status", string(EmailFailed)),
		slog.String("ref", ref.String()),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	return EmailFailed
}

func (d *Dispatcher) composeEmail(lead leads.Lead, ref leads.Ref) (*mail.Message, error) {
	body, err := renderEmail(lead, ref)
	if err != nil {
		return nil, err
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", d.smtp.sender())
	msg.SetHeader("To", splitRecipients(d.smtp.To)...)
	msg.SetHeader("Subject", fmt.Sprintf("Новая заявка ELP %s", ref))
	msg.SetBody("text/html", body)
	return msg, nil
}

func (d *Dispatcher) sendAdmin(ctx context.Context, m Messenger, lead leads.Lead, ref leads.Ref, status EmailStatus) bool {
	if d.adminID == 0 {
		logger.LogEvent(ctx, logger.NOTIFY, slog.LevelWarn, "notify.admin",
			slog.String("status", "skip"),
			slog.String("cause", "admin_not_configured"),
			slog.String("ref", ref.String()),
		)
		return false
	}
	if m == nil {
		logger.LogEvent(ctx, logger.NOTIFY, slog.LevelError, "notify.admin",
			slog.String("status", "skip"),
			slog.String("cause", "no_messenger"),
			slog.String("ref", ref.String()),
		)
		return false
	}
	text := AdminMessage(lead, ref, status)
	if _, err := m.Send(tele.ChatID(d.adminID), text, &tele.SendOptions{ParseMode: tele.ModeHTML}); err != nil {
		logger.LogEvent(ctx, logger.NOTIFY, slog.LevelError, "notify.admin",
			slog.String("status", "fail"),
			slog.String("ref", ref.String()),
			slog.String("email_status", string(status)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return false
	}
	logger.LogEvent(ctx, logger.NOTIFY, slog.LevelInfo, "notify.admin",
		slog.String("status", "ok"),
		slog.String("ref", ref.String()),
		slog.String("email_status", string(status)),
	)
	return true
}

func splitRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
