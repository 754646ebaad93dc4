package bot

import (
	"fmt"
	"log/slog"

	tghelpers "elpbot/core/telegram/helpers"
	"elpbot/internal/leads"

	tele "gopkg.in/telebot.v4"
)

// Admin handlers sit behind the admin gate in the command router.

func (b *Bot) onStats(c tele.Context) error {
	if b.leads == nil || !b.leads.Enabled() {
		return tghelpers.SendHTML(c, statsText(leads.Stats{}, nil, false))
	}
	ctx := tghelpers.BuildContext(c)
	st := b.leads.AggregateStats(ctx)
	recent := b.leads.RecentLeads(ctx, statsRecent)
	return tghelpers.SendHTML(c, statsText(st, recent, true))
}

func (b *Bot) onLeads(c tele.Context) error {
	if b.leads == nil || !b.leads.Enabled() {
		return tghelpers.SendHTML(c, leadsText(nil, false))
	}
	list := b.leads.RecentLeads(tghelpers.BuildContext(c), leadsRecent)
	return tghelpers.SendHTML(c, leadsText(list, true))
}

func (b *Bot) onDashboard(c tele.Context) error {
	enabled := b.leads != nil && b.leads.Enabled()
	return tghelpers.SendHTML(c, dashboardText(b.statsOrZero(c), enabled))
}

func (b *Bot) onExport(c tele.Context) error {
	if b.leads == nil || !b.leads.Enabled() {
		return tghelpers.SendHTML(c, "📤 "+storeDisabledText)
	}
	list := b.leads.RecentLeads(tghelpers.BuildContext(c), exportLimit)
	if len(list) == 0 {
		return tghelpers.SendHTML(c, "📤 Нет заявок для экспорта.")
	}
	buf, err := BuildWorkbook(list)
	if err != nil {
		logf(c, slog.LevelError, "export.build",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendHTML(c, "⚠️ Не удалось сформировать файл.")
	}
	now := b.now()
	doc := &tele.Document{
		File:     tele.FromReader(buf),
		FileName: fmt.Sprintf("elp_leads_%s.xlsx", now.Format("20060102_1504")),
		Caption:  fmt.Sprintf("📊 Выгрузка заявок: %d", len(list)),
	}
	logf(c, slog.LevelInfo, "export.build",
		slog.String("status", "ok"),
		slog.Int("count", len(list)),
	)
	return tghelpers.SendDocument(c, doc)
}

func (b *Bot) statsOrZero(c tele.Context) leads.Stats {
	if b.leads == nil {
		return leads.Stats{}
	}
	return b.leads.AggregateStats(tghelpers.BuildContext(c))
}
