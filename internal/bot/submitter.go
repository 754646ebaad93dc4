package bot

import (
	"context"
	"log/slog"

	"elpbot/core/logger"
	"elpbot/internal/conversation"
	"elpbot/internal/leads"
	"elpbot/internal/notify"
)

// Persister stores a completed lead and returns the ref to show people.
type Persister interface {
	Submit(ctx context.Context, lead leads.Lead) (leads.Lead, leads.Ref)
}

// Notifier relays a stored lead.
type Notifier interface {
	Notify(ctx context.Context, lead leads.Lead, ref leads.Ref) notify.Result
}

// NewSubmitter persists the lead, then notifies. Neither step can fail the form.
func NewSubmitter(p Persister, n Notifier) conversation.Submitter {
	return conversation.SubmitFunc(func(ctx context.Context, lead leads.Lead) (leads.Lead, leads.Ref) {
		ref := leads.PlaceholderRef(lead.CreatedAt)
		if p != nil {
			lead, ref = p.Submit(ctx, lead)
		}
		res := notify.Result{EmailStatus: notify.EmailDisabled}
		if n != nil {
			res = n.Notify(ctx, lead, ref)
		}
		logger.LogEvent(ctx, logger.SVCLeads, slog.LevelInfo, "lead.submitted",
			slog.String("ref", ref.String()),
			slog.Bool("durable", ref.Durable()),
			slog.String("email_status", string(res.EmailStatus)),
			slog.Bool("admin", res.AdminSent),
		)
		return lead, ref
	})
}
