package leads

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"elpbot/core/logger"
)

// ErrStoreDisabled is reported when no store is configured.
var ErrStoreDisabled = errors.New("leads: store disabled")

// Store is the durable side of the lead model.
type Store interface {
	EnsureSchema(ctx context.Context) error
	InsertLead(ctx context.Context, lead Lead) (int64, error)
	InsertActivity(ctx context.Context, ev ActivityEvent) error
	AggregateStats(ctx context.Context) (Stats, error)
	RecentLeads(ctx context.Context, limit int) ([]Lead, error)
	Close() error
}

// Service applies the failure policy on top of a Store: store errors are logged and
// turned into empty results, and a nil store turns every call into a no-op.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService wraps store. A nil store is a supported, degraded mode.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Enabled reports whether a store is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.store != nil
}

// EnsureSchema creates the tables when absent. It is safe on every start.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if !s.Enabled() {
		return ErrStoreDisabled
	}
	start := time.Now()
	if err := s.store.EnsureSchema(ctx); err != nil {
		logger.LogEvent(ctx, logger.SVCLeads, slog.LevelError, "schema.ensure",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.LogEvent(ctx, logger.SVCLeads, slog.LevelInfo, "schema.ensure",
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// InsertLead stores a complete lead with status new and returns its id.
// ok is false when the lead is incomplete, the store is absent, or the insert failed.
func (s *Service) InsertLead(ctx context.Context, lead Lead) (id int64, ok bool) {
	if err := lead.Validate(); err != nil {
		logger.LogEvent(ctx, logger.SVCLeads, slog.LevelWarn, "lead.insert",
			slog.String("status", "skip"),
			slog.String("err", err.Error()),
		)
		return 0, false
	}
	if !s.Enabled() {
		logger.LogEvent(ctx, logger.SVCLeads, slog.LevelWarn, "lead.insert",
			slog.String("status", "skip"),
			slog.String("cause", "store_disabled"),
		)
		return 0, false
	}
	lead.Status = StatusNew
	id, err := s.store.InsertLead(ctx, lead)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCLeads, slog.LevelError, "lead.insert",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return 0, false
	}
	logger.LogEvent(ctx, logger.SVCLeads, slog.LevelInfo, "lead.insert",
		slog.String("status", "ok"),
		slog.Int64("lead_id", id),
	)
	return id, true
}

// Submit persists the lead and returns it with the ref to show people:
// the store id when the insert succeeded, otherwise a timestamp placeholder.
func (s *Service) Submit(ctx context.Context, lead Lead) (Lead, Ref) {
	lead.Status = StatusNew
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = s.now()
	}
	if id, ok := s.InsertLead(ctx, lead); ok {
		lead.ID = id
		return lead, DurableRef(id)
	}
	return lead, PlaceholderRef(s.now())
}

// InsertActivity records a button press. Failures are logged and dropped.
func (s *Service) InsertActivity(ctx context.Context, userID int64, action, details string) {
	if !s.Enabled() || action == "" {
		return
	}
	ev := ActivityEvent{UserID: userID, Action: action, Details: details, CreatedAt: s.now()}
	if err := s.store.InsertActivity(ctx, ev); err != nil {
		logger.LogEvent(ctx, logger.SVCLeads, slog.LevelWarn, "activity.insert",
			slog.String("status", "fail"),
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
	}
}

// AggregateStats returns the lead counters, all zero when the store is absent or failing.
func (s *Service) AggregateStats(ctx context.Context) Stats {
	if !s.Enabled() {
		return Stats{}
	}
	st, err := s.store.AggregateStats(ctx)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCLeads, slog.LevelError, "stats.aggregate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return Stats{}
	}
	return st
}

// RecentLeads returns up to limit leads, newest first. Failures yield an empty slice.
func (s *Service) RecentLeads(ctx context.Context, limit int) []Lead {
	if !s.Enabled() || limit <= 0 {
		return nil
	}
	list, err := s.store.RecentLeads(ctx, limit)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCLeads, slog.LevelError, "leads.recent",
			slog.String("status", "fail"),
			slog.Int("count", limit),
			slog.String("err", err.Error()),
		)
		return nil
	}
	return list
}

// Close releases the store.
func (s *Service) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.store.Close()
}
