// Package memory is an in-process leads.Store for development runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"elpbot/internal/leads"
)

// Store keeps leads and activity in memory. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	leads    []leads.Lead
	activity []leads.ActivityEvent
	nextID   int64
	fail     error
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{nextID: 1, now: time.Now}
}

// SetFailure makes every subsequent call return err; nil restores normal operation.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// EnsureSchema is a no-op.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fail
}

// InsertLead appends the lead and assigns the next sequential id.
func (s *Store) InsertLead(ctx context.Context, lead leads.Lead) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	lead.ID = s.nextID
	s.nextID++
	if lead.Status == "" {
		lead.Status = leads.StatusNew
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = s.now()
	}
	s.leads = append(s.leads, lead)
	return lead.ID, nil
}

// InsertActivity appends the event.
func (s *Store) InsertActivity(ctx context.Context, ev leads.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	s.activity = append(s.activity, ev)
	return nil
}

// AggregateStats counts all leads, today's leads and leads per status.
func (s *Store) AggregateStats(ctx context.Context) (leads.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return leads.Stats{}, s.fail
	}
	y, m, d := s.now().Date()
	var st leads.Stats
	for _, l := range s.leads {
		st.Total++
		if ly, lm, ld := l.CreatedAt.Date(); ly == y && lm == m && ld == d {
			st.Today++
		}
		switch l.Status {
		case leads.StatusNew:
			st.New++
		case leads.StatusContacted:
			st.Contacted++
		}
	}
	return st, nil
}

// RecentLeads returns up to limit leads, newest first.
func (s *Store) RecentLeads(ctx context.Context, limit int) ([]leads.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := append([]leads.Lead(nil), s.leads...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Activity returns a copy of the recorded events.
func (s *Store) Activity() []leads.ActivityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]leads.ActivityEvent(nil), s.activity...)
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

var _ leads.Store = (*Store)(nil)
