package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elpbot/internal/leads"
)

func sampleLead(name string) leads.Lead {
	return leads.Lead{
		UserID:      100,
		Username:    "tester",
		Name:        name,
		Contact:     "+77010000000",
		ContactKind: leads.ContactPhone,
		Area:        "до 500 м²",
		Term:        "1–3 года",
	}
}

func TestAggregateStatsEmpty(t *testing.T) {
	st, err := New().AggregateStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, leads.Stats{}, st)
}

func TestAggregateStatsCountsPerStatus(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, n := range []string{"a", "b", "c"} {
		_, err := s.InsertLead(ctx, sampleLead(n))
		require.NoError(t, err)
	}
	contacted := sampleLead("d")
	contacted.Status = leads.StatusContacted
	_, err := s.InsertLead(ctx, contacted)
	require.NoError(t, err)

	old := sampleLead("e")
	old.CreatedAt = time.Now().AddDate(0, 0, -3)
	_, err = s.InsertLead(ctx, old)
	require.NoError(t, err)

	st, err := s.AggregateStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, leads.Stats{Total: 5, Today: 4, New: 4, Contacted: 1}, st)
}

func TestRecentLeadsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, n := range []string{"first", "second", "third"} {
		l := sampleLead(n)
		l.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := s.InsertLead(ctx, l)
		require.NoError(t, err)
	}

	got, err := s.RecentLeads(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Name)
	assert.Equal(t, "second", got[1].Name)
	assert.Equal(t, int64(3), got[0].ID)
}

func TestFailureInjection(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("down")
	s.SetFailure(boom)

	_, err := s.InsertLead(ctx, sampleLead("x"))
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.InsertActivity(ctx, leads.ActivityEvent{UserID: 1, Action: "price"}), boom)

	s.SetFailure(nil)
	require.NoError(t, s.InsertActivity(ctx, leads.ActivityEvent{UserID: 1, Action: "price"}))
	assert.Len(t, s.Activity(), 1)
}
