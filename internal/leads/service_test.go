package leads_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elpbot/internal/leads"
	"elpbot/internal/storage/memory"
)

func completeLead() leads.Lead {
	return leads.Lead{
		UserID:      42,
		Username:    "aigul",
		Name:        "Айгуль",
		Contact:     "aigul@example.kz",
		ContactKind: leads.ContactEmail,
		Area:        "1 000–3 000 м²",
		Term:        "6–12 месяцев",
	}
}

func TestSubmitStoresLeadWithStatusNew(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := leads.NewService(store)

	lead, ref := svc.Submit(ctx, completeLead())

	require.True(t, ref.Durable())
	assert.Equal(t, "#1", ref.String())
	assert.Equal(t, int64(1), lead.ID)

	stored, err := store.RecentLeads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, leads.StatusNew, stored[0].Status)
	assert.Equal(t, "Айгуль", stored[0].Name)
	assert.Equal(t, leads.ContactEmail, stored[0].ContactKind)
}

func TestSubmitFallsBackToPlaceholder(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.SetFailure(errors.New("connection refused"))
	svc := leads.NewService(store)

	before := time.Now().Unix()
	_, ref := svc.Submit(ctx, completeLead())

	assert.False(t, ref.Durable())
	assert.True(t, strings.HasPrefix(ref.String(), "#T"))
	assert.GreaterOrEqual(t, ref.Placeholder, before)
}

func TestDisabledServiceDegrades(t *testing.T) {
	ctx := context.Background()
	svc := leads.NewService(nil)

	assert.False(t, svc.Enabled())
	assert.ErrorIs(t, svc.EnsureSchema(ctx), leads.ErrStoreDisabled)
	_, ok := svc.InsertLead(ctx, completeLead())
	assert.False(t, ok)
	svc.InsertActivity(ctx, 1, "price", "")
	assert.Equal(t, leads.Stats{}, svc.AggregateStats(ctx))
	assert.Empty(t, svc.RecentLeads(ctx, 5))
	assert.NoError(t, svc.Close())
}

func TestInsertLeadRejectsIncomplete(t *testing.T) {
	store := memory.New()
	svc := leads.NewService(store)
	l := completeLead()
	l.Term = ""

	_, ok := svc.InsertLead(context.Background(), l)
	assert.False(t, ok)
	got, _ := store.RecentLeads(context.Background(), 10)
	assert.Empty(t, got)
}

func TestFailingStoreYieldsZeroResults(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, _ = store.InsertLead(ctx, completeLead())
	store.SetFailure(errors.New("timeout"))
	svc := leads.NewService(store)

	assert.Equal(t, leads.Stats{}, svc.AggregateStats(ctx))
	assert.Empty(t, svc.RecentLeads(ctx, 5))
	svc.InsertActivity(ctx, 1, "area", "")
	assert.Empty(t, store.Activity())
}

func TestRefFormatsAreDistinct(t *testing.T) {
	now := time.Unix(1760440000, 0)
	assert.Equal(t, "#42", leads.DurableRef(42).String())
	assert.Equal(t, "#T1760440000", leads.PlaceholderRef(now).String())
}

func TestCatalogLookup(t *testing.T) {
	label, ok := leads.AreaLabel("area_3000")
	require.True(t, ok)
	assert.Equal(t, "1 000–3 000 м²", label)

	_, ok = leads.TermLabel("area_3000")
	assert.False(t, ok)
	assert.Equal(t, []string{"term_6", "term_12", "term_36", "term_60"}, leads.Keys(leads.Terms))
}

func TestValidateNamesMissingFields(t *testing.T) {
	err := leads.Lead{Area: "x"}.Validate()
	require.ErrorIs(t, err, leads.ErrIncomplete)
	assert.Contains(t, err.Error(), "term, name, contact, contact_kind")
}

func TestLeadHandle(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"aigul":          "@aigul",
		"  elp_bot42 ":   "@elp_bot42",
		"Айгуль Иванова": "Айгуль Иванова",
		"Tom Sawyer":     "Tom Sawyer",
	}
	for in, want := range cases {
		assert.Equal(t, want, leads.Lead{Username: in}.Handle(), in)
	}
}
