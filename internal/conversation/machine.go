package conversation

import (
	"context"
	"log/slog"
	"time"

	"elpbot/core/logger"
	"elpbot/core/telegram/state"
	"elpbot/internal/leads"
)

// Submitter persists and relays a completed lead. It must not fail the flow.
type Submitter interface {
	Submit(ctx context.Context, lead leads.Lead) (leads.Lead, leads.Ref)
}

// SubmitFunc adapts a function to Submitter.
type SubmitFunc func(ctx context.Context, lead leads.Lead) (leads.Lead, leads.Ref)

// Submit calls f.
func (f SubmitFunc) Submit(ctx context.Context, lead leads.Lead) (leads.Lead, leads.Ref) {
	return f(ctx, lead)
}

// Machine owns the per-chat states. All methods are safe for concurrent use.
type Machine struct {
	states *state.Store[State]
	submit Submitter
	now    func() time.Time
}

// New builds a Machine on store. A nil store gets a fresh one.
func New(store *state.Store[State], submit Submitter) *Machine {
	if store == nil {
		store = state.NewStore[State]()
	}
	return &Machine{states: store, submit: submit, now: time.Now}
}

// Store exposes the state slots, e.g. for step-tagging middleware.
func (m *Machine) Store() *state.Store[State] { return m.states }

// InProgress reports whether chatID has an unfinished form.
func (m *Machine) InProgress(chatID int64) bool { return m.states.Active(chatID) }

// Current returns the chat's state.
func (m *Machine) Current(chatID int64) (State, bool) { return m.states.Get(chatID) }

// Start opens an empty form, replacing any form in progress.
func (m *Machine) Start(chatID int64, u User) Reply {
	st := State{
		Step: StepSelectingArea,
		Form: Form{UserID: u.ID, Username: u.Username, StartedAt: m.now()},
	}
	m.states.Set(chatID, st)
	return replyFor(st, false)
}

// transition applies fn to an existing state. Without a state the reply is PromptInactive.
func (m *Machine) transition(chatID int64, fn func(st State) (State, bool)) Reply {
	var out Reply
	m.states.Update(chatID, func(cur State, ok bool) (State, bool) {
		if !ok {
			out = Reply{Prompt: PromptInactive}
			return cur, false
		}
		next, moved := fn(cur)
		out = replyFor(next, !moved)
		return next, true
	})
	return out
}

// SelectArea records the area and asks for the term. Only valid while selecting the area.
func (m *Machine) SelectArea(chatID int64, u User, areaKey string) Reply {
	label, known := leads.AreaLabel(areaKey)
	return m.transition(chatID, func(st State) (State, bool) {
		if st.Step != StepSelectingArea || !known {
			return st, false
		}
		st.Form.Area = label
		if u.ID != 0 {
			st.Form.UserID = u.ID
			st.Form.Username = u.Username
		}
		st.Form.StartedAt = m.now()
		st.Step = StepSelectingTerm
		return st, true
	})
}

// BackToArea returns from the term step to the area step. The recorded area stays until replaced.
func (m *Machine) BackToArea(chatID int64) Reply {
	return m.transition(chatID, func(st State) (State, bool) {
		if st.Step != StepSelectingTerm {
			return st, false
		}
		st.Step = StepSelectingArea
		return st, true
	})
}

// SelectTerm records the term and asks for the name. Only valid while selecting the term.
func (m *Machine) SelectTerm(chatID int64, termKey string) Reply {
	label, known := leads.TermLabel(termKey)
	return m.transition(chatID, func(st State) (State, bool) {
		if st.Step != StepSelectingTerm || !known {
			return st, false
		}
		st.Form.Term = label
		st.Step = StepAwaitingName
		return st, true
	})
}

// BackToTerm returns from the name step to the term step.
func (m *Machine) BackToTerm(chatID int64) Reply {
	return m.transition(chatID, func(st State) (State, bool) {
		if st.Step != StepAwaitingName {
			return st, false
		}
		st.Step = StepSelectingTerm
		return st, true
	})
}

// BackToName returns from the contact step to the name prompt, keeping area and term.
func (m *Machine) BackToName(chatID int64) Reply {
	return m.transition(chatID, func(st State) (State, bool) {
		if st.Step != StepAwaitingContact {
			return st, false
		}
		st.Step = StepAwaitingName
		st.PendingKind = ""
		return st, true
	})
}

// ChooseContactKind remembers how the user wants to be reached and asks for the value.
func (m *Machine) ChooseContactKind(chatID int64, kind leads.ContactKind) Reply {
	return m.transition(chatID, func(st State) (State, bool) {
		if st.Step != StepAwaitingContact {
			return st, false
		}
		st.PendingKind = kind
		return st, true
	})
}

// Text feeds free text into the current step. The name and contact are taken verbatim.
// In the contact step it completes the form with the chosen kind, or unspecified.
func (m *Machine) Text(ctx context.Context, chatID int64, text string) Reply {
	var (
		out     Reply
		claimed *State
	)
	m.states.Update(chatID, func(cur State, ok bool) (State, bool) {
		if !ok {
			out = Reply{Prompt: PromptInactive}
			return cur, false
		}
		switch cur.Step {
		case StepAwaitingName:
			cur.Form.Name = text
			cur.Step = StepAwaitingContact
			cur.PendingKind = ""
			out = replyFor(cur, false)
			return cur, true
		case StepAwaitingContact:
			claimed = &cur
			return cur, false
		default:
			out = replyFor(cur, true)
			return cur, true
		}
	})
	if claimed == nil {
		return out
	}
	kind := claimed.PendingKind
	if kind == "" {
		kind = leads.ContactUnspecified
	}
	return m.finalize(ctx, *claimed, text, kind)
}

// ShareContact completes the form with a phone number shared through Telegram.
func (m *Machine) ShareContact(ctx context.Context, chatID int64, phone string) Reply {
	var (
		out     Reply
		claimed *State
	)
	m.states.Update(chatID, func(cur State, ok bool) (State, bool) {
		if !ok {
			out = Reply{Prompt: PromptInactive}
			return cur, false
		}
		if cur.Step != StepAwaitingContact {
			out = replyFor(cur, true)
			return cur, true
		}
		claimed = &cur
		return cur, false
	})
	if claimed == nil {
		return out
	}
	return m.finalize(ctx, *claimed, phone, leads.ContactPhone)
}

// Cancel drops the chat's form. It is a no-op for chats without one.
func (m *Machine) Cancel(chatID int64) Reply {
	m.states.Delete(chatID)
	return Reply{Prompt: PromptCancelled}
}

// finalize runs after the slot was removed under the store lock, so a racing
// completion for the same chat sees no state. The submitter runs outside the lock.
func (m *Machine) finalize(ctx context.Context, st State, contact string, kind leads.ContactKind) Reply {
	lead := leads.Lead{
		UserID:      st.Form.UserID,
		Username:    st.Form.Username,
		Name:        st.Form.Name,
		Contact:     contact,
		ContactKind: kind,
		Area:        st.Form.Area,
		Term:        st.Form.Term,
		Status:      leads.StatusNew,
		CreatedAt:   m.now(),
	}
	ref := leads.PlaceholderRef(lead.CreatedAt)
	if m.submit != nil {
		lead, ref = m.submit.Submit(ctx, lead)
	} else {
		logger.LogEvent(ctx, logger.SVCLeads, slog.LevelWarn, "lead.submit",
			slog.String("status", "skip"),
			slog.String("cause", "no_submitter"),
		)
	}
	return Reply{Prompt: PromptSubmitted, Form: st.Form, Kind: kind, Lead: lead, Ref: ref}
}
