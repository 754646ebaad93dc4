// Package conversation drives the four-step lead form: area, term, name, contact.
// It knows nothing about Telegram; callers render the returned Reply.
package conversation

import (
	"time"

	"elpbot/internal/leads"
)

// Step is the position of a chat in the lead form.
type Step int

const (
	StepSelectingArea Step = iota + 1
	StepSelectingTerm
	StepAwaitingName
	StepAwaitingContact
)

func (s Step) String() string {
	switch s {
	case StepSelectingArea:
		return "selecting_area"
	case StepSelectingTerm:
		return "selecting_term"
	case StepAwaitingName:
		return "awaiting_name"
	case StepAwaitingContact:
		return "awaiting_contact"
	default:
		return "idle"
	}
}

// Form holds the answers collected so far.
type Form struct {
	UserID    int64
	Username  string
	Area      string
	Term      string
	Name      string
	StartedAt time.Time
}

// State is the per-chat slot. PendingKind is the contact kind picked by button, if any.
type State struct {
	Step        Step
	Form        Form
	PendingKind leads.ContactKind
}

// Label names the step for logs.
func Label(s State) string { return s.Step.String() }

// User identifies who is filling the form.
type User struct {
	ID       int64
	Username string
}

// Prompt tells the caller what to show next.
type Prompt int

const (
	// PromptInactive: there is no form for this chat; show the main menu.
	PromptInactive Prompt = iota
	PromptArea
	PromptTerm
	PromptName
	PromptContactKind
	PromptContactValue
	PromptSubmitted
	PromptCancelled
)

func (p Prompt) String() string {
	switch p {
	case PromptArea:
		return "area"
	case PromptTerm:
		return "term"
	case PromptName:
		return "name"
	case PromptContactKind:
		return "contact_kind"
	case PromptContactValue:
		return "contact_value"
	case PromptSubmitted:
		return "submitted"
	case PromptCancelled:
		return "cancelled"
	default:
		return "inactive"
	}
}

// Reply is the outcome of one operation.
// Repeat is set when the input did not fit the step and the same prompt is shown again.
// Lead and Ref are set only with PromptSubmitted.
type Reply struct {
	Prompt Prompt
	Step   Step
	Form   Form
	Kind   leads.ContactKind
	Repeat bool
	Lead   leads.Lead
	Ref    leads.Ref
}

func promptFor(s State) Prompt {
	switch s.Step {
	case StepSelectingArea:
		return PromptArea
	case StepSelectingTerm:
		return PromptTerm
	case StepAwaitingName:
		return PromptName
	case StepAwaitingContact:
		if s.PendingKind != "" {
			return PromptContactValue
		}
		return PromptContactKind
	default:
		return PromptInactive
	}
}

func replyFor(s State, repeat bool) Reply {
	return Reply{Prompt: promptFor(s), Step: s.Step, Form: s.Form, Kind: s.PendingKind, Repeat: repeat}
}
