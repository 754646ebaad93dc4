// Package leads holds the lead data model and the persistence policy around it.
package leads

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ContactKind tells how the contact value should be reached.
type ContactKind string

const (
	ContactPhone       ContactKind = "phone"
	ContactEmail       ContactKind = "email"
	ContactUnspecified ContactKind = "unspecified"
)

// Status is the processing state of a lead. Nothing in the bot moves a lead past StatusNew.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
)

// ErrIncomplete is returned by Validate when a required field is missing.
var ErrIncomplete = errors.New("leads: incomplete lead")

// Lead is one prospective tenant's submitted inquiry.
type Lead struct {
	ID          int64
	UserID      int64
	Username    string
	Name        string
	Contact     string
	ContactKind ContactKind
	Area        string
	Term        string
	Status      Status
	CreatedAt   time.Time
	Notes       string
}

// Handle renders Username for people: "@name" for a Telegram username, the stored text
// unchanged when it holds the display-name fallback of a sender without one.
func (l Lead) Handle() string {
	u := strings.TrimSpace(l.Username)
	if u == "" {
		return ""
	}
	for _, r := range u {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return u
		}
	}
	return "@" + u
}

// Validate checks that area, term, name and contact are all present and the contact kind is set.
func (l Lead) Validate() error {
	var missing []string
	if strings.TrimSpace(l.Area) == "" {
		missing = append(missing, "area")
	}
	if strings.TrimSpace(l.Term) == "" {
		missing = append(missing, "term")
	}
	if strings.TrimSpace(l.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(l.Contact) == "" {
		missing = append(missing, "contact")
	}
	if l.ContactKind == "" {
		missing = append(missing, "contact_kind")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// ActivityEvent records one menu button press.
type ActivityEvent struct {
	UserID    int64
	Action    string
	Details   string
	CreatedAt time.Time
}

// Stats are the aggregate lead counters shown to the admin.
type Stats struct {
	Total     int
	Today     int
	New       int
	Contacted int
}

// Ref is the identifier shown to people for a submitted lead.
// A durable ref carries the store id; a placeholder carries the submission unix time.
type Ref struct {
	ID          int64
	Placeholder int64
}

// DurableRef wraps a store-assigned id.
func DurableRef(id int64) Ref { return Ref{ID: id} }

// PlaceholderRef builds the stand-in used when the lead could not be stored.
func PlaceholderRef(now time.Time) Ref { return Ref{Placeholder: now.Unix()} }

// Durable reports whether the lead reached the store.
func (r Ref) Durable() bool { return r.ID > 0 }

// String renders "#42" for stored leads and "#T1760440000" for placeholders.
func (r Ref) String() string {
	if r.Durable() {
		return fmt.Sprintf("#%d", r.ID)
	}
	return fmt.Sprintf("#T%d", r.Placeholder)
}
