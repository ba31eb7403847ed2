package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SubEvent is one part of an event's programme
type SubEvent struct {
	Name         string
	StartTime    string
	EndTime      string
	Location     string
	Instructions string
	Note         string
}

// MediaKind selects which media reference an upload updates
type MediaKind string

const (
	MediaSchedule MediaKind = "schedule"
	MediaMap      MediaKind = "map"
	MediaGallery  MediaKind = "media"
)

// ParseMediaKind validates a media kind from a URL segment
func ParseMediaKind(s string) (MediaKind, error) {
	switch k := MediaKind(strings.ToLower(s)); k {
	case MediaSchedule, MediaMap, MediaGallery:
		return k, nil
	}
	return "", NewValidationError("kind", "must be one of schedule, map, media")
}

// Media holds object-store paths attached to an event
type Media struct {
	Schedule string
	Map      string
	Gallery  []string
}

// Event is the aggregate organizers create and invitees respond to
type Event struct {
	ID             string
	Name           string
	OrganizerEmail string
	Description    string
	Location       string
	EventDate      string // YYYY-MM-DD
	StartTime      string // HH:MM or YYYY-MM-DDTHH:MM
	EndTime        string
	IsPublic       bool
	AdditionalInfo string
	Note           string
	Instructions   string
	Invitees       []string
	SubEvents      []SubEvent
	RSVPs          map[string]RSVPStatus
	Media          Media
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Normalize trims text, lower-cases emails and fills nil collections
func (e *Event) Normalize() {
	e.Name = strings.TrimSpace(e.Name)
	e.OrganizerEmail = NormalizeEmail(e.OrganizerEmail)
	e.Invitees = NormalizeEmails(e.Invitees)
	if e.SubEvents == nil {
		e.SubEvents = []SubEvent{}
	}
	if e.Media.Gallery == nil {
		e.Media.Gallery = []string{}
	}
	if e.RSVPs == nil {
		e.RSVPs = map[string]RSVPStatus{}
	}
	normalized := make(map[string]RSVPStatus, len(e.RSVPs))
	for email, status := range e.RSVPs {
		normalized[NormalizeEmail(email)] = status
	}
	e.RSVPs = normalized
}

// Validate checks the event invariants after Normalize
func (e *Event) Validate() error {
	var errs ValidationErrors

	if e.Name == "" {
		errs = append(errs, ValidationError{"name", "is required"})
	}
	if err := validate.Var(e.OrganizerEmail, "required,email"); err != nil {
		errs = append(errs, ValidationError{"organizer_email", "must be a valid email"})
	}

	seen := make(map[string]struct{}, len(e.Invitees))
	for _, inv := range e.Invitees {
		if err := validate.Var(inv, "required,email"); err != nil {
			errs = append(errs, ValidationError{"invitees", fmt.Sprintf("%q is not a valid email", inv)})
			continue
		}
		if inv == e.OrganizerEmail {
			errs = append(errs, ValidationError{"invitees", "organizer cannot be invited to their own event"})
		}
		if _, dup := seen[inv]; dup {
			errs = append(errs, ValidationError{"invitees", fmt.Sprintf("%q is listed more than once", inv)})
		}
		seen[inv] = struct{}{}
	}

	for email, status := range e.RSVPs {
		if _, ok := seen[email]; !ok {
			errs = append(errs, ValidationError{"rsvps", fmt.Sprintf("%q is not an invitee", email)})
		}
		if !status.Valid() {
			errs = append(errs, ValidationError{"rsvps", fmt.Sprintf("unknown status %q", status)})
		}
	}

	for i, sub := range e.SubEvents {
		if strings.TrimSpace(sub.Name) == "" {
			errs = append(errs, ValidationError{fmt.Sprintf("sub_events[%d].name", i), "is required"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// IsOrganizer reports whether email owns the event
func (e *Event) IsOrganizer(email string) bool {
	return e.OrganizerEmail == NormalizeEmail(email)
}

// IsInvitee reports whether email is on the invitee list
func (e *Event) IsInvitee(email string) bool {
	email = NormalizeEmail(email)
	for _, inv := range e.Invitees {
		if inv == email {
			return true
		}
	}
	return false
}

// CanView applies visibility: public to anyone signed in, private to organizer and invitees
func (e *Event) CanView(email string) bool {
	return e.IsPublic || e.IsOrganizer(email) || e.IsInvitee(email)
}

// StatusFor returns the caller's relation to the event
func (e *Event) StatusFor(email string) MyStatus {
	switch {
	case e.IsOrganizer(email):
		return MyStatusOrganizer
	case e.IsInvitee(email):
		if s, ok := e.RSVPs[NormalizeEmail(email)]; ok {
			return MyStatus(s)
		}
		return MyStatusPending
	default:
		return MyStatusNotInvited
	}
}

// Clone returns a deep copy
func (e *Event) Clone() *Event {
	c := *e
	c.Invitees = append([]string{}, e.Invitees...)
	c.SubEvents = append([]SubEvent{}, e.SubEvents...)
	c.Media.Gallery = append([]string{}, e.Media.Gallery...)
	c.RSVPs = make(map[string]RSVPStatus, len(e.RSVPs))
	for k, v := range e.RSVPs {
		c.RSVPs[k] = v
	}
	return &c
}

// EventPatch carries a partial update; nil fields are left untouched
type EventPatch struct {
	Name           *string
	Description    *string
	Location       *string
	EventDate      *string
	StartTime      *string
	EndTime        *string
	IsPublic       *bool
	AdditionalInfo *string
	Note           *string
	Instructions   *string
	Invitees       *[]string
	SubEvents      *[]SubEvent
}

// IsEmpty reports whether the patch changes nothing
func (p *EventPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Location == nil && p.EventDate == nil &&
		p.StartTime == nil && p.EndTime == nil && p.IsPublic == nil && p.AdditionalInfo == nil &&
		p.Note == nil && p.Instructions == nil && p.Invitees == nil && p.SubEvents == nil
}

// Normalize lower-cases patched invitees
func (p *EventPatch) Normalize() {
	if p.Invitees != nil {
		inv := NormalizeEmails(*p.Invitees)
		p.Invitees = &inv
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
}

// ApplyTo returns a copy of e with the patch merged. RSVPs of dropped invitees are pruned.
func (p *EventPatch) ApplyTo(e *Event) *Event {
	out := e.Clone()
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&out.Name, p.Name)
	set(&out.Description, p.Description)
	set(&out.Location, p.Location)
	set(&out.EventDate, p.EventDate)
	set(&out.StartTime, p.StartTime)
	set(&out.EndTime, p.EndTime)
	set(&out.AdditionalInfo, p.AdditionalInfo)
	set(&out.Note, p.Note)
	set(&out.Instructions, p.Instructions)
	if p.IsPublic != nil {
		out.IsPublic = *p.IsPublic
	}
	if p.SubEvents != nil {
		out.SubEvents = append([]SubEvent{}, (*p.SubEvents)...)
	}
	if p.Invitees != nil {
		out.Invitees = NormalizeEmails(*p.Invitees)
		for email := range out.RSVPs {
			if !out.IsInvitee(email) {
				delete(out.RSVPs, email)
			}
		}
	}
	return out
}

// EventFilter selects events for List; empty means all
type EventFilter struct {
	Organizer string
	Invitee   string
}

// Matches applies the filter in memory
func (f EventFilter) Matches(e *Event) bool {
	if f.Organizer != "" && !e.IsOrganizer(f.Organizer) {
		return false
	}
	if f.Invitee != "" && !e.IsInvitee(f.Invitee) {
		return false
	}
	return true
}

// NormalizeEmail lower-cases and trims an email
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmails normalizes every entry, never returning nil
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		out = append(out, NormalizeEmail(e))
	}
	return out
}

// ValidateInvitees checks a normalized invitee list on its own: valid emails, no repeats
func ValidateInvitees(invitees []string) error {
	var errs ValidationErrors
	seen := make(map[string]struct{}, len(invitees))
	for _, inv := range invitees {
		if err := validate.Var(inv, "required,email"); err != nil {
			errs = append(errs, ValidationError{"invitees", fmt.Sprintf("%q is not a valid email", inv)})
			continue
		}
		if _, dup := seen[inv]; dup {
			errs = append(errs, ValidationError{"invitees", fmt.Sprintf("%q is listed more than once", inv)})
		}
		seen[inv] = struct{}{}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateEmail checks a single address
func ValidateEmail(field, email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return NewValidationError(field, "must be a valid email")
	}
	return nil
}
