package dto

import (
	"time"

	"github.com/prohmpiriya/event-invitations/internal/domain"
)

// SubEventRequest is one programme item in a create or update request
type SubEventRequest struct {
	Name         string `json:"name" binding:"required,max=200"`
	StartTime    string `json:"start_time" binding:"max=32"`
	EndTime      string `json:"end_time" binding:"max=32"`
	Location     string `json:"location" binding:"max=500"`
	Instructions string `json:"instructions" binding:"max=2000"`
	Note         string `json:"note" binding:"max=2000"`
}

func toSubEvents(in []SubEventRequest) []domain.SubEvent {
	out := make([]domain.SubEvent, 0, len(in))
	for _, s := range in {
		out = append(out, domain.SubEvent(s))
	}
	return out
}

// CreateEventRequest represents the request to create a new event
type CreateEventRequest struct {
	Name           string            `json:"name" binding:"required,max=200"`
	OrganizerEmail string            `json:"organizer_email" binding:"omitempty,email"`
	Description    string            `json:"description" binding:"max=5000"`
	Location       string            `json:"location" binding:"max=500"`
	EventDate      string            `json:"event_date" binding:"max=32"`
	StartTime      string            `json:"start_time" binding:"max=32"`
	EndTime        string            `json:"end_time" binding:"max=32"`
	IsPublic       *bool             `json:"is_public"`
	AdditionalInfo string            `json:"additional_info" binding:"max=5000"`
	Note           string            `json:"note" binding:"max=2000"`
	Instructions   string            `json:"instructions" binding:"max=2000"`
	Invitees       []string          `json:"invitees" binding:"omitempty,dive,max=320"`
	SubEvents      []SubEventRequest `json:"sub_events" binding:"omitempty,dive"`
}

// ToDomain builds the event owned by organizer; is_public defaults to true
func (r *CreateEventRequest) ToDomain(organizer string) *domain.Event {
	isPublic := true
	if r.IsPublic != nil {
		isPublic = *r.IsPublic
	}
	e := &domain.Event{
		Name:           r.Name,
		OrganizerEmail: organizer,
		Description:    r.Description,
		Location:       r.Location,
		EventDate:      r.EventDate,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		IsPublic:       isPublic,
		AdditionalInfo: r.AdditionalInfo,
		Note:           r.Note,
		Instructions:   r.Instructions,
		Invitees:       r.Invitees,
		SubEvents:      toSubEvents(r.SubEvents),
	}
	e.Normalize()
	return e
}

// UpdateEventRequest represents a partial update; omitted fields are left untouched
type UpdateEventRequest struct {
	Name           *string            `json:"name" binding:"omitempty,max=200"`
	Description    *string            `json:"description" binding:"omitempty,max=5000"`
	Location       *string            `json:"location" binding:"omitempty,max=500"`
	EventDate      *string            `json:"event_date" binding:"omitempty,max=32"`
	StartTime      *string            `json:"start_time" binding:"omitempty,max=32"`
	EndTime        *string            `json:"end_time" binding:"omitempty,max=32"`
	IsPublic       *bool              `json:"is_public"`
	AdditionalInfo *string            `json:"additional_info" binding:"omitempty,max=5000"`
	Note           *string            `json:"note" binding:"omitempty,max=2000"`
	Instructions   *string            `json:"instructions" binding:"omitempty,max=2000"`
	Invitees       *[]string          `json:"invitees"`
	SubEvents      *[]SubEventRequest `json:"sub_events"`
}

// ToPatch converts the request to a normalized domain patch
func (r *UpdateEventRequest) ToPatch() *domain.EventPatch {
	p := &domain.EventPatch{
		Name:           r.Name,
		Description:    r.Description,
		Location:       r.Location,
		EventDate:      r.EventDate,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		IsPublic:       r.IsPublic,
		AdditionalInfo: r.AdditionalInfo,
		Note:           r.Note,
		Instructions:   r.Instructions,
		Invitees:       r.Invitees,
	}
	if r.SubEvents != nil {
		subs := toSubEvents(*r.SubEvents)
		p.SubEvents = &subs
	}
	p.Normalize()
	return p
}

// AddInviteeRequest invites one email
type AddInviteeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AddPlanRequest appends a "Description: HH:MM" line to additional_info
type AddPlanRequest struct {
	Plan string `json:"plan" binding:"required,max=500"`
}

// SubEventResponse is a programme item
type SubEventResponse struct {
	Name         string `json:"name"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Location     string `json:"location"`
	Instructions string `json:"instructions"`
	Note         string `json:"note"`
}

// MediaResponse lists stored media paths
type MediaResponse struct {
	Schedule string   `json:"schedule,omitempty"`
	Map      string   `json:"map,omitempty"`
	Gallery  []string `json:"gallery"`
}

// Attendance is only shown to the organizer
type Attendance struct {
	Invitees []string          `json:"invitees"`
	RSVPs    map[string]string `json:"rsvps"`
}

// EventResponse represents an event as seen by one viewer
type EventResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	OrganizerEmail string             `json:"organizer_email"`
	Description    string             `json:"description"`
	Location       string             `json:"location"`
	EventDate      string             `json:"event_date"`
	StartTime      string             `json:"start_time"`
	EndTime        string             `json:"end_time"`
	StartAt        *time.Time         `json:"start_at"`
	EndAt          *time.Time         `json:"end_at"`
	StartDisplay   string             `json:"start_display"`
	EndDisplay     string             `json:"end_display"`
	IsPublic       bool               `json:"is_public"`
	AdditionalInfo string             `json:"additional_info"`
	Note           string             `json:"note"`
	Instructions   string             `json:"instructions"`
	SubEvents      []SubEventResponse `json:"sub_events"`
	Media          MediaResponse      `json:"media"`
	IsOrganizer    bool               `json:"is_organizer"`
	MyStatus       string             `json:"my_status"`
	CreatedAt      string             `json:"created_at"`
	UpdatedAt      string             `json:"updated_at"`

	*Attendance
}

// NewEventResponse renders e for viewer. Non-organizers get the guest view without attendance.
func NewEventResponse(e *domain.Event, viewer string, loc *time.Location) *EventResponse {
	start, end := e.StartAt(loc), e.EndAt(loc)
	resp := &EventResponse{
		ID:             e.ID,
		Name:           e.Name,
		OrganizerEmail: e.OrganizerEmail,
		Description:    e.Description,
		Location:       e.Location,
		EventDate:      e.EventDate,
		StartTime:      e.StartTime,
		EndTime:        e.EndTime,
		StartAt:        start,
		EndAt:          end,
		StartDisplay:   domain.FormatDisplay(start),
		EndDisplay:     domain.FormatDisplay(end),
		IsPublic:       e.IsPublic,
		AdditionalInfo: e.AdditionalInfo,
		Note:           e.Note,
		Instructions:   e.Instructions,
		SubEvents:      make([]SubEventResponse, 0, len(e.SubEvents)),
		Media: MediaResponse{
			Schedule: e.Media.Schedule,
			Map:      e.Media.Map,
			Gallery:  append([]string{}, e.Media.Gallery...),
		},
		IsOrganizer: e.IsOrganizer(viewer),
		MyStatus:    string(e.StatusFor(viewer)),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
	for _, s := range e.SubEvents {
		resp.SubEvents = append(resp.SubEvents, SubEventResponse(s))
	}

	if resp.IsOrganizer {
		att := &Attendance{
			Invitees: append([]string{}, e.Invitees...),
			RSVPs:    make(map[string]string, len(e.RSVPs)),
		}
		for email, status := range e.RSVPs {
			att.RSVPs[email] = string(status)
		}
		resp.Attendance = att
	}
	return resp
}

// NewEventResponses renders a list for viewer
func NewEventResponses(events []*domain.Event, viewer string, loc *time.Location) []*EventResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, NewEventResponse(e, viewer, loc))
	}
	return out
}
