package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/prohmpiriya/event-invitations/internal/domain"
)

const productID = "-//event-invitations//calendar export//EN"

// ContentType is the media type of Encode's output
const ContentType = "text/calendar; charset=utf-8"

// Encoder renders events as iCalendar invitations
type Encoder struct {
	loc *time.Location
	now func() time.Time
}

// NewEncoder derives start and end times in loc
func NewEncoder(loc *time.Location) *Encoder {
	if loc == nil {
		loc = time.UTC
	}
	return &Encoder{loc: loc, now: time.Now}
}

// Encode writes a VCALENDAR holding a single VEVENT for event
func (e *Encoder) Encode(w io.Writer, event *domain.Event) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropMethod, "REQUEST")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.ID)
	stamp := event.UpdatedAt
	if stamp.IsZero() {
		stamp = e.now()
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	vevent.Props.SetText(ical.PropSummary, event.Name)

	if start := event.StartAt(e.loc); start != nil {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, *start)
	}
	if end := event.EndAt(e.loc); end != nil {
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, *end)
	}
	if event.Location != "" {
		vevent.Props.SetText(ical.PropLocation, event.Location)
	}
	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.IsPublic {
		vevent.Props.SetText(ical.PropClass, "PUBLIC")
	} else {
		vevent.Props.SetText(ical.PropClass, "PRIVATE")
	}

	organizer := ical.NewProp(ical.PropOrganizer)
	organizer.Value = "mailto:" + event.OrganizerEmail
	vevent.Props.Set(organizer)

	for _, email := range event.Invitees {
		attendee := ical.NewProp(ical.PropAttendee)
		attendee.Value = "mailto:" + email
		attendee.Params.Set(ical.ParamParticipationStatus, partStat(event.RSVPs[email]))
		attendee.Params.Set(ical.ParamRole, "REQ-PARTICIPANT")
		vevent.Props.Add(attendee)
	}

	cal.Children = append(cal.Children, vevent.Component)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func partStat(status domain.RSVPStatus) string {
	switch status {
	case domain.RSVPAccepted:
		return "ACCEPTED"
	case domain.RSVPDeclined:
		return "DECLINED"
	default:
		return "NEEDS-ACTION"
	}
}
