package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/event-invitations/internal/domain"
)

func sample() *domain.Event {
	e := &domain.Event{
		ID:             "evt-1",
		Name:           "Launch",
		OrganizerEmail: "a@x.com",
		EventDate:      "2025-06-01",
		StartTime:      "10:00",
		IsPublic:       true,
		Invitees:       []string{"b@x.com"},
		RSVPs:          map[string]domain.RSVPStatus{"b@x.com": domain.RSVPAccepted},
	}
	e.Normalize()
	return e
}

func TestNewEventResponse_OrganizerView(t *testing.T) {
	resp := NewEventResponse(sample(), "A@x.com", time.UTC)

	assert.True(t, resp.IsOrganizer)
	assert.Equal(t, "organizer", resp.MyStatus)
	require.NotNil(t, resp.Attendance)
	assert.Equal(t, []string{"b@x.com"}, resp.Invitees)
	assert.Equal(t, "accepted", resp.RSVPs["b@x.com"])
	assert.Equal(t, "2025-06-01 10:00", resp.StartDisplay)
	assert.Equal(t, "N/A", resp.EndDisplay)
	assert.Nil(t, resp.EndAt)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"invitees":["b@x.com"]`)
}

func TestNewEventResponse_GuestView(t *testing.T) {
	resp := NewEventResponse(sample(), "b@x.com", time.UTC)

	assert.False(t, resp.IsOrganizer)
	assert.Equal(t, "accepted", resp.MyStatus)
	assert.Nil(t, resp.Attendance)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "invitees")
	assert.NotContains(t, string(raw), "rsvps")
}

func TestNewEventResponse_MalformedDate(t *testing.T) {
	e := sample()
	e.EventDate = "not-a-date"
	resp := NewEventResponse(e, "a@x.com", time.UTC)

	assert.Nil(t, resp.StartAt)
	assert.Equal(t, "N/A", resp.StartDisplay)
}

func TestCreateEventRequest_ToDomain(t *testing.T) {
	req := &CreateEventRequest{Name: " Launch ", Invitees: []string{"B@X.com"}}
	e := req.ToDomain("a@x.com")

	assert.Equal(t, "Launch", e.Name)
	assert.True(t, e.IsPublic)
	assert.Equal(t, []string{"b@x.com"}, e.Invitees)

	private := false
	req.IsPublic = &private
	assert.False(t, req.ToDomain("a@x.com").IsPublic)
}

func TestUpdateEventRequest_ToPatch(t *testing.T) {
	invitees := []string{"C@x.com"}
	subs := []SubEventRequest{{Name: "Dinner", StartTime: "19:00"}}
	patch := (&UpdateEventRequest{Invitees: &invitees, SubEvents: &subs}).ToPatch()

	require.NotNil(t, patch.Invitees)
	assert.Equal(t, []string{"c@x.com"}, *patch.Invitees)
	require.NotNil(t, patch.SubEvents)
	assert.Equal(t, "Dinner", (*patch.SubEvents)[0].Name)
	assert.Nil(t, patch.Name)
	assert.True(t, (&UpdateEventRequest{}).ToPatch().IsEmpty())
}

func TestListInvitationsQuery_SetDefaults(t *testing.T) {
	q := &ListInvitationsQuery{}
	q.SetDefaults()
	assert.Equal(t, SortByDate, q.Sort)
}
