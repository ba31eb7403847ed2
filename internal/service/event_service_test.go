package service

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/event-invitations/internal/auth"
	"github.com/prohmpiriya/event-invitations/internal/domain"
	"github.com/prohmpiriya/event-invitations/internal/dto"
	"github.com/prohmpiriya/event-invitations/internal/notifier"
)

func TestCreateEvent_Defaults(t *testing.T) {
	f := newFixture()
	resp, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch", OrganizerEmail: "a@x.com"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "a@x.com", resp.OrganizerEmail)
	assert.True(t, resp.IsPublic)
	assert.Equal(t, "", resp.Description)
	require.NotNil(t, resp.Attendance)
	assert.Equal(t, []string{}, resp.Invitees)
	assert.Empty(t, resp.RSVPs)
	assert.Equal(t, []notifier.Kind{notifier.KindEventCreated}, f.publisher.Kinds())

	stored, err := f.repo.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch", stored.Name)
}

func TestCreateEvent_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch", Invitees: []string{"A@x.com"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch", OrganizerEmail: "someone@x.com"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch", Invitees: []string{"b@x.com", "B@x.com"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	all, err := f.repo.List(ctx, domain.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.publisher.Sent())
}

func TestCreateEvent_ExpiredSession(t *testing.T) {
	f := newFixture()
	p := &auth.Principal{Email: "a@x.com", ExpiresAt: time.Now().Add(-time.Minute)}

	_, err := f.events.CreateEvent(ctx, p, &dto.CreateEventRequest{Name: "Launch"})
	assert.ErrorIs(t, err, auth.ErrSessionExpired)
}

func TestGetEvent_Visibility(t *testing.T) {
	f := newFixture()
	private := false
	created, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{
		Name: "Private", IsPublic: &private, Invitees: []string{"b@x.com"},
	})
	require.NoError(t, err)

	guest, err := f.events.GetEvent(ctx, principal("b@x.com"), created.ID)
	require.NoError(t, err)
	assert.Nil(t, guest.Attendance)
	assert.Equal(t, "pending", guest.MyStatus)

	_, err = f.events.GetEvent(ctx, principal("z@x.com"), created.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.events.GetEvent(ctx, principal("a@x.com"), "missing")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestListEvents_FiltersPrivate(t *testing.T) {
	f := newFixture()
	private := false
	_, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Public"})
	require.NoError(t, err)
	_, err = f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Private", IsPublic: &private})
	require.NoError(t, err)

	forStranger, err := f.events.ListEvents(ctx, principal("z@x.com"))
	require.NoError(t, err)
	require.Len(t, forStranger, 1)
	assert.Equal(t, "Public", forStranger[0].Name)

	forOrganizer, err := f.events.ListEvents(ctx, principal("a@x.com"))
	require.NoError(t, err)
	assert.Len(t, forOrganizer, 2)
}

func TestListByOrganizerAndInvitee(t *testing.T) {
	f := newFixture()
	_, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Mine", Invitees: []string{"b@x.com"}})
	require.NoError(t, err)
	_, err = f.events.CreateEvent(ctx, principal("c@x.com"), &dto.CreateEventRequest{Name: "Theirs"})
	require.NoError(t, err)

	mine, err := f.events.ListByOrganizer(ctx, principal("a@x.com"), "A@x.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Mine", mine[0].Name)

	invited, err := f.events.ListByInvitee(ctx, principal("b@x.com"), "b@x.com")
	require.NoError(t, err)
	require.Len(t, invited, 1)
	assert.Equal(t, "Mine", invited[0].Name)

	_, err = f.events.ListByOrganizer(ctx, principal("b@x.com"), "a@x.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateEvent(t *testing.T) {
	f := newFixture()
	created, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{
		Name: "Launch", Description: "old", Invitees: []string{"b@x.com", "c@x.com"},
	})
	require.NoError(t, err)
	_, err = f.invitations.Respond(ctx, principal("b@x.com"), created.ID, "accepted")
	require.NoError(t, err)

	name := "Launch v2"
	invitees := []string{"c@x.com"}
	updated, err := f.events.UpdateEvent(ctx, principal("a@x.com"), created.ID, &dto.UpdateEventRequest{Name: &name, Invitees: &invitees})
	require.NoError(t, err)
	assert.Equal(t, "Launch v2", updated.Name)
	assert.Equal(t, "old", updated.Description)
	assert.Equal(t, []string{"c@x.com"}, updated.Invitees)
	assert.Empty(t, updated.RSVPs)

	bad := []string{"a@x.com"}
	_, err = f.events.UpdateEvent(ctx, principal("a@x.com"), created.ID, &dto.UpdateEventRequest{Invitees: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.events.UpdateEvent(ctx, principal("a@x.com"), created.ID, &dto.UpdateEventRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.events.UpdateEvent(ctx, principal("c@x.com"), created.ID, &dto.UpdateEventRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	stored, err := f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c@x.com"}, stored.Invitees)
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture()
	created, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.events.DeleteEvent(ctx, principal("b@x.com"), created.ID), domain.ErrForbidden)
	require.NoError(t, f.events.DeleteEvent(ctx, principal("a@x.com"), created.ID))
	assert.ErrorIs(t, f.events.DeleteEvent(ctx, principal("a@x.com"), created.ID), domain.ErrEventNotFound)
	assert.Equal(t, []notifier.Kind{notifier.KindEventCreated, notifier.KindEventDeleted}, f.publisher.Kinds())
}

func TestInviteeManagement(t *testing.T) {
	f := newFixture()
	created, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch"})
	require.NoError(t, err)

	resp, err := f.events.AddInvitee(ctx, principal("a@x.com"), created.ID, "B@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x.com"}, resp.Invitees)

	_, err = f.events.AddInvitee(ctx, principal("a@x.com"), created.ID, "b@x.com")
	assert.ErrorIs(t, err, domain.ErrAlreadyInvited)
	_, err = f.events.AddInvitee(ctx, principal("a@x.com"), created.ID, "not-an-email")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.events.AddInvitee(ctx, principal("b@x.com"), created.ID, "c@x.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	resp, err = f.events.RemoveInvitee(ctx, principal("a@x.com"), created.ID, "b@x.com")
	require.NoError(t, err)
	assert.Empty(t, resp.Invitees)

	sent := f.publisher.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, notifier.KindInviteeAdded, sent[1].Kind)
	assert.Equal(t, "b@x.com", sent[1].Email)
	assert.Equal(t, notifier.KindInviteeRemoved, sent[2].Kind)
}

func TestAddPlan(t *testing.T) {
	f := newFixture()
	created, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch"})
	require.NoError(t, err)

	_, err = f.events.AddPlan(ctx, principal("a@x.com"), created.ID, "Doors: 18:00")
	require.NoError(t, err)
	resp, err := f.events.AddPlan(ctx, principal("a@x.com"), created.ID, "Dinner: 19:30")
	require.NoError(t, err)
	assert.Equal(t, "Doors: 18:00\nDinner: 19:30", resp.AdditionalInfo)

	_, err = f.events.AddPlan(ctx, principal("a@x.com"), created.ID, "dinner at seven")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture()
	f.publisher.Err = errors.New("broker down")

	resp, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{Name: "Launch"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
}

func TestExportCalendar_GuestSeesOnlySelf(t *testing.T) {
	f := newFixture()
	created, err := f.events.CreateEvent(ctx, principal("a@x.com"), &dto.CreateEventRequest{
		Name: "Launch", EventDate: "2025-06-01", StartTime: "10:00", Invitees: []string{"b@x.com", "c@x.com"},
	})
	require.NoError(t, err)

	var organizer bytes.Buffer
	require.NoError(t, f.events.ExportCalendar(ctx, principal("a@x.com"), created.ID, &organizer))
	assert.Contains(t, organizer.String(), "mailto:c@x.com")

	var guest bytes.Buffer
	require.NoError(t, f.events.ExportCalendar(ctx, principal("b@x.com"), created.ID, &guest))
	assert.Contains(t, guest.String(), "mailto:b@x.com")
	assert.NotContains(t, guest.String(), "mailto:c@x.com")
	assert.Contains(t, guest.String(), "DTSTART:20250601T100000Z")
}
