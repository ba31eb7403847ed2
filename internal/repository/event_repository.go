package repository

import (
	"context"

	"github.com/prohmpiriya/event-invitations/internal/domain"
)

// EventRepository defines data access for events.
// Lookups return (nil, nil) for a missing event; writes return domain.ErrEventNotFound.
type EventRepository interface {
	// Create assigns a new ID and timestamps, then stores the full field set
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// List returns matching events ordered by creation time
	List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error)
	// Update merges the patch; replacing invitees prunes RSVPs of removed ones in the same write.
	// A merge that breaks the event invariants is rejected with a validation error.
	Update(ctx context.Context, id string, patch *domain.EventPatch) (*domain.Event, error)
	// AddInvitee appends email unless it is the organizer or already invited
	AddInvitee(ctx context.Context, id, email string) (*domain.Event, error)
	// RemoveInvitee drops email and its RSVP
	RemoveInvitee(ctx context.Context, id, email string) (*domain.Event, error)
	// SetRSVPStatus writes email's answer only while it is pending or equal to status
	SetRSVPStatus(ctx context.Context, id, email string, status domain.RSVPStatus) (event *domain.Event, changed bool, err error)
	// AppendPlan appends a line to additional_info
	AppendPlan(ctx context.Context, id, line string) (*domain.Event, error)
	// SetMedia replaces the schedule or map reference, or appends to the gallery
	SetMedia(ctx context.Context, id string, kind domain.MediaKind, path string) (*domain.Event, error)
	// Delete removes the event; media objects are left in place
	Delete(ctx context.Context, id string) error
}

// UserRepository defines data access for built-in credentials
type UserRepository interface {
	// Create stores a new user, returning domain.ErrEmailTaken on a duplicate email
	Create(ctx context.Context, user *domain.User) error
	// GetByEmail returns (nil, nil) when no user has that email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// diagnoseRSVP explains why a guarded RSVP write matched nothing
func diagnoseRSVP(event *domain.Event, email string, status domain.RSVPStatus) (changed bool, err error) {
	if event == nil {
		return false, domain.ErrEventNotFound
	}
	if !event.IsInvitee(email) {
		return false, domain.ErrNotInvited
	}
	return domain.NextRSVP(event.RSVPs[email], status)
}

// diagnoseInvite explains why a guarded AddInvitee write matched nothing
func diagnoseInvite(event *domain.Event, email string) error {
	if event == nil {
		return domain.ErrEventNotFound
	}
	if event.IsOrganizer(email) {
		return domain.NewValidationError("email", "organizer cannot be invited to their own event")
	}
	if event.IsInvitee(email) {
		return domain.ErrAlreadyInvited
	}
	return nil
}
