package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/event-invitations/internal/auth"
	"github.com/prohmpiriya/event-invitations/internal/calendar"
	"github.com/prohmpiriya/event-invitations/internal/domain"
	"github.com/prohmpiriya/event-invitations/internal/dto"
	"github.com/prohmpiriya/event-invitations/internal/notifier"
	"github.com/prohmpiriya/event-invitations/internal/repository"
	"github.com/prohmpiriya/event-invitations/pkg/logger"
	"github.com/prohmpiriya/event-invitations/pkg/telemetry"
)

// EventService defines the interface for event business logic
type EventService interface {
	// CreateEvent creates an event owned by the caller
	CreateEvent(ctx context.Context, p *auth.Principal, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	// GetEvent returns an event the caller may see
	GetEvent(ctx context.Context, p *auth.Principal, id string) (*dto.EventResponse, error)
	// ListEvents lists every event visible to the caller
	ListEvents(ctx context.Context, p *auth.Principal) ([]*dto.EventResponse, error)
	// ListByOrganizer lists events organized by email, which must be the caller
	ListByOrganizer(ctx context.Context, p *auth.Principal, email string) ([]*dto.EventResponse, error)
	// ListByInvitee lists events inviting email, which must be the caller
	ListByInvitee(ctx context.Context, p *auth.Principal, email string) ([]*dto.EventResponse, error)
	// UpdateEvent merges a partial update; organizer only
	UpdateEvent(ctx context.Context, p *auth.Principal, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)
	// DeleteEvent removes an event; organizer only
	DeleteEvent(ctx context.Context, p *auth.Principal, id string) error
	// AddInvitee invites email; organizer only
	AddInvitee(ctx context.Context, p *auth.Principal, id, email string) (*dto.EventResponse, error)
	// RemoveInvitee uninvites email and drops its RSVP; organizer only
	RemoveInvitee(ctx context.Context, p *auth.Principal, id, email string) (*dto.EventResponse, error)
	// AddPlan appends a "Description: HH:MM" line; organizer only
	AddPlan(ctx context.Context, p *auth.Principal, id, plan string) (*dto.EventResponse, error)
	// ExportCalendar writes the event as an iCalendar invitation
	ExportCalendar(ctx context.Context, p *auth.Principal, id string, w io.Writer) error
}

// EventServiceConfig holds optional collaborators
type EventServiceConfig struct {
	Location *time.Location
	Metrics  *telemetry.Metrics
	Logger   *logger.Logger
}

func (c *EventServiceConfig) withDefaults() *EventServiceConfig {
	out := EventServiceConfig{}
	if c != nil {
		out = *c
	}
	if out.Location == nil {
		out.Location = time.UTC
	}
	if out.Logger == nil {
		out.Logger = logger.Get()
	}
	return &out
}

// eventService implements EventService
type eventService struct {
	repo      repository.EventRepository
	publisher notifier.Publisher
	loc       *time.Location
	metrics   *telemetry.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// NewEventService creates a new EventService
func NewEventService(repo repository.EventRepository, publisher notifier.Publisher, cfg *EventServiceConfig) EventService {
	cfg = cfg.withDefaults()
	if publisher == nil {
		publisher = notifier.NoopPublisher{}
	}
	return &eventService{
		repo:      repo,
		publisher: publisher,
		loc:       cfg.Location,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		now:       time.Now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, p *auth.Principal, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	actor, err := p.CurrentUser(s.now())
	if err != nil {
		return nil, err
	}
	if req.OrganizerEmail != "" && domain.NormalizeEmail(req.OrganizerEmail) != actor {
		return nil, domain.NewValidationError("organizer_email", "must be the signed-in user")
	}

	event := req.ToDomain(actor)
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EventsCreated.Inc(ctx)
	}
	s.publish(ctx, notifier.KindEventCreated, event, actor, "", "")
	return dto.NewEventResponse(event, actor, s.loc), nil
}

func (s *eventService) GetEvent(ctx context.Context, p *auth.Principal, id string) (*dto.EventResponse, error) {
	actor, event, err := s.loadVisible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return dto.NewEventResponse(event, actor, s.loc), nil
}

func (s *eventService) ListEvents(ctx context.Context, p *auth.Principal) ([]*dto.EventResponse, error) {
	actor, err := p.CurrentUser(s.now())
	if err != nil {
		return nil, err
	}
	events, err := s.repo.List(ctx, domain.EventFilter{})
	if err != nil {
		return nil, err
	}

	visible := events[:0]
	for _, e := range events {
		if e.CanView(actor) {
			visible = append(visible, e)
		}
	}
	return dto.NewEventResponses(visible, actor, s.loc), nil
}

func (s *eventService) ListByOrganizer(ctx context.Context, p *auth.Principal, email string) ([]*dto.EventResponse, error) {
	return s.listOwn(ctx, p, email, func(email string) domain.EventFilter {
		return domain.EventFilter{Organizer: email}
	})
}

func (s *eventService) ListByInvitee(ctx context.Context, p *auth.Principal, email string) ([]*dto.EventResponse, error) {
	return s.listOwn(ctx, p, email, func(email string) domain.EventFilter {
		return domain.EventFilter{Invitee: email}
	})
}

func (s *eventService) listOwn(ctx context.Context, p *auth.Principal, email string, filter func(string) domain.EventFilter) ([]*dto.EventResponse, error) {
	actor, err := p.CurrentUser(s.now())
	if err != nil {
		return nil, err
	}
	if domain.NormalizeEmail(email) != actor {
		return nil, domain.ErrForbidden
	}
	events, err := s.repo.List(ctx, filter(actor))
	if err != nil {
		return nil, err
	}
	return dto.NewEventResponses(events, actor, s.loc), nil
}

func (s *eventService) UpdateEvent(ctx context.Context, p *auth.Principal, id string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	patch := req.ToPatch()
	if patch.IsEmpty() {
		return nil, domain.NewValidationError("body", "at least one field must be provided for update")
	}

	actor, current, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	// validate the merged result so a bad patch never reaches the store
	if err := patch.ApplyTo(current).Validate(); err != nil {
		return nil, err
	}

	event, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notifier.KindEventUpdated, event, actor, "", "")
	return dto.NewEventResponse(event, actor, s.loc), nil
}

func (s *eventService) DeleteEvent(ctx context.Context, p *auth.Principal, id string) error {
	actor, event, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.EventsDeleted.Inc(ctx)
	}
	s.publish(ctx, notifier.KindEventDeleted, event, actor, "", "")
	return nil
}

func (s *eventService) AddInvitee(ctx context.Context, p *auth.Principal, id, email string) (*dto.EventResponse, error) {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail("email", email); err != nil {
		return nil, err
	}
	actor, _, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.AddInvitee(ctx, id, email)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.InviteesAdded.Inc(ctx, telemetry.EventIDAttr(id))
	}
	s.publish(ctx, notifier.KindInviteeAdded, event, actor, email, "")
	return dto.NewEventResponse(event, actor, s.loc), nil
}

func (s *eventService) RemoveInvitee(ctx context.Context, p *auth.Principal, id, email string) (*dto.EventResponse, error) {
	email = domain.NormalizeEmail(email)
	actor, _, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.RemoveInvitee(ctx, id, email)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notifier.KindInviteeRemoved, event, actor, email, "")
	return dto.NewEventResponse(event, actor, s.loc), nil
}

func (s *eventService) AddPlan(ctx context.Context, p *auth.Principal, id, plan string) (*dto.EventResponse, error) {
	line, err := domain.ValidatePlan(plan)
	if err != nil {
		return nil, err
	}
	actor, _, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.AppendPlan(ctx, id, line)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notifier.KindEventUpdated, event, actor, "", "")
	return dto.NewEventResponse(event, actor, s.loc), nil
}

func (s *eventService) ExportCalendar(ctx context.Context, p *auth.Principal, id string, w io.Writer) error {
	actor, event, err := s.loadVisible(ctx, p, id)
	if err != nil {
		return err
	}
	// guests only see themselves on the attendee list
	if !event.IsOrganizer(actor) {
		invited, status := event.IsInvitee(actor), event.RSVPs[actor]
		event.Invitees = []string{}
		event.RSVPs = map[string]domain.RSVPStatus{}
		if invited {
			event.Invitees = append(event.Invitees, actor)
			if status != "" {
				event.RSVPs[actor] = status
			}
		}
	}
	return calendar.NewEncoder(s.loc).Encode(w, event)
}

// loadVisible fetches an event the caller is allowed to read
func (s *eventService) loadVisible(ctx context.Context, p *auth.Principal, id string) (string, *domain.Event, error) {
	actor, err := p.CurrentUser(s.now())
	if err != nil {
		return "", nil, err
	}
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if event == nil {
		return "", nil, domain.ErrEventNotFound
	}
	if !event.CanView(actor) {
		return "", nil, domain.ErrForbidden
	}
	return actor, event, nil
}

// loadOwned fetches an event the caller organizes
func (s *eventService) loadOwned(ctx context.Context, p *auth.Principal, id string) (string, *domain.Event, error) {
	actor, err := p.CurrentUser(s.now())
	if err != nil {
		return "", nil, err
	}
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if event == nil {
		return "", nil, domain.ErrEventNotFound
	}
	if !event.IsOrganizer(actor) {
		return "", nil, domain.ErrForbidden
	}
	return actor, event, nil
}

// publish is best-effort; a failure is logged and never fails the write
func (s *eventService) publish(ctx context.Context, kind notifier.Kind, event *domain.Event, actor, email, status string) {
	publish(ctx, s.publisher, s.log, notifier.Notification{
		Kind:       kind,
		EventID:    event.ID,
		EventName:  event.Name,
		Actor:      actor,
		Email:      email,
		Status:     status,
		OccurredAt: s.now().UTC(),
	})
}

func publish(ctx context.Context, publisher notifier.Publisher, log *logger.Logger, n notifier.Notification) {
	if err := publisher.Publish(ctx, n); err != nil {
		log.WarnContext(ctx, "failed to publish notification",
			zap.String("kind", string(n.Kind)),
			zap.String("event_id", n.EventID),
			zap.Error(err),
		)
	}
}
