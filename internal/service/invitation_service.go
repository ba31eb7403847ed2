package service

import (
	"context"
	"sort"
	"time"

	"github.com/prohmpiriya/event-invitations/internal/auth"
	"github.com/prohmpiriya/event-invitations/internal/domain"
	"github.com/prohmpiriya/event-invitations/internal/dto"
	"github.com/prohmpiriya/event-invitations/internal/notifier"
	"github.com/prohmpiriya/event-invitations/internal/repository"
	"github.com/prohmpiriya/event-invitations/pkg/logger"
	"github.com/prohmpiriya/event-invitations/pkg/telemetry"
)

// InvitationService defines the caller's view of events they organize or are invited to
type InvitationService interface {
	// ListForUser merges organized and invited events, tagged with the caller's status
	ListForUser(ctx context.Context, p *auth.Principal, sortMode string) ([]*dto.EventResponse, error)
	// Respond records the caller's own RSVP
	Respond(ctx context.Context, p *auth.Principal, eventID, status string) (*dto.RSVPResponse, error)
}

type invitationService struct {
	repo      repository.EventRepository
	publisher notifier.Publisher
	loc       *time.Location
	metrics   *telemetry.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// NewInvitationService creates a new InvitationService
func NewInvitationService(repo repository.EventRepository, publisher notifier.Publisher, cfg *EventServiceConfig) InvitationService {
	cfg = cfg.withDefaults()
	if publisher == nil {
		publisher = notifier.NoopPublisher{}
	}
	return &invitationService{
		repo:      repo,
		publisher: publisher,
		loc:       cfg.Location,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		now:       time.Now,
	}
}

func (s *invitationService) ListForUser(ctx context.Context, p *auth.Principal, sortMode string) ([]*dto.EventResponse, error) {
	actor, err := p.CurrentUser(s.now())
	if err != nil {
		return nil, err
	}
	switch sortMode {
	case "":
		sortMode = dto.SortByDate
	case dto.SortByDate, dto.SortByRole:
	default:
		return nil, domain.NewValidationError("sort", "must be date or role")
	}

	organized, err := s.repo.List(ctx, domain.EventFilter{Organizer: actor})
	if err != nil {
		return nil, err
	}
	invited, err := s.repo.List(ctx, domain.EventFilter{Invitee: actor})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(organized)+len(invited))
	merged := make([]*domain.Event, 0, len(organized)+len(invited))
	for _, e := range append(organized, invited...) {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}

	SortInvitations(merged, actor, sortMode, s.loc)
	return dto.NewEventResponses(merged, actor, s.loc), nil
}

// SortInvitations orders events by derived start time, missing times last.
// In role mode events organized by viewer come first. The sort is stable.
func SortInvitations(events []*domain.Event, viewer, mode string, loc *time.Location) {
	type key struct {
		rank  int
		start *time.Time
	}
	keys := make(map[*domain.Event]key, len(events))
	for _, e := range events {
		k := key{start: e.StartAt(loc)}
		if mode == dto.SortByRole && !e.IsOrganizer(viewer) {
			k.rank = 1
		}
		keys[e] = k
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := keys[events[i]], keys[events[j]]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		switch {
		case a.start == nil:
			return false
		case b.start == nil:
			return true
		default:
			return a.start.Before(*b.start)
		}
	})
}

func (s *invitationService) Respond(ctx context.Context, p *auth.Principal, eventID, status string) (*dto.RSVPResponse, error) {
	actor, err := p.CurrentUser(s.now())
	if err != nil {
		return nil, err
	}
	target, err := domain.ParseRSVPResponse(status)
	if err != nil {
		return nil, err
	}

	event, changed, err := s.repo.SetRSVPStatus(ctx, eventID, actor, target)
	if err != nil {
		return nil, err
	}

	if changed {
		if s.metrics != nil {
			s.metrics.RSVPResponses.Inc(ctx, telemetry.RSVPStatusAttr(string(target)))
		}
		publish(ctx, s.publisher, s.log, notifier.Notification{
			Kind:       notifier.KindRSVPResponded,
			EventID:    event.ID,
			EventName:  event.Name,
			Actor:      actor,
			Email:      actor,
			Status:     string(target),
			OccurredAt: s.now().UTC(),
		})
	}

	return &dto.RSVPResponse{
		EventID: event.ID,
		Email:   actor,
		Status:  string(event.RSVPs[actor]),
		Changed: changed,
	}, nil
}
