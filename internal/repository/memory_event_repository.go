package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/event-invitations/internal/domain"
)

// MemoryEventRepository is an in-memory EventRepository for tests and local runs
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.Event
	now    func() time.Time
}

// NewMemoryEventRepository creates an empty in-memory repository
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{
		events: make(map[string]*domain.Event),
		now:    time.Now,
	}
}

func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = uuid.New().String()
	event.CreatedAt = r.now().UTC()
	event.UpdatedAt = event.CreatedAt
	event.Normalize()
	r.events[event.ID] = event.Clone()
	return nil
}

func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

func (r *MemoryEventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Event, 0, len(r.events))
	for _, e := range r.events {
		if filter.Matches(e) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// mutate runs fn against the stored event under the write lock
func (r *MemoryEventRepository) mutate(ctx context.Context, id string, fn func(e *domain.Event) error) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	if err := fn(e); err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

func (r *MemoryEventRepository) Update(ctx context.Context, id string, patch *domain.EventPatch) (*domain.Event, error) {
	return r.mutate(ctx, id, func(e *domain.Event) error {
		merged := patch.ApplyTo(e)
		if err := merged.Validate(); err != nil {
			return err
		}
		merged.UpdatedAt = r.now().UTC()
		*e = *merged
		return nil
	})
}

func (r *MemoryEventRepository) AddInvitee(ctx context.Context, id, email string) (*domain.Event, error) {
	email = domain.NormalizeEmail(email)
	return r.mutate(ctx, id, func(e *domain.Event) error {
		if err := diagnoseInvite(e, email); err != nil {
			return err
		}
		e.Invitees = append(e.Invitees, email)
		e.UpdatedAt = r.now().UTC()
		return nil
	})
}

func (r *MemoryEventRepository) RemoveInvitee(ctx context.Context, id, email string) (*domain.Event, error) {
	email = domain.NormalizeEmail(email)
	return r.mutate(ctx, id, func(e *domain.Event) error {
		if !e.IsInvitee(email) {
			return domain.ErrNotInvited
		}
		kept := e.Invitees[:0:0]
		for _, inv := range e.Invitees {
			if inv != email {
				kept = append(kept, inv)
			}
		}
		e.Invitees = kept
		delete(e.RSVPs, email)
		e.UpdatedAt = r.now().UTC()
		return nil
	})
}

func (r *MemoryEventRepository) SetRSVPStatus(ctx context.Context, id, email string, status domain.RSVPStatus) (*domain.Event, bool, error) {
	email = domain.NormalizeEmail(email)
	var changed bool
	event, err := r.mutate(ctx, id, func(e *domain.Event) error {
		var err error
		changed, err = diagnoseRSVP(e, email, status)
		if err != nil || !changed {
			return err
		}
		e.RSVPs[email] = status
		e.UpdatedAt = r.now().UTC()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return event, changed, nil
}

func (r *MemoryEventRepository) AppendPlan(ctx context.Context, id, line string) (*domain.Event, error) {
	return r.mutate(ctx, id, func(e *domain.Event) error {
		e.AdditionalInfo = domain.AppendPlanLine(e.AdditionalInfo, line)
		e.UpdatedAt = r.now().UTC()
		return nil
	})
}

func (r *MemoryEventRepository) SetMedia(ctx context.Context, id string, kind domain.MediaKind, path string) (*domain.Event, error) {
	return r.mutate(ctx, id, func(e *domain.Event) error {
		switch kind {
		case domain.MediaSchedule:
			e.Media.Schedule = path
		case domain.MediaMap:
			e.Media.Map = path
		default:
			e.Media.Gallery = append(e.Media.Gallery, path)
		}
		e.UpdatedAt = r.now().UTC()
		return nil
	})
}

func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

// MemoryUserRepository is an in-memory UserRepository
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byEmail: make(map[string]*domain.User)}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = domain.NormalizeEmail(user.Email)
	if _, exists := r.byEmail[user.Email]; exists {
		return domain.ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	copied := *user
	r.byEmail[user.Email] = &copied
	return nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}
