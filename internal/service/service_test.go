package service

import (
	"context"
	"time"

	"github.com/prohmpiriya/event-invitations/internal/auth"
	"github.com/prohmpiriya/event-invitations/internal/notifier"
	"github.com/prohmpiriya/event-invitations/internal/repository"
	"github.com/prohmpiriya/event-invitations/pkg/logger"
)

var ctx = context.Background()

func principal(email string) *auth.Principal {
	return &auth.Principal{UserID: "u-" + email, Email: email, TokenID: "t-" + email, ExpiresAt: time.Now().Add(time.Hour)}
}

type fixture struct {
	repo        *repository.MemoryEventRepository
	publisher   *notifier.RecordingPublisher
	events      EventService
	invitations InvitationService
}

func newFixture() *fixture {
	repo := repository.NewMemoryEventRepository()
	pub := &notifier.RecordingPublisher{}
	cfg := &EventServiceConfig{Location: time.UTC, Logger: logger.NewNop()}
	return &fixture{
		repo:        repo,
		publisher:   pub,
		events:      NewEventService(repo, pub, cfg),
		invitations: NewInvitationService(repo, pub, cfg),
	}
}
