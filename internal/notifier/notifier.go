package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/event-invitations/pkg/kafka"
)

// Kind identifies what happened to an event
type Kind string

const (
	KindEventCreated   Kind = "event.created"
	KindEventUpdated   Kind = "event.updated"
	KindEventDeleted   Kind = "event.deleted"
	KindInviteeAdded   Kind = "invitee.added"
	KindInviteeRemoved Kind = "invitee.removed"
	KindRSVPResponded  Kind = "rsvp.responded"
)

// Notification is the message downstream mailers consume
type Notification struct {
	Kind       Kind      `json:"kind"`
	EventID    string    `json:"event_id"`
	EventName  string    `json:"event_name,omitempty"`
	Actor      string    `json:"actor"`
	Email      string    `json:"email,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers notifications
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// NoopPublisher drops every notification
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Notification) error { return nil }

// RecordingPublisher keeps notifications in memory
type RecordingPublisher struct {
	mu   sync.Mutex
	sent []Notification
	Err  error
}

func (p *RecordingPublisher) Publish(_ context.Context, n Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.sent = append(p.sent, n)
	return nil
}

// Sent returns a copy of everything published so far
func (p *RecordingPublisher) Sent() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Notification(nil), p.sent...)
}

// Kinds lists the kinds published so far, in order
func (p *RecordingPublisher) Kinds() []Kind {
	sent := p.Sent()
	kinds := make([]Kind, 0, len(sent))
	for _, n := range sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// Producer is the slice of kafka.Producer the publisher needs
type Producer interface {
	Produce(ctx context.Context, msg kafka.Message) error
}

// KafkaPublisher writes notifications as JSON records keyed by event id
type KafkaPublisher struct {
	producer Producer
}

func NewKafkaPublisher(producer Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, n Notification) error {
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return p.producer.Produce(ctx, kafka.Message{
		Key:   n.EventID,
		Value: value,
		Headers: map[string]string{
			"kind": string(n.Kind),
		},
	})
}
