package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/event-invitations/pkg/kafka"
)

type stubProducer struct {
	msgs []kafka.Message
	err  error
}

func (s *stubProducer) Produce(_ context.Context, msg kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := &stubProducer{}
	pub := NewKafkaPublisher(producer)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Publish(context.Background(), Notification{
		Kind:       KindRSVPResponded,
		EventID:    "evt-1",
		Actor:      "b@x.com",
		Email:      "b@x.com",
		Status:     "accepted",
		OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, producer.msgs, 1)

	msg := producer.msgs[0]
	assert.Equal(t, "evt-1", msg.Key)
	assert.Equal(t, "rsvp.responded", msg.Headers["kind"])

	var decoded Notification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, KindRSVPResponded, decoded.Kind)
	assert.Equal(t, "accepted", decoded.Status)
	assert.True(t, at.Equal(decoded.OccurredAt))
}

func TestKafkaPublisher_FillsTimestamp(t *testing.T) {
	producer := &stubProducer{}
	require.NoError(t, NewKafkaPublisher(producer).Publish(context.Background(), Notification{Kind: KindEventCreated, EventID: "e"}))

	var decoded Notification
	require.NoError(t, json.Unmarshal(producer.msgs[0].Value, &decoded))
	assert.False(t, decoded.OccurredAt.IsZero())
}

func TestKafkaPublisher_ProduceError(t *testing.T) {
	producer := &stubProducer{err: errors.New("broker down")}
	err := NewKafkaPublisher(producer).Publish(context.Background(), Notification{Kind: KindEventDeleted, EventID: "e"})
	assert.EqualError(t, err, "broker down")
}

func TestRecordingPublisher(t *testing.T) {
	pub := &RecordingPublisher{}
	ctx := context.Background()
	require.NoError(t, pub.Publish(ctx, Notification{Kind: KindEventCreated}))
	require.NoError(t, pub.Publish(ctx, Notification{Kind: KindInviteeAdded}))
	assert.Equal(t, []Kind{KindEventCreated, KindInviteeAdded}, pub.Kinds())

	pub.Err = errors.New("fail")
	assert.Error(t, pub.Publish(ctx, Notification{}))
	assert.Len(t, pub.Sent(), 2)
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), Notification{}))
}
