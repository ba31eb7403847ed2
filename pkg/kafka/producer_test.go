package kafka

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(&ProducerConfig{Topic: "t"})
	assert.Error(t, err)

	_, err = NewProducer(&ProducerConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}

func TestNewProducer_DoesNotDial(t *testing.T) {
	p, err := NewProducer(&ProducerConfig{
		Brokers:  []string{"localhost:9092"},
		ClientID: "test",
		Topic:    "event-invitations",
	})
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, "event-invitations", p.Topic())
}

func TestProducer_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	brokers := os.Getenv("TEST_KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:9092"
	}

	p, err := NewProducer(&ProducerConfig{Brokers: []string{brokers}, Topic: "event-invitations-test", ProduceTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, p.Ping(ctx))
	assert.NoError(t, p.Produce(ctx, Message{Key: "evt-1", Value: []byte(`{"kind":"event.created"}`), Headers: map[string]string{"kind": "event.created"}}))
}
