package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ProducerConfig holds producer settings
type ProducerConfig struct {
	Brokers        []string
	ClientID       string
	Topic          string
	ProduceTimeout time.Duration
}

// Message is a single record to produce
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// Producer writes records to a single default topic
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer creates a franz-go client bound to cfg.Topic
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	if cfg.ProduceTimeout > 0 {
		opts = append(opts, kgo.ProduceRequestTimeout(cfg.ProduceTimeout))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to create client: %w", err)
	}

	return &Producer{client: client, topic: cfg.Topic}, nil
}

// Topic returns the default topic
func (p *Producer) Topic() string {
	return p.topic
}

// Produce writes msg synchronously and returns the broker error, if any
func (p *Producer) Produce(ctx context.Context, msg Message) error {
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(msg.Key),
		Value: msg.Value,
	}
	for k, v := range msg.Headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce to %s failed: %w", p.topic, err)
	}
	return nil
}

// Ping checks broker connectivity
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes and closes the client
func (p *Producer) Close() {
	p.client.Close()
}
