// Package producer publishes pipeline notifications to Kafka with
// at-most-once delivery.
package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"dcaf/pkg/platform/audit"
)

// Message is the JSON value written for each notification.
type Message struct {
	Kind       string            `json:"kind"`
	Key        string            `json:"key"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Producer implements the Notifier ports. Records are handed to the client
// without waiting for acknowledgement; delivery failures are logged.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(*config)

type config struct {
	logger *slog.Logger
	extra  []kgo.Opt
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithClientOpts appends raw kgo options, mainly for tests.
func WithClientOpts(opts ...kgo.Opt) Option {
	return func(c *config) { c.extra = append(c.extra, opts...) }
}

func New(brokers []string, topic string, opts ...Option) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka producer requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka producer requires a topic")
	}
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	kopts := append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID("dcaf"),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.LeaderAck()),
		kgo.DisableIdempotentWrite(),
		kgo.RecordRetries(0),
		kgo.ProducerLinger(5 * time.Millisecond),
		kgo.RecordDeliveryTimeout(5 * time.Second),
		kgo.MaxBufferedRecords(10_000),
	}, cfg.extra...)

	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Producer{client: client, topic: topic, logger: cfg.logger}, nil
}

// Notify enqueues n and returns without waiting for the broker. The record
// outlives the caller's cancellation.
func (p *Producer) Notify(ctx context.Context, n audit.Notification) error {
	value, err := json.Marshal(Message{
		Kind:       string(n.Kind),
		Key:        n.Key,
		OccurredAt: n.OccurredAt,
		Attributes: n.Attributes,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	rec := &kgo.Record{
		Topic:   p.topic,
		Key:     []byte(n.Key),
		Value:   value,
		Headers: []kgo.RecordHeader{{Key: "kind", Value: []byte(n.Kind)}},
	}
	p.client.TryProduce(context.WithoutCancel(ctx), rec, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("notification dropped",
				"topic", r.Topic,
				"kind", string(n.Kind),
				"error", err,
			)
		}
	})
	return nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (p *Producer) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, resp.Err)
	}
	return nil
}

// Health pings the cluster.
func (p *Producer) Health(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes buffered records within ctx and closes the client.
func (p *Producer) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}

// NopNotifier discards notifications. It is used when no brokers are configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, audit.Notification) error { return nil }
