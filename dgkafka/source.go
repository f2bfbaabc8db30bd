package dgkafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/birdayz/detektor"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Source consumes one Kafka topic and pushes each record's value,
// deserialized into a TopicState of kind T, through a Runner into the
// graph. The graph itself never performs I/O; the source lives entirely
// at its boundary.
type Source[T any] struct {
	client       *kgo.Client
	topic        string
	deserializer Deserializer[T]
	runner       *detektor.Runner
	log          *slog.Logger
}

// SourceOption configures a Source.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	log        *slog.Logger
	group      string
	clientOpts []kgo.Opt
}

// WithSourceLogger sets the source's logger.
func WithSourceLogger(log *slog.Logger) SourceOption {
	return func(c *sourceConfig) {
		c.log = log
	}
}

// WithConsumerGroup makes the source consume as part of a group.
func WithConsumerGroup(group string) SourceOption {
	return func(c *sourceConfig) {
		c.group = group
	}
}

// WithClientOpts appends raw franz-go client options.
func WithClientOpts(opts ...kgo.Opt) SourceOption {
	return func(c *sourceConfig) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// NewSource creates a source feeding runner's graph from topic.
func NewSource[T any](runner *detektor.Runner, brokers []string, topic string, deserializer Deserializer[T], opts ...SourceOption) (*Source[T], error) {
	cfg := sourceConfig{log: detektor.NullLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientOpts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
	}
	if cfg.group != "" {
		clientOpts = append(clientOpts, kgo.ConsumerGroup(cfg.group))
	}
	clientOpts = append(clientOpts, cfg.clientOpts...)

	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("dgkafka: create client: %w", err)
	}

	return &Source[T]{
		client:       client,
		topic:        topic,
		deserializer: deserializer,
		runner:       runner,
		log:          cfg.log,
	}, nil
}

// Run polls records and pushes them into the graph until the context is
// canceled or the client closes.
func (s *Source[T]) Run(ctx context.Context) error {
	for {
		fetches := s.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				s.log.Error("fetch error", "topic", fe.Topic, "partition", fe.Partition, "err", fe.Err)
			}
			return fmt.Errorf("dgkafka: fetch %s: %w", errs[0].Topic, errs[0].Err)
		}

		var pushErr error
		fetches.EachRecord(func(record *kgo.Record) {
			if pushErr != nil {
				return
			}
			value, err := s.deserializer(record.Value)
			if err != nil {
				s.log.Error("deserialize failed", "topic", s.topic, "err", err)
				pushErr = fmt.Errorf("dgkafka: deserialize from %s: %w", s.topic, err)
				return
			}
			if err := detektor.Send(s.runner, value); err != nil {
				pushErr = err
			}
		})
		if pushErr != nil {
			return pushErr
		}
	}
}

// Close closes the underlying Kafka client.
func (s *Source[T]) Close() error {
	s.client.Close()
	return nil
}
