package dgkafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/birdayz/detektor"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Sink watches evaluation outputs for TopicStates of kind T and produces
// them, serialized, to one Kafka topic. Attach HandleOutputs via
// detektor.WithOutputs (directly or fanned out with Outputs).
type Sink[T any] struct {
	client     *kgo.Client
	topic      string
	serializer Serializer[T]
	log        *slog.Logger

	futuresWg sync.WaitGroup

	mu      sync.Mutex
	futures []produceResult
}

type produceResult struct {
	record *kgo.Record
	err    error
}

// SinkOption configures a Sink.
type SinkOption func(*sinkConfig)

type sinkConfig struct {
	log        *slog.Logger
	clientOpts []kgo.Opt
}

// WithSinkLogger sets the sink's logger.
func WithSinkLogger(log *slog.Logger) SinkOption {
	return func(c *sinkConfig) {
		c.log = log
	}
}

// WithSinkClientOpts appends raw franz-go client options.
func WithSinkClientOpts(opts ...kgo.Opt) SinkOption {
	return func(c *sinkConfig) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// NewSink creates a sink producing kind T to topic.
func NewSink[T any](brokers []string, topic string, serializer Serializer[T], opts ...SinkOption) (*Sink[T], error) {
	cfg := sinkConfig{log: detektor.NullLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientOpts := append([]kgo.Opt{kgo.SeedBrokers(brokers...)}, cfg.clientOpts...)
	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("dgkafka: create client: %w", err)
	}

	return &Sink[T]{
		client:     client,
		topic:      topic,
		serializer: serializer,
		log:        cfg.log,
	}, nil
}

// HandleOutputs produces every output of kind T. A state that fails to
// serialize is logged and skipped; it does not stop the runner. Produce
// failures are reported by Flush.
func (s *Sink[T]) HandleOutputs(outputs []detektor.TopicState) {
	for _, ts := range outputs {
		value, ok := ts.(T)
		if !ok {
			continue
		}
		payload, err := s.serializer(value)
		if err != nil {
			s.log.Error("serialize failed", "topic", s.topic, "err", err)
			continue
		}

		s.futuresWg.Add(1)
		// Background context: the produce must outlive the evaluation
		// that triggered it.
		s.client.Produce(context.Background(), &kgo.Record{
			Value: payload,
			Topic: s.topic,
		}, func(r *kgo.Record, err error) {
			s.mu.Lock()
			s.futures = append(s.futures, produceResult{record: r, err: err})
			s.mu.Unlock()
			s.futuresWg.Done()
		})
	}
}

// Flush waits for all pending produces and reports the first failure.
func (s *Sink[T]) Flush(ctx context.Context) error {
	s.futuresWg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, result := range s.futures {
		if result.err != nil {
			return fmt.Errorf("dgkafka: produce to %s failed: %w", s.topic, result.err)
		}
	}
	s.futures = s.futures[:0]
	return nil
}

// Close flushes and closes the underlying Kafka client.
func (s *Sink[T]) Close() error {
	err := s.Flush(context.Background())
	s.client.Close()
	return err
}

// Outputs fans one evaluation's output list out to several handlers,
// composing sinks of different kinds behind one detektor.WithOutputs.
func Outputs(handlers ...func([]detektor.TopicState)) func([]detektor.TopicState) {
	return func(outputs []detektor.TopicState) {
		for _, h := range handlers {
			h(outputs)
		}
	}
}
