package integrationtest

import (
	"context"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/birdayz/detektor"
	"github.com/birdayz/detektor/dgkafka"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

type temperatureSample struct {
	Celsius int `json:"celsius"`
}

type overheatingState struct {
	Overheating bool `json:"overheating"`
}

type overheatingDetector struct {
	out detektor.Publisher[overheatingState]
}

func newOverheatingDetector(g *detektor.Graph) *overheatingDetector {
	d := &overheatingDetector{}
	n := detektor.NewDetector(g, d)
	detektor.MustSubscribe(n, d.onSample)
	d.out = detektor.MustNewPublisher[overheatingState](n)
	return d
}

func (d *overheatingDetector) onSample(s temperatureSample) {
	d.out.Publish(overheatingState{Overheating: s.Celsius > 100})
}

func TestKafkaBridge(t *testing.T) {
	var brokers = []struct {
		name   string
		broker Broker
	}{
		{
			name:   "redpanda",
			broker: &RedpandaBroker{RedpandaVersion: "latest"},
		},
	}

	for _, broker := range brokers {
		t.Run(broker.name, func(t *testing.T) {
			assert.NoError(t, broker.broker.Init())
			defer broker.broker.Close()

			servers := broker.broker.BootstrapServers()

			kcl, err := kgo.NewClient(kgo.SeedBrokers(servers...))
			assert.NoError(t, err)
			defer kcl.Close()
			acl := kadm.NewClient(kcl)
			_, err = acl.CreateTopics(context.Background(), 1, 1, map[string]*string{}, "temperature")
			assert.NoError(t, err)
			_, err = acl.CreateTopics(context.Background(), 1, 1, map[string]*string{}, "overheating")
			assert.NoError(t, err)

			g := detektor.New()
			newOverheatingDetector(g)

			sink, err := dgkafka.NewSink[overheatingState](
				servers, "overheating", dgkafka.JSONSerializer[overheatingState]())
			assert.NoError(t, err)

			runner := detektor.NewRunner(g, detektor.WithOutputs(sink.HandleOutputs))
			runner.OnClose(sink.Close)

			source, err := dgkafka.NewSource[temperatureSample](
				runner, servers, "temperature", dgkafka.JSONDeserializer[temperatureSample]())
			assert.NoError(t, err)
			runner.OnClose(source.Close)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go func() {
				err := runner.Run(ctx)
				assert.NoError(t, err)
			}()
			go func() {
				err := source.Run(ctx)
				assert.NoError(t, err)
			}()

			pr := kcl.ProduceSync(context.TODO(), &kgo.Record{
				Topic: "temperature", Value: []byte(`{"celsius":130}`)})
			assert.NoError(t, pr.FirstErr())

			consumer, err := kgo.NewClient(
				kgo.SeedBrokers(servers...),
				kgo.ConsumeTopics("overheating"),
			)
			assert.NoError(t, err)
			defer consumer.Close()

			fetchCtx, fetchCancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer fetchCancel()

			deserialize := dgkafka.JSONDeserializer[overheatingState]()
			var got *overheatingState
			for got == nil {
				fetches := consumer.PollFetches(fetchCtx)
				assert.NoError(t, fetchCtx.Err())
				fetches.EachRecord(func(record *kgo.Record) {
					state, err := deserialize(record.Value)
					assert.NoError(t, err)
					got = &state
				})
			}

			assert.True(t, got.Overheating)
		})
	}
}
