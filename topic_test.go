package detektor

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestTopic_Values(t *testing.T) {
	t.Run("no new value before evaluation", func(t *testing.T) {
		g := New()
		topic := MustResolveTopic[temperatureSample](g)

		assert.False(t, topic.HasNewValue())
		_, ok := topic.Value()
		assert.False(t, ok)
	})

	t.Run("latest value wins within one evaluation", func(t *testing.T) {
		g := New()

		// One detector publishing twice in a single pass: the topic
		// accumulates both, GetNewValue returns the latest.
		d := &struct{ out Publisher[thresholdSetting] }{}
		n := NewDetector(g, d)
		var err error
		d.out, err = NewPublisher[thresholdSetting](n)
		assert.NoError(t, err)
		assert.NoError(t, Subscribe(n, func(temperatureSample) {
			d.out.Publish(thresholdSetting{Limit: 1})
			d.out.Publish(thresholdSetting{Limit: 2})
		}))

		topic := MustResolveTopic[thresholdSetting](g)

		assert.NoError(t, PushData(g, temperatureSample{}))
		assert.NoError(t, g.Evaluate())

		assert.True(t, topic.HasNewValue())
		assert.Equal(t, thresholdSetting{Limit: 2}, topic.GetNewValue())
		assert.Equal(t, []thresholdSetting{{Limit: 1}, {Limit: 2}}, topic.CurrentValues())
		// The output list carries the pushed sample plus both published
		// settings.
		assert.Equal(t, 3, len(g.OutputList()))
	})

	t.Run("GetNewValue panics without data", func(t *testing.T) {
		g := New()
		topic := MustResolveTopic[temperatureSample](g)
		assert.Panics(t, func() {
			topic.GetNewValue()
		})
	})

	t.Run("new-data flag cleared by following evaluation", func(t *testing.T) {
		g := New()
		topic := MustResolveTopic[temperatureSample](g)

		assert.NoError(t, PushData(g, temperatureSample{Celsius: 3}))
		assert.NoError(t, g.Evaluate())
		assert.True(t, topic.HasNewValue())
		assert.Equal(t, temperatureSample{Celsius: 3}, topic.GetNewValue())

		assert.NoError(t, g.Evaluate())
		assert.False(t, topic.HasNewValue())
	})
}

func TestRegistry_OneTopicPerKind(t *testing.T) {
	g := New()
	t1 := MustResolveTopic[temperatureSample](g)
	t2 := MustResolveTopic[temperatureSample](g)
	assert.True(t, t1 == t2)
	assert.Equal(t, 1, g.VerticesSize())
}

func TestRegistry_StaticTopics(t *testing.T) {
	t.Run("unregistered kind fails", func(t *testing.T) {
		g := New(WithStaticTopics())
		_, err := ResolveTopic[temperatureSample](g)
		assert.True(t, errors.Is(err, ErrUnresolvedTopic))

		err = PushData(g, temperatureSample{})
		assert.True(t, errors.Is(err, ErrUnresolvedTopic))
	})

	t.Run("registered kinds resolve", func(t *testing.T) {
		g := New(WithStaticTopics())
		assert.NoError(t, RegisterTopic[temperatureSample](g))

		topic, err := ResolveTopic[temperatureSample](g)
		assert.NoError(t, err)
		assert.NotZero(t, topic)
	})

	t.Run("double registration fails", func(t *testing.T) {
		g := New(WithStaticTopics())
		assert.NoError(t, RegisterTopic[temperatureSample](g))
		assert.True(t, errors.Is(RegisterTopic[temperatureSample](g), ErrAlreadyRegistered))
	})
}

func TestInputQueue_Capacity(t *testing.T) {
	g := New(WithInputQueueCapacity(2))

	assert.NoError(t, PushData(g, temperatureSample{Celsius: 1}))
	assert.NoError(t, PushData(g, temperatureSample{Celsius: 2}))
	assert.True(t, errors.Is(PushData(g, temperatureSample{Celsius: 3}), ErrQueueFull))

	// Draining frees capacity again.
	assert.NoError(t, g.Evaluate())
	assert.NoError(t, PushData(g, temperatureSample{Celsius: 3}))
}
