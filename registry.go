package detektor

import (
	"fmt"
	"reflect"
)

// topicRegistry maps topic kind identity to the single topic instance for
// that kind within one graph. Lookups are keyed on the reflect.Type of
// the TopicState.
type topicRegistry struct {
	topics map[reflect.Type]anyTopic
}

func newTopicRegistry() topicRegistry {
	return topicRegistry{topics: make(map[reflect.Type]anyTopic)}
}

func (r *topicRegistry) resolve(key reflect.Type) (anyTopic, bool) {
	t, ok := r.topics[key]
	return t, ok
}

func (r *topicRegistry) register(key reflect.Type, t anyTopic) error {
	if _, exists := r.topics[key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, typeName(key))
	}
	r.topics[key] = t
	return nil
}

// ResolveTopic returns the graph's topic for kind T. On a dynamic graph
// the topic is created and added to the vertex set on first resolve; on a
// graph built with WithStaticTopics an unregistered kind yields
// ErrUnresolvedTopic.
func ResolveTopic[T any](g *Graph) (*Topic[T], error) {
	key := typeOf[T]()
	if t, ok := g.registry.resolve(key); ok {
		return t.(*Topic[T]), nil
	}
	if g.staticTopics {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedTopic, typeName(key))
	}
	t := newTopic[T]()
	if err := g.registry.register(key, t); err != nil {
		return nil, err
	}
	g.addVertex(t)
	return t, nil
}

// MustResolveTopic is ResolveTopic, panicking on error.
func MustResolveTopic[T any](g *Graph) *Topic[T] {
	t, err := ResolveTopic[T](g)
	if err != nil {
		panic(err)
	}
	return t
}

// RegisterTopic creates the topic for kind T up front. Required for every
// kind on graphs built with WithStaticTopics; optional elsewhere, where
// ResolveTopic creates topics on demand. Registering a kind that already
// has a topic (registered or resolved) returns ErrAlreadyRegistered.
func RegisterTopic[T any](g *Graph) error {
	key := typeOf[T]()
	t := newTopic[T]()
	if err := g.registry.register(key, t); err != nil {
		return err
	}
	g.addVertex(t)
	return nil
}

// MustRegisterTopic is RegisterTopic, panicking on error.
func MustRegisterTopic[T any](g *Graph) {
	if err := RegisterTopic[T](g); err != nil {
		panic(err)
	}
}
