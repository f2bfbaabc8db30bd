package detektor

import (
	"reflect"
)

// TopicState is any value routed through a graph. The dynamic type of the
// value is the topic kind: exactly one Topic exists per kind per graph.
//
// TopicStates should be self-explanatory and self-contained; a subscriber
// shouldn't need anything else to act on one. Values are carried by value
// in and out of the engine, so bulk payloads should be wrapped in a type
// with cheap copy semantics (e.g. holding a pointer to an immutable
// buffer).
type TopicState = any

// TopicStateID is an application-defined identifier for TopicStates that
// are meant to cross the graph boundary (snapshots, resume, external
// consumers). Kinds that don't implement Identified are anonymous: they
// exist only inside the graph.
type TopicStateID int

// AnonymousTopicState is the ID of every kind that does not implement
// Identified.
const AnonymousTopicState TopicStateID = -1

// Identified is implemented by TopicStates that take part in a public,
// application-wide ID space. Named states are retained by StateSnapshot;
// anonymous ones are not.
type Identified interface {
	TopicStateID() TopicStateID
}

// StateID returns the public ID of ts, or AnonymousTopicState.
func StateID(ts TopicState) TopicStateID {
	if id, ok := ts.(Identified); ok {
		return id.TopicStateID()
	}
	return AnonymousTopicState
}

// StateIDOf returns the public ID of kind T without needing an instance.
func StateIDOf[T any]() TopicStateID {
	var zero T
	return StateID(zero)
}

// StateName returns a short human-readable name for the kind of ts, used
// in logs and analyzer output.
func StateName(ts TopicState) string {
	return typeName(reflect.TypeOf(ts))
}

// typeOf returns the reflect.Type used as the registry key for kind T.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// dynamicType returns the registry key for a value whose kind is only
// known at runtime.
func dynamicType(ts TopicState) reflect.Type {
	return reflect.TypeOf(ts)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
