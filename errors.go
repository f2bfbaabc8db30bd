package detektor

import "errors"

// Sentinel errors returned by graph construction and evaluation. All
// errors surfaced by the package wrap one of these and can be checked
// with errors.Is.
var (
	// ErrCycleDetected is returned by Evaluate when the topological sort
	// finds a cycle that is not broken by a future-publish edge.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrAlreadyRegistered is returned when a topic kind is registered twice
	// on the same graph.
	ErrAlreadyRegistered = errors.New("topic already registered")

	// ErrUnresolvedTopic is returned when resolving a kind that was never
	// registered on a graph built with WithStaticTopics, and by
	// ProcessorContainer.ProcessData on any graph for a kind that has no
	// topic yet.
	ErrUnresolvedTopic = errors.New("topic not registered")

	// ErrQueueFull is returned by PushData and PublishOnFutureEvaluation
	// when the input queue capacity set via WithInputQueueCapacity is
	// exceeded.
	ErrQueueFull = errors.New("input queue full")

	// ErrBadGraph is returned when the vertex set is inconsistent, e.g. an
	// edge leads to a vertex that was removed from the graph.
	ErrBadGraph = errors.New("inconsistent graph")

	// ErrRunnerClosed is returned by Send and Runner.Do after the runner
	// loop has exited.
	ErrRunnerClosed = errors.New("runner closed")
)
