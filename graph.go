package detektor

import (
	"fmt"
	"log/slog"
	"slices"
)

// Graph owns all vertices (topics and detectors) of one dataflow graph
// and drives its evaluation.
//
// Graph:
//   - provides the data input API (PushData) into topics
//   - provides the data output API (OutputList) from topics
//   - provides the evaluation API (Evaluate)
//   - maintains the topological sort across topology changes
//   - creates topics as needed to satisfy detector dependencies
//
// Typical control flow: external events are translated into TopicStates
// and passed to PushData; Evaluate runs in an event loop until
// HasDataPending is false; after each Evaluate the OutputList is
// inspected for TopicStates of interest.
//
// A Graph is not safe for concurrent use. All access must come from a
// single goroutine; Runner provides a serializing front if inputs
// originate from several goroutines.
type Graph struct {
	registry   topicRegistry
	inputQueue graphInputQueue

	// vertices holds every vertex; after a successful sort its order is a
	// valid topological order.
	vertices  []vertex
	needsSort bool

	outputs []TopicState

	evaluating   bool
	staticTopics bool

	log *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger for the graph. The default discards all
// output.
func WithLogger(log *slog.Logger) Option {
	return func(g *Graph) {
		g.log = log
	}
}

// WithStaticTopics disables on-demand topic creation: every kind must be
// registered via RegisterTopic before use, and resolving an unregistered
// kind fails with ErrUnresolvedTopic. Useful to pin down the full topic
// set of a deployment at startup.
func WithStaticTopics() Option {
	return func(g *Graph) {
		g.staticTopics = true
	}
}

// WithInputQueueCapacity bounds the input queue; PushData and
// PublishOnFutureEvaluation fail with ErrQueueFull once n inputs are
// pending. Zero (the default) means unbounded.
func WithInputQueueCapacity(n int) Option {
	return func(g *Graph) {
		g.inputQueue.capacity = n
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		registry: newTopicRegistry(),
		log:      NullLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log.Debug("graph initialized")
	return g
}

// NullWriter is a writer that discards all data.
type NullWriter struct{}

func (NullWriter) Write(p []byte) (int, error) { return len(p), nil }

// NullLogger creates a logger that discards all output.
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(NullWriter{}, nil))
}

// PushData enqueues a copy of value for the graph's topic of kind T. It
// is the only way to input data into the graph. The value is consumed by
// a later call to Evaluate; each Evaluate consumes exactly one pushed
// value.
func PushData[T any](g *Graph, value T) error {
	topic, err := ResolveTopic[T](g)
	if err != nil {
		return err
	}
	return g.inputQueue.enqueue(inputCapsule[T]{topic: topic, value: value})
}

// MustPushData is PushData, panicking on error.
func MustPushData[T any](g *Graph, value T) {
	if err := PushData(g, value); err != nil {
		panic(err)
	}
}

// pushDynamic enqueues a value whose kind is only known at runtime. The
// topic must already exist; kinds that no detector subscribes to or
// publishes cannot be pushed this way.
func (g *Graph) pushDynamic(ts TopicState) error {
	key := dynamicType(ts)
	topic, ok := g.registry.resolve(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnresolvedTopic, typeName(key))
	}
	return g.inputQueue.enqueue(dynamicCapsule{topic: topic, value: ts})
}

// HasDataPending reports whether there is data pending evaluation. Useful
// for a "flush all data" pattern since Evaluate removes a single
// TopicState from the input queue per call.
func (g *Graph) HasDataPending() bool {
	return !g.inputQueue.empty()
}

// EvaluateIfHasDataPending evaluates the graph if data is pending and
// reports whether it did. An evaluation failure aborts via the returned
// error.
func (g *Graph) EvaluateIfHasDataPending() (bool, error) {
	if !g.HasDataPending() {
		return false, nil
	}
	if err := g.Evaluate(); err != nil {
		return false, err
	}
	return true, nil
}

// Evaluate runs one evaluation pass:
//
//  1. re-sorts the graph if its topology changed (failing on cycles)
//  2. clears every vertex's traverse state
//  3. dequeues exactly one pending input, publishing it into its topic
//  4. walks all vertices in topological order, dispatching each affected
//     detector exactly once
//  5. composes the output list from topics holding new data
//
// Calling Evaluate reentrantly (from within a detector hook) is a
// programming error and panics.
func (g *Graph) Evaluate() error {
	if g.evaluating {
		panic("detektor: reentrant Evaluate")
	}

	if g.needsSort {
		if err := g.topoSortGraph(); err != nil {
			g.log.Error("topological sort failed", "err", err)
			return err
		}
	}

	g.clearTraverseContexts()

	g.evaluating = true
	defer func() { g.evaluating = false }()

	g.inputQueue.dequeueAndDispatch()

	for _, v := range g.vertices {
		v.process()
	}

	g.composeOutputList()

	return nil
}

// OutputList returns the TopicStates published during the most recent
// evaluation, in topological order of their topics. The returned values
// are copies; the slice is valid until the next call to Evaluate.
func (g *Graph) OutputList() []TopicState {
	return g.outputs
}

// VerticesSize returns the number of vertices currently in the graph.
func (g *Graph) VerticesSize() int {
	return len(g.vertices)
}

func (g *Graph) addVertex(v vertex) {
	g.vertices = append(g.vertices, v)
	g.needsSort = true
}

func (g *Graph) removeVertex(v vertex) {
	g.vertices = removeVertexFrom(g.vertices, v)
	g.needsSort = true
}

// insertEdge records a sort-visible edge from -> to. Any edge insertion
// invalidates the stored sort.
func (g *Graph) insertEdge(from, to vertex) {
	from.insertOut(to)
	to.insertIn(from)
	g.needsSort = true
}

// markFutureEdge records a future-publish path from -> to. Future edges
// do not participate in the sort; the data path goes through the input
// queue instead.
func (g *Graph) markFutureEdge(from, to vertex) {
	from.insertFutureOut(to)
	to.insertFutureIn(from)
}

func (g *Graph) clearTraverseContexts() {
	for _, v := range g.vertices {
		v.setState(vertexClear)
	}
}

// topoSortGraph orders the vertex set so that every sort-visible edge
// points forward. Ties between independent vertices break towards
// insertion order, yielding identical evaluation order across runs given
// the same construction sequence.
func (g *Graph) topoSortGraph() error {
	g.clearTraverseContexts()

	sorted := make([]vertex, 0, len(g.vertices))

	// DFS from every undiscovered vertex. Scanning vertices and edges in
	// reverse with post-order prepends keeps siblings in insertion order.
	for i := len(g.vertices) - 1; i >= 0; i-- {
		if g.vertices[i].state() == vertexClear {
			if err := g.visit(g.vertices[i], &sorted); err != nil {
				return err
			}
		}
	}

	if len(sorted) != len(g.vertices) {
		// A vertex pointed outside the graph's vertex set. This can only
		// happen on a bug in detector insertion/removal.
		g.log.Error("out of bounds edge", "sorted", len(sorted), "vertices", len(g.vertices))
		return ErrBadGraph
	}

	slices.Reverse(sorted)
	g.vertices = sorted
	g.needsSort = false

	g.log.Debug("graph sorted", "vertices", len(sorted))

	return nil
}

func (g *Graph) visit(v vertex, sorted *[]vertex) error {
	v.setState(vertexProcessing)
	edges := v.outEdges()
	for i := len(edges) - 1; i >= 0; i-- {
		w := edges[i]
		switch w.state() {
		case vertexClear:
			if err := g.visit(w, sorted); err != nil {
				return err
			}
		case vertexProcessing:
			// Back-edge: a dependency cycle not broken by a future
			// publish.
			return fmt.Errorf("%w: at %s", ErrCycleDetected, w.vertexName())
		}
	}
	v.setState(vertexDone)
	*sorted = append(*sorted, v)
	return nil
}

// composeOutputList pops data out of topics into the output list after an
// evaluation.
func (g *Graph) composeOutputList() {
	g.outputs = g.outputs[:0]
	for _, v := range g.vertices {
		if t, ok := v.(anyTopic); ok && t.hasNew() {
			g.outputs = append(g.outputs, t.currentStates()...)
		}
	}
}
