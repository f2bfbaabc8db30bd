package detektor

// Publisher is a detector's capability to write kind T during an
// evaluation. Obtained once at construction via NewPublisher; the
// declaration creates the detector -> topic edge the sort relies on.
type Publisher[T any] struct {
	graph *Graph
	topic *Topic[T]
}

// NewPublisher declares that the detector n publishes kind T and returns
// the capability to do so.
func NewPublisher[T any](n *DetectorNode) (Publisher[T], error) {
	topic, err := ResolveTopic[T](n.graph)
	if err != nil {
		return Publisher[T]{}, err
	}
	n.graph.insertEdge(n, topic)
	return Publisher[T]{graph: n.graph, topic: topic}, nil
}

// MustNewPublisher is NewPublisher, panicking on error.
func MustNewPublisher[T any](n *DetectorNode) Publisher[T] {
	p, err := NewPublisher[T](n)
	if err != nil {
		panic(err)
	}
	return p
}

// Publish writes value into the published topic. Subscribers downstream
// in the topological order see it within the same evaluation. Publishing
// is only legal from within an evaluation hook; anything else (including
// detector constructors) is a programming error and panics - initial
// state must be delivered as an ordinary input instead.
func (p Publisher[T]) Publish(value T) {
	if p.graph == nil {
		panic("detektor: Publish on undeclared Publisher")
	}
	if !p.graph.evaluating {
		panic("detektor: Publish outside an evaluation")
	}
	p.topic.publish(value)
}

// FuturePublisher is a detector's capability to feed kind T back into the
// graph's input queue, to be consumed on a subsequent evaluation. Because
// the value takes the input-queue path, the declaration does not create a
// sort-visible edge: this is the sanctioned way to close feedback loops.
// Prefer Lag for new code; FuturePublisher remains for detectors that
// want explicit control of the fed-back value.
type FuturePublisher[T any] struct {
	graph *Graph
	topic *Topic[T]
}

// NewFuturePublisher declares that the detector n future-publishes kind
// T. The edge is recorded for analysis only and is invisible to the
// topological sort.
func NewFuturePublisher[T any](n *DetectorNode) (FuturePublisher[T], error) {
	topic, err := ResolveTopic[T](n.graph)
	if err != nil {
		return FuturePublisher[T]{}, err
	}
	n.graph.markFutureEdge(n, topic)
	return FuturePublisher[T]{graph: n.graph, topic: topic}, nil
}

// MustNewFuturePublisher is NewFuturePublisher, panicking on error.
func MustNewFuturePublisher[T any](n *DetectorNode) FuturePublisher[T] {
	p, err := NewFuturePublisher[T](n)
	if err != nil {
		panic(err)
	}
	return p
}

// PublishOnFutureEvaluation enqueues value as if it had been pushed from
// outside. It never causes the current evaluation to visit further
// vertices; the value arrives on a later Evaluate call, one queue entry
// per call.
func (p FuturePublisher[T]) PublishOnFutureEvaluation(value T) error {
	if p.graph == nil {
		panic("detektor: PublishOnFutureEvaluation on undeclared FuturePublisher")
	}
	return p.graph.inputQueue.enqueue(inputCapsule[T]{topic: p.topic, value: value})
}
