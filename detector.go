package detektor

import "reflect"

// BeginEvaluator is optionally implemented by detector logic that wants a
// hook before any Evaluate callback of an evaluation pass.
type BeginEvaluator interface {
	BeginEvaluation()
}

// CompleteEvaluator is optionally implemented by detector logic that
// wants a hook after all Evaluate callbacks of an evaluation pass. This
// is the canonical place to decide composite conditions across several
// subscriptions.
type CompleteEvaluator interface {
	CompleteEvaluation()
}

// DetectorNode is the graph vertex behind one detector: a
// compartmentalized unit of logic with fixed input kinds (subscriptions)
// and fixed output kinds (publications).
//
// A detector is built by constructing its logic value, attaching it with
// NewDetector, and then - still inside the constructor - declaring every
// subscription (Subscribe) and publication (NewPublisher,
// NewFuturePublisher, NewTimeoutPublisher). The declarations define the
// detector's edges and are fixed for its lifetime:
//
//	type OverheatingDetector struct {
//		overheating detektor.Publisher[OverheatingState]
//	}
//
//	func NewOverheatingDetector(g *detektor.Graph) (*OverheatingDetector, error) {
//		d := &OverheatingDetector{}
//		n := detektor.NewDetector(g, d)
//		if err := detektor.Subscribe(n, d.onSample); err != nil {
//			return nil, err
//		}
//		var err error
//		if d.overheating, err = detektor.NewPublisher[OverheatingState](n); err != nil {
//			return nil, err
//		}
//		return d, nil
//	}
//
// If the logic value implements BeginEvaluator/CompleteEvaluator those
// hooks run around the per-subscription callbacks.
type DetectorNode struct {
	baseVertex
	graph       *Graph
	logic       any
	dispatchers []subscriptionDispatcher
}

// NewDetector attaches detector logic to the graph as a new vertex. The
// logic value is inspected for the optional BeginEvaluator and
// CompleteEvaluator hooks at dispatch time.
func NewDetector(g *Graph, logic any) *DetectorNode {
	n := &DetectorNode{graph: g, logic: logic}
	n.name = typeName(reflect.TypeOf(logic))
	g.addVertex(n)
	return n
}

// Graph returns the graph this detector belongs to.
func (n *DetectorNode) Graph() *Graph {
	return n.graph
}

// Remove detaches the detector from its graph: its subscriptions' edges
// and its own out-edges are removed along with the vertex. Must not be
// called mid-evaluation.
func (n *DetectorNode) Remove() {
	if n.graph.evaluating {
		panic("detektor: Remove during evaluation")
	}
	for _, d := range n.dispatchers {
		d.topicVertex().removeOut(n)
	}
	n.dispatchers = nil
	for _, out := range n.out {
		out.removeIn(n)
	}
	n.out = nil
	n.graph.removeVertex(n)
}

// process runs the detector's part of an evaluation: BeginEvaluation,
// then every subscription dispatcher whose topic carries new data, then
// CompleteEvaluation. Runs only when some subscribed topic marked this
// vertex as affected.
func (n *DetectorNode) process() {
	if n.st != vertexProcessing {
		return
	}
	if b, ok := n.logic.(BeginEvaluator); ok {
		b.BeginEvaluation()
	}
	for _, d := range n.dispatchers {
		d.dispatch()
	}
	if c, ok := n.logic.(CompleteEvaluator); ok {
		c.CompleteEvaluation()
	}
	n.st = vertexDone
}

// subscriptionDispatcher binds one subscribed topic to one typed evaluate
// callback.
type subscriptionDispatcher interface {
	dispatch()
	topicVertex() vertex
}

type subscription[T any] struct {
	topic    *Topic[T]
	evaluate func(T)
}

// dispatch feeds every value the topic received this pass to the
// detector, in publish order. Fires only if the topic carries new data.
func (s *subscription[T]) dispatch() {
	if s.topic.state() != vertexDone {
		return
	}
	for _, v := range s.topic.values {
		s.evaluate(v)
	}
}

func (s *subscription[T]) topicVertex() vertex {
	return s.topic
}

// Subscribe declares that the detector consumes kind T, routing new
// values to evaluate. The relative order of different kinds' callbacks
// within one pass follows declaration order; CompleteEvaluation always
// runs after all of them.
func Subscribe[T any](n *DetectorNode, evaluate func(T)) error {
	topic, err := ResolveTopic[T](n.graph)
	if err != nil {
		return err
	}
	n.dispatchers = append(n.dispatchers, &subscription[T]{topic: topic, evaluate: evaluate})
	n.graph.insertEdge(topic, n)
	return nil
}

// MustSubscribe is Subscribe, panicking on error.
func MustSubscribe[T any](n *DetectorNode, evaluate func(T)) {
	if err := Subscribe(n, evaluate); err != nil {
		panic(err)
	}
}

var _ vertex = (*DetectorNode)(nil)
