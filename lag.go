package detektor

// Lagged carries the previous evaluation's value of T, as produced by a
// Lag detector.
type Lagged[T any] struct {
	Data T
}

// Lag is a built-in detector performing a 1-evaluation lag on kind T: it
// subscribes to T and future-publishes every value as Lagged[T]. Adding a
// Lag to a graph is the expressive way to close a feedback loop; the lag
// absorbs the cycle-breaking so user detectors downstream of Lagged[T]
// stay free of future-publish bookkeeping.
//
//	T ──▶ Lag[T] ╌╌▶ Lagged[T] ──▶ (consumers, one evaluation later)
type Lag[T any] struct {
	node   *DetectorNode
	future FuturePublisher[Lagged[T]]
}

// NewLag adds a Lag detector for kind T to the graph.
func NewLag[T any](g *Graph) (*Lag[T], error) {
	l := &Lag[T]{}
	l.node = NewDetector(g, l)
	if err := Subscribe(l.node, l.evaluate); err != nil {
		return nil, err
	}
	var err error
	if l.future, err = NewFuturePublisher[Lagged[T]](l.node); err != nil {
		return nil, err
	}
	return l, nil
}

// MustNewLag is NewLag, panicking on error.
func MustNewLag[T any](g *Graph) *Lag[T] {
	l, err := NewLag[T](g)
	if err != nil {
		panic(err)
	}
	return l
}

func (l *Lag[T]) evaluate(current T) {
	if err := l.future.PublishOnFutureEvaluation(Lagged[T]{Data: current}); err != nil {
		l.node.graph.log.Error("lag: future publish failed", "topic", l.node.vertexName(), "err", err)
	}
}
