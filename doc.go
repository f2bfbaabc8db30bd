// Package detektor is an in-process dataflow engine for writing
// reactive, testable control logic.
//
// # Overview
//
// Applications model their behavior as a directed graph of two kinds of
// vertices: Topics (typed, single-kind buses) and Detectors (reactive
// units of logic). External code pushes typed values into topics; the
// engine evaluates the graph in topological order, invoking each
// affected detector exactly once per evaluation and letting it publish
// further topic updates. The entire computation is deterministic,
// single-threaded and, from the detectors' perspective, side-effect
// free.
//
// # Basic Usage
//
//	type TemperatureSample struct{ Celsius int }
//	type OverheatingState struct{ Overheating bool }
//
//	type OverheatingDetector struct {
//		out detektor.Publisher[OverheatingState]
//	}
//
//	func NewOverheatingDetector(g *detektor.Graph) *OverheatingDetector {
//		d := &OverheatingDetector{}
//		n := detektor.NewDetector(g, d)
//		detektor.MustSubscribe(n, d.onSample)
//		d.out = detektor.MustNewPublisher[OverheatingState](n)
//		return d
//	}
//
//	func (d *OverheatingDetector) onSample(s TemperatureSample) {
//		d.out.Publish(OverheatingState{Overheating: s.Celsius > 100})
//	}
//
//	g := detektor.New()
//	_ = NewOverheatingDetector(g)
//	detektor.MustPushData(g, TemperatureSample{Celsius: 110})
//	_ = g.Evaluate()
//	for _, ts := range g.OutputList() {
//		// OverheatingState{Overheating: true}
//	}
//
// # Evaluation Model
//
// One Evaluate call consumes exactly one pushed value. That preserves a
// clean "event in, settled state out" rhythm: after any Evaluate, the
// output list describes the effects of a single input. Applications
// that want to absorb all pending input loop while HasDataPending, or
// use ProcessorContainer / Runner which do it for them.
//
// Within one evaluation, vertices are visited in a stored topological
// order whose ties break towards insertion order, so evaluation order
// is reproducible across runs given the same construction sequence. A
// dependency cycle fails Evaluate with ErrCycleDetected.
//
// # Feedback Loops
//
// Closing a loop eagerly would make the sort impossible, so feedback
// goes through the input queue instead: FuturePublisher enqueues a
// value for the next evaluation, and Lag packages that pattern as a
// drop-in detector producing Lagged[T]. TimeoutPublisher does the same
// on a timer via a TimeoutPublisherService.
//
// # Concurrency
//
// A Graph must be owned by one goroutine. Runner provides a
// serializing front for applications whose inputs originate elsewhere
// (timers, Kafka consumers, HTTP handlers); the dgkafka package bridges
// graph inputs and outputs to Kafka topics on top of it.
//
// # Thread Safety
//
// IMPORTANT: Graph, detectors and capabilities are NOT safe for
// concurrent use. All construction and evaluation must happen on a
// single goroutine, or behind a Runner.
package detektor
