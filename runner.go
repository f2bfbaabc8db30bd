package detektor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Runner serializes access to a graph from many goroutines. The graph
// itself stays strictly single-threaded: one loop goroutine owns it,
// executes queued operations, and after each one evaluates until the
// input queue drains. Kafka sources, timer drivers and application code
// all feed the loop through Send / Do.
type Runner struct {
	graph   *Graph
	log     *slog.Logger
	outputs func([]TopicState)

	ops  chan func() error
	stop chan struct{}
	once sync.Once
	done chan struct{}

	closers []func() error
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithOutputs registers a callback receiving each evaluation's output
// list, invoked on the runner goroutine.
func WithOutputs(fn func([]TopicState)) RunnerOption {
	return func(r *Runner) {
		r.outputs = fn
	}
}

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// NewRunner creates a runner for graph. Run must be called before any
// Send / Do.
func NewRunner(graph *Graph, opts ...RunnerOption) *Runner {
	r := &Runner{
		graph: graph,
		log:   NullLogger(),
		ops:   make(chan func() error, 64),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Graph returns the wrapped graph. Only touch it through Do.
func (r *Runner) Graph() *Graph {
	return r.graph
}

// Run blocks until the context is canceled, Close is called, or an
// operation fails. Every graph operation happens on this goroutine.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.stop:
				return nil
			case op := <-r.ops:
				if err := op(); err != nil {
					r.log.Error("runner operation failed", "err", err)
					return err
				}
				if err := r.drain(); err != nil {
					r.log.Error("evaluation failed", "err", err)
					return err
				}
			}
		}
	})

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	for _, closer := range r.closers {
		err = multierr.Append(err, closer())
	}
	return err
}

// Close stops the runner loop. The error (if any) is returned by Run.
func (r *Runner) Close() {
	r.once.Do(func() { close(r.stop) })
}

// OnClose registers a closer invoked after the loop exits, in
// registration order. Used by sources and drivers tied to the runner's
// lifetime.
func (r *Runner) OnClose(closer func() error) {
	r.closers = append(r.closers, closer)
}

// Do queues op for execution on the runner goroutine, followed by a
// full drain of the graph's input queue. It returns once the operation
// is queued; an operation error stops the runner. Returns
// ErrRunnerClosed if the loop is gone.
func (r *Runner) Do(op func() error) error {
	select {
	case <-r.done:
		return ErrRunnerClosed
	default:
	}
	select {
	case r.ops <- op:
		return nil
	default:
	}
	// Queue full: block, but give up if the runner dies meanwhile.
	select {
	case r.ops <- op:
		return nil
	case <-r.done:
		return ErrRunnerClosed
	}
}

// drain evaluates until no data is pending, reporting outputs.
func (r *Runner) drain() error {
	for {
		evaluated, err := r.graph.EvaluateIfHasDataPending()
		if err != nil {
			return err
		}
		if !evaluated {
			return nil
		}
		if r.outputs != nil {
			r.outputs(r.graph.OutputList())
		}
	}
}

// Send pushes value into the graph from any goroutine.
func Send[T any](r *Runner, value T) error {
	return r.Do(func() error {
		return PushData(r.graph, value)
	})
}

var _ Executor = (*Runner)(nil)
