package detektor

// ProcessorContainer streamlines the PushData / Evaluate / inspect cycle
// for synchronous, single-goroutine applications: one ProcessData call
// absorbs an input and evaluates the graph until the input queue drains,
// handing every evaluation's output list to the output callback exactly
// once. Graphs with closed loops therefore produce more output callbacks
// than ProcessData calls; that keeps every evaluation inspectable.
type ProcessorContainer struct {
	graph  *Graph
	output func([]TopicState)
}

// NewProcessorContainer wraps graph; output may be nil if evaluations
// are inspected elsewhere.
func NewProcessorContainer(graph *Graph, output func([]TopicState)) *ProcessorContainer {
	return &ProcessorContainer{graph: graph, output: output}
}

// Graph returns the wrapped graph.
func (c *ProcessorContainer) Graph() *Graph {
	return c.graph
}

// ProcessData pushes ts into the graph and evaluates until no data is
// pending. The kind of ts must already have a topic in the graph.
func (c *ProcessorContainer) ProcessData(ts TopicState) error {
	if err := c.graph.pushDynamic(ts); err != nil {
		return err
	}
	return c.ProcessPending()
}

// ProcessPending evaluates the graph until the input queue drains,
// invoking the output callback after each evaluation.
func (c *ProcessorContainer) ProcessPending() error {
	for c.graph.HasDataPending() {
		if err := c.graph.Evaluate(); err != nil {
			return err
		}
		if c.output != nil {
			c.output(c.graph.OutputList())
		}
	}
	return nil
}
