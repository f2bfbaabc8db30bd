package detektor

// searchState doubles as the DFS bookkeeping during the topological sort
// and as the per-evaluation "affected" marker during a traversal.
type searchState uint8

const (
	vertexClear searchState = iota
	vertexProcessing
	vertexDone
)

// vertex is a node in the graph: either a topic or a detector. The graph
// only ever manipulates vertices through this interface; the typed
// surfaces (Topic[T], DetectorNode) are layered on top.
type vertex interface {
	// process runs this vertex's part of an evaluation pass. It is called
	// once per vertex per evaluation, in topological order.
	process()

	state() searchState
	setState(searchState)

	// outEdges are the sort-visible edges. futureOutEdges are declared
	// future-publish paths: excluded from the sort, shown by the analyzer.
	outEdges() []vertex
	inEdges() []vertex
	futureOutEdges() []vertex

	insertOut(vertex)
	insertIn(vertex)
	insertFutureOut(vertex)
	insertFutureIn(vertex)
	removeOut(vertex)
	removeIn(vertex)

	vertexName() string
}

// baseVertex carries the edge lists and search state shared by topics and
// detector nodes.
type baseVertex struct {
	st        searchState
	out       []vertex
	in        []vertex
	futureOut []vertex
	futureIn  []vertex
	name      string
}

func (b *baseVertex) state() searchState        { return b.st }
func (b *baseVertex) setState(s searchState)    { b.st = s }
func (b *baseVertex) outEdges() []vertex        { return b.out }
func (b *baseVertex) inEdges() []vertex         { return b.in }
func (b *baseVertex) futureOutEdges() []vertex  { return b.futureOut }
func (b *baseVertex) insertOut(v vertex)        { b.out = append(b.out, v) }
func (b *baseVertex) insertIn(v vertex)         { b.in = append(b.in, v) }
func (b *baseVertex) insertFutureOut(v vertex)  { b.futureOut = append(b.futureOut, v) }
func (b *baseVertex) insertFutureIn(v vertex)   { b.futureIn = append(b.futureIn, v) }
func (b *baseVertex) removeOut(v vertex)        { b.out = removeVertexFrom(b.out, v) }
func (b *baseVertex) removeIn(v vertex)         { b.in = removeVertexFrom(b.in, v) }
func (b *baseVertex) vertexName() string        { return b.name }

func removeVertexFrom(vs []vertex, v vertex) []vertex {
	for i, w := range vs {
		if w == v {
			return append(vs[:i], vs[i+1:]...)
		}
	}
	return vs
}
