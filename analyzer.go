package detektor

import (
	"fmt"
	"io"
	"os"
)

// Analyzer renders a graph in GraphViz dot format. Topics appear as
// boxes (inputs light blue, outputs lime green, intermediates red),
// detectors as ovals; future-publish edges are dotted red. Node labels
// carry each vertex's position in the topological sort.
type Analyzer struct {
	graph *Graph
}

// NewAnalyzer creates an analyzer for graph.
func NewAnalyzer(g *Graph) *Analyzer {
	return &Analyzer{graph: g}
}

// WriteDot writes the dot rendering to w. The graph is sorted first if
// its topology changed since the last sort.
func (a *Analyzer) WriteDot(w io.Writer) error {
	g := a.graph
	if g.needsSort {
		if err := g.topoSortGraph(); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "digraph GraphAnalyzer {"); err != nil {
		return err
	}
	fmt.Fprintln(w, `    rankdir = "LR";`)
	fmt.Fprintln(w, `    node[fontname=Helvetica];`)
	fmt.Fprintln(w, `    size="12,5";`)

	for i, v := range g.vertices {
		name := v.vertexName()
		if t, ok := v.(anyTopic); ok {
			fmt.Fprintf(w, "    %q [label=\"%d:%s\",style=filled, shape=box, color=%s];\n",
				name, i, name, topicColor(t))
		} else {
			fmt.Fprintf(w, "    %q [label=\"%d:%s\", color=blue];\n", name, i, name)
		}
		for _, out := range v.outEdges() {
			fmt.Fprintf(w, "        %q -> %q;\n", name, out.vertexName())
		}
		for _, out := range v.futureOutEdges() {
			fmt.Fprintf(w, "        %q -> %q [style=dotted, color=red, constraint=false];\n",
				name, out.vertexName())
		}
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}

// SaveDotFile writes the dot rendering to path.
func (a *Analyzer) SaveDotFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.WriteDot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// topicColor picks the conventional analyzer color: inputs (no in-graph
// producers) light blue, pure outputs (no subscribers) lime green,
// everything in between red.
func topicColor(t anyTopic) string {
	producers := len(t.inEdges())
	subscribers := len(t.outEdges())
	switch {
	case producers == 0:
		return "lightblue"
	case subscribers == 0:
		return "limegreen"
	default:
		return "red"
	}
}
