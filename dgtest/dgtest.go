// Package dgtest provides quickhand utilities for composing unit tests
// for detectors built with detektor: graph flushing helpers and a
// manual-time TimerDriver for deterministic timeout tests.
package dgtest

import (
	"log/slog"

	"github.com/birdayz/detektor"
)

// Flush evaluates the graph until its input queue drains.
func Flush(g *detektor.Graph) error {
	for g.HasDataPending() {
		if err := g.Evaluate(); err != nil {
			return err
		}
	}
	return nil
}

// FlushAndPush flushes pending data, then pushes value - leaving the
// graph one Evaluate away from processing exactly that value.
func FlushAndPush[T any](g *detektor.Graph, value T) error {
	if err := Flush(g); err != nil {
		return err
	}
	return detektor.PushData(g, value)
}

// PrintOutputs logs the kinds present in the graph's current output
// list.
func PrintOutputs(g *detektor.Graph, log *slog.Logger) {
	log.Info("----- Graph.OutputList() contains: -----")
	for _, ts := range g.OutputList() {
		log.Info("output contains", "topicstate", detektor.StateName(ts))
	}
	log.Info("----- DONE -----")
}
