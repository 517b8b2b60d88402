// Package metricsink is the abstract metrics boundary the rest of this
// module emits through: the core packages (trie, trienode, triedb,
// state) only ever call Sink methods, never a concrete metrics client
// directly, so the core stays usable in a process that doesn't want
// Prometheus (or any metrics system) wired in at all.
package metricsink

import "time"

// Sink receives counters and durations from the commit/flush pipeline.
// Every method must be safe for concurrent use.
type Sink interface {
	// IncCounter adds delta to the named counter.
	IncCounter(name string, delta uint64)

	// ObserveDuration records one occurrence of name taking d.
	ObserveDuration(name string, d time.Duration)
}

// NoOp is a Sink that discards everything, the default when the
// caller doesn't wire in a concrete implementation.
var NoOp Sink = noopSink{}

type noopSink struct{}

func (noopSink) IncCounter(string, uint64)            {}
func (noopSink) ObserveDuration(string, time.Duration) {}
