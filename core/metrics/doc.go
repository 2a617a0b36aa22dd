// Package metrics defines the observability contract of the simulation.
// Sinks implement MetricsSink and may opt into the optional recorder
// interfaces; MultiSink fans events out to every sink that supports them.
package metrics
