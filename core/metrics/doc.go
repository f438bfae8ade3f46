// Package metrics defines the sink interfaces used to observe planning runs.
// Sinks like PromSink and InfluxSink record run summaries, placements,
// group outcomes, unplaced batches and chamber occupancy and can be combined
// with NewMultiSink. The factory helpers return a MultiSink automatically
// when multiple sinks are configured.
package metrics
