package metrics

import "github.com/kilianp07/saltplan/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusAddr exposes /metrics on this address when set.
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`
	// TextfilePath receives the Prometheus registry in text format after
	// each CLI run, for node_exporter's textfile collector.
	TextfilePath string `json:"textfile_path" yaml:"textfile_path"`
	// EventBuffer is the capacity of the planner event subscription feeding
	// the sinks. Zero keeps the bus default.
	EventBuffer int `json:"event_buffer" yaml:"event_buffer"`
}
