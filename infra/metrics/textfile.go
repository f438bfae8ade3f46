package metrics

import "github.com/prometheus/client_golang/prometheus"

// WriteTextfile dumps the gatherer in the Prometheus text format to path,
// atomically. A nil gatherer uses the default registry.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return prometheus.WriteToTextfile(path, g)
}
