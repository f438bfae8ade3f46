package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/saltplan/core/metrics"
	"github.com/kilianp07/saltplan/core/model"
)

// PromSink records planning activity in Prometheus metrics.
type PromSink struct {
	runs          prometheus.Counter
	runDuration   prometheus.Histogram
	placed        *prometheus.CounterVec
	unplaced      prometheus.Counter
	groups        *prometheus.CounterVec
	storageDays   prometheus.Histogram
	lastPlaced    prometheus.Gauge
	lastUnplaced  prometheus.Gauge
	suggestions   prometheus.Gauge
	peakUtil      prometheus.Gauge
	daysOverLimit prometheus.Gauge
}

// NewPromSink registers planner metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "saltplan_runs_total",
		Help: "Number of planning runs",
	})); err != nil {
		return nil, err
	}
	if s.runDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "saltplan_run_duration_seconds",
		Help:    "Wall time of a planning run",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.placed, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saltplan_batches_placed_total",
		Help: "Batches committed by the planner",
	}, []string{"tier", "grouped"})); err != nil {
		return nil, err
	}
	if s.unplaced, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "saltplan_batches_unplaced_total",
		Help: "Batches that fit nowhere in their storage window",
	})); err != nil {
		return nil, err
	}
	if s.groups, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saltplan_group_attempts_total",
		Help: "Group co-scheduling attempts by outcome",
	}, []string{"outcome", "fallback"})); err != nil {
		return nil, err
	}
	if s.storageDays, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "saltplan_storage_days",
		Help:    "Days between reception and entry of placed batches",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})); err != nil {
		return nil, err
	}
	if s.lastPlaced, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "saltplan_last_run_placed",
		Help: "Batches placed by the last run",
	})); err != nil {
		return nil, err
	}
	if s.lastUnplaced, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "saltplan_last_run_unplaced",
		Help: "Batches left unplaced by the last run",
	})); err != nil {
		return nil, err
	}
	if s.suggestions, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "saltplan_last_run_suggestions",
		Help: "Suggestion rows produced by the last run",
	})); err != nil {
		return nil, err
	}
	if s.peakUtil, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "saltplan_stabilization_peak_utilization_percent",
		Help: "Highest daily stabilization chamber utilization of the last run",
	})); err != nil {
		return nil, err
	}
	if s.daysOverLimit, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "saltplan_stabilization_days_over_capacity",
		Help: "Days on which the stabilization chamber exceeds capacity",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the run counters and last-run gauges.
func (s *PromSink) RecordRun(r coremetrics.RunSummary) error {
	s.runs.Inc()
	s.runDuration.Observe(r.Duration.Seconds())
	s.lastPlaced.Set(float64(r.Placed))
	s.lastUnplaced.Set(float64(r.Unplaced))
	s.suggestions.Set(float64(r.Suggestions))
	return nil
}

// RecordPlacement counts a committed batch and observes its storage days.
func (s *PromSink) RecordPlacement(ev coremetrics.PlacementEvent) error {
	s.placed.WithLabelValues(strconv.Itoa(ev.Tier), strconv.FormatBool(ev.Grouped)).Inc()
	s.storageDays.Observe(float64(ev.StorageDays))
	return nil
}

// RecordGroup counts a group attempt.
func (s *PromSink) RecordGroup(ev coremetrics.GroupEvent) error {
	s.groups.WithLabelValues(ev.Outcome, strconv.FormatBool(ev.Fallback)).Inc()
	return nil
}

// RecordUnplaced counts an unplaced batch.
func (s *PromSink) RecordUnplaced(coremetrics.UnplacedEvent) error {
	s.unplaced.Inc()
	return nil
}

// RecordStabilization sets the chamber gauges.
func (s *PromSink) RecordStabilization(days []model.StabilizationDay) error {
	peak, over := 0.0, 0
	for _, d := range days {
		if d.Utilization > peak {
			peak = d.Utilization
		}
		if d.Excess > 0 {
			over++
		}
	}
	s.peakUtil.Set(peak)
	s.daysOverLimit.Set(float64(over))
	return nil
}
