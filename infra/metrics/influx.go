package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/saltplan/core/calendar"
	coremetrics "github.com/kilianp07/saltplan/core/metrics"
	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/infra/logger"
)

// InfluxSink writes planning activity to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordRun writes the run summary.
func (s *InfluxSink) RecordRun(r coremetrics.RunSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_run").
		AddTag("component", "planner").
		AddField("run_id", r.RunID).
		AddField("total", r.Total).
		AddField("retained", r.Retained).
		AddField("released", r.Released).
		AddField("placed", r.Placed).
		AddField("placed_in_groups", r.PlacedInGroups).
		AddField("unplaced", r.Unplaced).
		AddField("skipped", r.Skipped).
		AddField("suggestions", r.Suggestions).
		AddField("duration_ms", round3(r.Duration.Seconds()*1000)).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPlacement writes one committed batch, timestamped on its entry date.
func (s *InfluxSink) RecordPlacement(ev coremetrics.PlacementEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("batch_placement").
		AddTag("batch_id", ev.BatchID).
		AddTag("product_code", ev.ProductCode).
		AddTag("tier", strconv.Itoa(ev.Tier)).
		AddTag("grouped", strconv.FormatBool(ev.Grouped)).
		AddField("quantity", ev.Quantity).
		AddField("storage_days", ev.StorageDays).
		AddField("exit_date", ev.Exit.Format(calendar.Layout)).
		SetTime(ev.Entry)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordGroup writes a group outcome.
func (s *InfluxSink) RecordGroup(ev coremetrics.GroupEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("group_outcome").
		AddTag("group", ev.Group).
		AddTag("outcome", ev.Outcome).
		AddTag("fallback", strconv.FormatBool(ev.Fallback)).
		AddField("members", ev.Members).
		AddField("tier", ev.Tier).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordUnplaced writes a batch the planner could not place.
func (s *InfluxSink) RecordUnplaced(ev coremetrics.UnplacedEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("batch_unplaced").
		AddTag("batch_id", ev.BatchID).
		AddTag("product_code", ev.ProductCode).
		AddField("quantity", ev.Quantity).
		AddField("min_deficit", ev.MinDeficit).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStabilization writes one point per chamber day in a single request.
func (s *InfluxSink) RecordStabilization(days []model.StabilizationDay) error {
	if len(days) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(days))
	for _, d := range days {
		points = append(points, write.NewPointWithMeasurement("stabilization_occupancy").
			AddTag("component", "planner").
			AddField("total", d.Total).
			AddField("ham", d.Ham).
			AddField("shoulder", d.Shoulder).
			AddField("capacity", d.Capacity).
			AddField("utilization_pct", round3(d.Utilization)).
			AddField("excess", d.Excess).
			SetTime(d.Date))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
