// Package app wires the planner to its side effects: metrics, the run log and
// the MQTT feed to the plant.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/saltplan/core/calendar"
	coremetrics "github.com/kilianp07/saltplan/core/metrics"
	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/core/monitoring"
	coremqtt "github.com/kilianp07/saltplan/core/mqtt"
	"github.com/kilianp07/saltplan/core/planner"
	"github.com/kilianp07/saltplan/core/runlog"
	"github.com/kilianp07/saltplan/infra/logger"
)

// Request is one planning invocation.
type Request struct {
	Batches []model.Batch `json:"batches"`
	// Release lists batch ids whose placement is cleared before planning.
	Release []string `json:"release,omitempty"`
	// ReleaseUnfit also releases every batch without entry date or flagged
	// as not fitting.
	ReleaseUnfit bool `json:"release_unfit,omitempty"`
}

// Outcome is the planner result of a run together with its identity.
type Outcome struct {
	RunID    string   `json:"run_id"`
	Released []string `json:"released,omitempty"`
	// Unacked lists placements the plant did not acknowledge in time.
	Unacked []string `json:"unacked,omitempty"`
	planner.Result
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records run summaries and stabilization occupancy on sink.
func WithMetrics(sink coremetrics.MetricsSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithRunLog appends every run to store.
func WithRunLog(store runlog.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPublisher sends new placements and the suggestion digest to pub. A
// positive ackTimeout waits for the plant to acknowledge each placement.
func WithPublisher(pub coremqtt.Publisher, ackTimeout time.Duration) Option {
	return func(s *Service) {
		if pub != nil {
			s.pub = pub
			s.ackTimeout = ackTimeout
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// Service runs plans and fans their results out.
type Service struct {
	planner    *planner.Planner
	sink       coremetrics.MetricsSink
	store      runlog.Store
	pub        coremqtt.Publisher
	ackTimeout time.Duration
	log        logger.Logger
	now        func() time.Time
	newID      func() string
}

// New creates a Service around p. Without options every side effect is a no-op.
func New(p *planner.Planner, opts ...Option) *Service {
	s := &Service{
		planner: p,
		sink:    coremetrics.NopSink{},
		store:   runlog.NopStore{},
		log:     logger.New("service"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Planner returns the planner used by the service.
func (s *Service) Planner() *planner.Planner { return s.planner }

// Plan releases the requested batches, plans and records the run. Failures of
// the side effects are logged and reported but do not fail the run.
func (s *Service) Plan(ctx context.Context, req Request) (Outcome, error) {
	start := s.now()
	work := append([]model.Batch(nil), req.Batches...)
	released := release(work, req.Release, req.ReleaseUnfit)

	pending := make(map[string]bool)
	for _, b := range work {
		if !b.Placed() {
			pending[b.ID] = true
		}
	}

	res, err := s.planner.Plan(ctx, work)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{RunID: s.newID(), Released: released, Result: res}
	duration := s.now().Sub(start)

	var fresh []model.Batch
	for _, b := range res.Batches {
		if pending[b.ID] && b.Placed() {
			fresh = append(fresh, b)
		}
	}

	snap := out
	var unacked []string
	var g errgroup.Group
	g.Go(func() error { return s.recordMetrics(snap, start, duration) })
	g.Go(func() error { return s.store.Append(ctx, s.record(snap, start, duration, fresh)) })
	if s.pub != nil {
		g.Go(func() error {
			var err error
			unacked, err = s.publish(snap, fresh)
			return err
		})
	}
	err = g.Wait()
	out.Unacked = unacked
	if err != nil {
		s.log.Errorf("run %s side effects: %v", out.RunID, err)
		monitoring.CaptureException(err, map[string]string{"module": "app", "run_id": out.RunID})
	}
	s.log.Infof("run %s: %d placed, %d unplaced, %d released in %s",
		out.RunID, res.Stats.Placed, len(res.Stats.Unplaced), len(released), duration)
	return out, nil
}

// Report computes the stabilization report of batches.
func (s *Service) Report(batches []model.Batch) planner.Report {
	return s.planner.Report(batches)
}

// Runs queries the run log.
func (s *Service) Runs(ctx context.Context, q runlog.RunQuery) ([]runlog.RunRecord, error) {
	return s.store.Query(ctx, q)
}

func release(batches []model.Batch, ids []string, unfit bool) []string {
	if unfit {
		ids = append(append([]string(nil), ids...), planner.ReleaseCandidates(batches)...)
	}
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var released []string
	for _, b := range batches {
		if want[b.ID] {
			released = append(released, b.ID)
			want[b.ID] = false
		}
	}
	planner.Release(batches, released)
	return released
}

func (s *Service) recordMetrics(out Outcome, start time.Time, d time.Duration) error {
	err := s.sink.RecordRun(coremetrics.RunSummary{
		RunID:          out.RunID,
		Time:           start,
		Duration:       d,
		Total:          out.Stats.Total,
		Retained:       out.Stats.Retained,
		Released:       len(out.Released),
		Placed:         out.Stats.Placed,
		PlacedInGroups: out.Stats.PlacedInGroups,
		Unplaced:       len(out.Stats.Unplaced),
		Skipped:        len(out.Stats.Skipped),
		Suggestions:    len(out.Suggestions),
	})
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if r, ok := s.sink.(coremetrics.StabilizationRecorder); ok {
		if err := r.RecordStabilization(out.Stabilization.Days); err != nil {
			return fmt.Errorf("record stabilization: %w", err)
		}
	}
	return nil
}

func (s *Service) record(out Outcome, start time.Time, d time.Duration, fresh []model.Batch) runlog.RunRecord {
	rec := runlog.RunRecord{
		RunID:          out.RunID,
		Timestamp:      start,
		Duration:       d,
		Total:          out.Stats.Total,
		Retained:       out.Stats.Retained,
		Placed:         out.Stats.Placed,
		PlacedInGroups: out.Stats.PlacedInGroups,
		Unplaced:       len(out.Stats.Unplaced),
		Skipped:        len(out.Stats.Skipped),
		Suggestions:    len(out.Suggestions),
		Released:       out.Released,
		UnplacedIDs:    out.Stats.Unplaced,
	}
	for _, b := range fresh {
		rec.PlacedIDs = append(rec.PlacedIDs, b.ID)
	}
	return rec
}

// publish sends the fresh placements and, when batches remain unplaced, the
// best suggestion of each as a digest. It returns the placements left unacknowledged.
func (s *Service) publish(out Outcome, fresh []model.Batch) ([]string, error) {
	grouped := make(map[string]bool)
	for _, g := range out.Stats.Groups {
		if g.Placed {
			for _, id := range g.BatchIDs {
				grouped[id] = true
			}
		}
	}

	type sent struct{ batchID, msgID string }
	var msgs []sent
	for _, b := range fresh {
		id, err := s.pub.PublishPlacement(coremqtt.Placement{
			RunID:       out.RunID,
			BatchID:     b.ID,
			ProductCode: b.ProductCode,
			Quantity:    b.Quantity,
			Entry:       b.EntryDate.Format(calendar.Layout),
			Exit:        b.ExitDate.Format(calendar.Layout),
			StorageDays: *b.StorageDays,
			Grouped:     grouped[b.ID],
		})
		if err != nil {
			return nil, fmt.Errorf("publish placement %s: %w", b.ID, err)
		}
		msgs = append(msgs, sent{b.ID, id})
	}

	if len(out.Stats.Unplaced) > 0 {
		if _, err := s.pub.PublishDigest(digest(out)); err != nil {
			return nil, fmt.Errorf("publish digest: %w", err)
		}
	}

	if s.ackTimeout <= 0 {
		return nil, nil
	}
	var unacked []string
	for _, m := range msgs {
		if ok, err := s.pub.WaitForAck(m.msgID, s.ackTimeout); !ok || err != nil {
			unacked = append(unacked, m.batchID)
		}
	}
	if len(unacked) > 0 {
		s.log.Warnf("run %s: %d placements not acknowledged", out.RunID, len(unacked))
	}
	return unacked, nil
}

// digest keeps the first, and therefore best ranked, suggestion of each
// unplaced batch.
func digest(out Outcome) coremqtt.Digest {
	d := coremqtt.Digest{RunID: out.RunID, Unplaced: len(out.Stats.Unplaced)}
	seen := make(map[string]bool)
	for _, r := range out.Suggestions {
		if seen[r.BatchID] {
			continue
		}
		seen[r.BatchID] = true
		d.Rows = append(d.Rows, coremqtt.DigestRow{
			BatchID:        r.BatchID,
			ProductCode:    r.ProductCode,
			Quantity:       r.Quantity,
			MaxDeficit:     r.MaxDeficit,
			TotalDeficit:   r.TotalDeficit,
			Recommendation: r.Recommendation,
		})
	}
	return d
}
