package planner

import (
	"context"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/capacity"
	"github.com/kilianp07/saltplan/core/logger"
	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/internal/eventbus"
)

// ErrNegativeQuantity is returned by Plan when a batch carries a negative quantity.
var ErrNegativeQuantity = model.ErrNegativeQuantity

// Stats summarises one planning run.
type Stats struct {
	Total          int           `json:"total"`
	Retained       int           `json:"retained"`
	Placed         int           `json:"placed"`
	PlacedInGroups int           `json:"placed_in_groups"`
	Unplaced       []string      `json:"unplaced,omitempty"`
	Skipped        []string      `json:"skipped,omitempty"`
	Groups         []GroupResult `json:"groups,omitempty"`
}

// Result is the output of Plan.
type Result struct {
	Batches       []model.Batch         `json:"batches"`
	Suggestions   []model.SuggestionRow `json:"suggestions"`
	Stabilization Report                `json:"stabilization"`
	Stats         Stats                 `json:"stats"`
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger used during runs.
func WithLogger(l logger.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

// WithEventBus publishes group, placement and unplaced events on bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(p *Planner) { p.bus = bus }
}

// Planner assigns entry and exit dates to batches. A Planner holds no run
// state and may be shared between goroutines.
type Planner struct {
	cfg settings
	log logger.Logger
	bus eventbus.EventBus
}

// New validates cfg and returns a Planner.
func New(cfg Config, opts ...Option) (*Planner, error) {
	set, err := cfg.build()
	if err != nil {
		return nil, err
	}
	p := &Planner{cfg: set, log: logger.Nop{}}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Calendar returns the business-day calendar of the planner.
func (p *Planner) Calendar() *calendar.Calendar { return p.cfg.cal }

// Policy returns the capacity policy of the planner.
func (p *Planner) Policy() capacity.Policy { return p.cfg.policy }

// ExitRule returns the exit-date rule of the planner.
func (p *Planner) ExitRule() ExitRule { return p.cfg.rule }

// Report computes the stabilization report of batches under the planner's policy.
func (p *Planner) Report(batches []model.Batch) Report {
	return StabilizationReport(batches, p.cfg.policy)
}

// Plan places every batch without an entry date. Batches that already carry
// dates are kept as they are and only consume capacity. The input slice is
// not modified.
func (p *Planner) Plan(ctx context.Context, batches []model.Batch) (Result, error) {
	for _, b := range batches {
		if err := b.Validate(); err != nil {
			return Result{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	work := make([]model.Batch, len(batches))
	copy(work, batches)
	s := newState(p.cfg, work, p.log, p.bus)
	if len(s.stats.Skipped) > 0 {
		p.log.Warnf("skipping %d malformed batches: %v", len(s.stats.Skipped), s.stats.Skipped)
	}

	for _, g := range p.cfg.groups {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		s.scheduleGroup(g)
	}

	suggestions, err := s.placeAll(ctx)
	if err != nil {
		return Result{}, err
	}
	sortSuggestions(suggestions)

	p.log.Infof("plan finished: %d placed (%d in groups), %d retained, %d unplaced, %d skipped",
		s.stats.Placed, s.stats.PlacedInGroups, s.stats.Retained, len(s.stats.Unplaced), len(s.stats.Skipped))
	return Result{
		Batches:       work,
		Suggestions:   suggestions,
		Stabilization: StabilizationReport(work, p.cfg.policy),
		Stats:         *s.stats,
	}, nil
}
