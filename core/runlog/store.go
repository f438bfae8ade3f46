package runlog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrUnknownBackend is returned by NewStore for an unsupported backend name.
var ErrUnknownBackend = errors.New("runlog: unknown backend")

// RunRecord captures one planning run.
type RunRecord struct {
	RunID          string        `json:"run_id"`
	Timestamp      time.Time     `json:"timestamp"`
	Duration       time.Duration `json:"duration"`
	Total          int           `json:"total"`
	Retained       int           `json:"retained"`
	Placed         int           `json:"placed"`
	PlacedInGroups int           `json:"placed_in_groups"`
	Unplaced       int           `json:"unplaced"`
	Skipped        int           `json:"skipped"`
	Suggestions    int           `json:"suggestions"`
	Released       []string      `json:"released,omitempty"`
	PlacedIDs      []string      `json:"placed_ids,omitempty"`
	UnplacedIDs    []string      `json:"unplaced_ids,omitempty"`
}

// Mentions reports whether the run touched the batch id.
func (r RunRecord) Mentions(id string) bool {
	return slices.Contains(r.Released, id) ||
		slices.Contains(r.PlacedIDs, id) ||
		slices.Contains(r.UnplacedIDs, id)
}

// RunQuery defines filters for retrieving records. Zero values match all.
type RunQuery struct {
	Start   time.Time
	End     time.Time
	BatchID string
	Limit   int
}

func (q RunQuery) matches(r RunRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return q.BatchID == "" || r.Mentions(q.BatchID)
}

// limit keeps the most recent q.Limit records of an oldest-first slice.
func (q RunQuery) limit(res []RunRecord) []RunRecord {
	if q.Limit > 0 && len(res) > q.Limit {
		return res[len(res)-q.Limit:]
	}
	return res
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// Config selects and parameterises a backend.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills rotation limits and the default file path.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "saltplan-runs.db"
		default:
			c.Path = "saltplan-runs.jsonl"
		}
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 28
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "", "none", "jsonl", "rotating", "sqlite":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
}

// NewStore opens the backend described by cfg.
func NewStore(cfg Config) (Store, error) {
	cfg.SetDefaults()
	switch strings.ToLower(cfg.Backend) {
	case "none":
		return NopStore{}, nil
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error             { return nil }
func (NopStore) Query(context.Context, RunQuery) ([]RunRecord, error) { return nil, nil }
func (NopStore) Close() error                                         { return nil }
