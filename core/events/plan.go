package events

import "time"

// GroupEvent is published after each co-scheduling attempt of a product group.
// Outcome is "placed", "failed" or "empty".
type GroupEvent struct {
	Group    string
	Codes    []string
	Outcome  string
	Fallback bool
	Entry    time.Time
	Tier     int
	BatchIDs []string
}

// PlacementEvent is published for every batch the planner commits.
type PlacementEvent struct {
	BatchID     string
	ProductCode string
	Quantity    int
	Entry       time.Time
	Exit        time.Time
	Tier        int
	StorageDays int
	Grouped     bool
}

// UnplacedEvent is published for a batch that fits nowhere inside its window.
type UnplacedEvent struct {
	BatchID     string
	ProductCode string
	Quantity    int
	Suggestions int
	MinDeficit  int
}
