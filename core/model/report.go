package model

import "time"

// SuggestionRow is one remediation option for a batch the planner could not place.
type SuggestionRow struct {
	BatchID          string    `json:"batch_id"`
	ProductCode      string    `json:"product_code"`
	Quantity         int       `json:"quantity"`
	ReceptionDate    time.Time `json:"reception_date"`
	ProposedEntry    time.Time `json:"proposed_entry"`
	ProposedExit     time.Time `json:"proposed_exit"`
	Tier             int       `json:"tier"`
	EntryDeficit     int       `json:"entry_deficit"`
	StabilizationMax int       `json:"stabilization_max_deficit"`
	ExitDeficit      int       `json:"exit_deficit"`
	MaxDeficit       int       `json:"max_deficit"`
	TotalDeficit     int       `json:"total_deficit"`
	Recommendation   string    `json:"recommendation"`
}

// StabilizationDay is the chamber occupancy for one calendar day.
type StabilizationDay struct {
	Date        time.Time `json:"date"`
	Total       int       `json:"total"`
	Ham         int       `json:"ham"`
	Shoulder    int       `json:"shoulder"`
	Capacity    int       `json:"capacity"`
	Utilization float64   `json:"utilization_pct"`
	Excess      int       `json:"excess"`
}
