package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
)

// Fit records the placement outcome of a batch.
type Fit int

const (
	FitUnknown Fit = iota
	FitYes
	FitNo
)

// String returns a human-readable representation of the fit state.
func (f Fit) String() string {
	switch f {
	case FitYes:
		return "yes"
	case FitNo:
		return "no"
	default:
		return "unknown"
	}
}

// MarshalText encodes the fit state as text.
func (f Fit) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText accepts yes, no and unknown.
func (f *Fit) UnmarshalText(b []byte) error {
	*f = ParseFit(string(b))
	return nil
}

// ParseFit maps text onto a Fit. Anything unrecognised is unknown.
func ParseFit(s string) Fit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true":
		return FitYes
	case "no", "false":
		return FitNo
	default:
		return FitUnknown
	}
}

// Batch is one production lot awaiting the salting line.
type Batch struct {
	ID               string    `json:"id"`
	ProductCode      string    `json:"product_code"`
	ReceptionDate    time.Time `json:"reception_date"`
	Quantity         int       `json:"quantity"`
	OptimalDwellDays int       `json:"optimal_dwell_days"`

	EntryDate      *time.Time `json:"entry_date,omitempty"`
	ExitDate       *time.Time `json:"exit_date,omitempty"`
	DwellDays      *int       `json:"dwell_days,omitempty"`
	StorageDays    *int       `json:"storage_days,omitempty"`
	DwellDeviation *int       `json:"dwell_deviation,omitempty"`
	Fits           Fit        `json:"fits"`

	Class         ProductClass `json:"product_class"`
	Nitrification *int         `json:"nitrification_level,omitempty"`
}

// Placed reports whether the batch carries an entry date.
func (b Batch) Placed() bool { return b.EntryDate != nil }

// Malformed reports rows the planner must ignore: no reception date or a
// negative dwell target.
func (b Batch) Malformed() bool {
	return b.ReceptionDate.IsZero() || b.OptimalDwellDays < 0
}

// ErrNegativeQuantity marks a batch whose quantity is below zero.
var ErrNegativeQuantity = errors.New("negative batch quantity")

// Validate checks the caller contract on quantities.
func (b Batch) Validate() error {
	if b.Quantity < 0 {
		return fmt.Errorf("batch %s: quantity %d: %w", b.ID, b.Quantity, ErrNegativeQuantity)
	}
	return nil
}

// Place sets entry and exit dates together with the derived day counts.
func (b *Batch) Place(entry, exit time.Time) {
	entry, exit = calendar.Day(entry), calendar.Day(exit)
	dwell := calendar.DaysBetween(entry, exit)
	storage := calendar.DaysBetween(b.ReceptionDate, entry)
	deviation := dwell - b.OptimalDwellDays
	b.EntryDate = &entry
	b.ExitDate = &exit
	b.DwellDays = &dwell
	b.StorageDays = &storage
	b.DwellDeviation = &deviation
	b.Fits = FitYes
}

// Release clears the placement and every derived field.
func (b *Batch) Release() {
	b.EntryDate = nil
	b.ExitDate = nil
	b.DwellDays = nil
	b.StorageDays = nil
	b.DwellDeviation = nil
	b.Fits = FitUnknown
}

// Family returns the product family derived from the product code.
func (b Batch) Family() Family { return FamilyOf(b.ProductCode) }
