// Package scenarios replays plant situations described in YAML files against
// the full planning service.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/core/planner"
)

// BatchDef is one input row. Entry and exit are set for batches that are
// already placed.
type BatchDef struct {
	ID        string `yaml:"id"`
	Product   string `yaml:"product"`
	Reception string `yaml:"reception"`
	Quantity  int    `yaml:"quantity"`
	Dwell     int    `yaml:"dwell"`
	Entry     string `yaml:"entry,omitempty"`
	Exit      string `yaml:"exit,omitempty"`
}

// ToModel converts the definition into a batch.
func (d BatchDef) ToModel() (model.Batch, error) {
	b := model.Batch{ID: d.ID, ProductCode: d.Product, Quantity: d.Quantity, OptimalDwellDays: d.Dwell}
	var err error
	if b.ReceptionDate, err = calendar.Parse(d.Reception); err != nil {
		return b, fmt.Errorf("batch %s reception: %w", d.ID, err)
	}
	if d.Entry == "" {
		return b, nil
	}
	entry, err := calendar.Parse(d.Entry)
	if err != nil {
		return b, fmt.Errorf("batch %s entry: %w", d.ID, err)
	}
	exit, err := calendar.Parse(d.Exit)
	if err != nil {
		return b, fmt.Errorf("batch %s exit: %w", d.ID, err)
	}
	b.Place(entry, exit)
	return b, nil
}

// BatchExpectation checks one batch of the result. Empty fields are not checked.
type BatchExpectation struct {
	Entry string `yaml:"entry,omitempty"`
	Exit  string `yaml:"exit,omitempty"`
	Fits  string `yaml:"fits,omitempty"`
}

type Expected struct {
	Placed         int                         `yaml:"placed"`
	Retained       int                         `yaml:"retained"`
	PlacedInGroups int                         `yaml:"placed_in_groups"`
	Unplaced       []string                    `yaml:"unplaced,omitempty"`
	Released       []string                    `yaml:"released,omitempty"`
	Published      int                         `yaml:"published"`
	Batches        map[string]BatchExpectation `yaml:"batches,omitempty"`
	SameEntry      []string                    `yaml:"same_entry,omitempty"`
}

type Scenario struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description,omitempty"`
	Config       planner.Config `yaml:"config"`
	Batches      []BatchDef     `yaml:"batches"`
	Release      []string       `yaml:"release,omitempty"`
	ReleaseUnfit bool           `yaml:"release_unfit,omitempty"`
	FailPublish  []string       `yaml:"fail_publish,omitempty"`
	Expected     Expected       `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc := Scenario{Config: planner.DefaultConfig()}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
