package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/capacity"
)

// ErrInvalidConfig is returned when a planner configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid planner config")

// DefaultSuggestionLimit caps the suggestion rows kept per unplaced batch.
const DefaultSuggestionLimit = 20

// TierCapacity holds the nominal and relaxed daily capacity of one flow.
type TierCapacity struct {
	Tier1 int `json:"tier1" yaml:"tier1"`
	Tier2 int `json:"tier2" yaml:"tier2"`
}

// GroupConfig declares product codes that must enter on a shared date.
type GroupConfig struct {
	Name          string   `json:"name" yaml:"name"`
	Policy        string   `json:"policy" yaml:"policy"`
	Codes         []string `json:"codes" yaml:"codes"`
	FlagOnFailure bool     `json:"flag_on_failure" yaml:"flag_on_failure"`
}

// Config is the planner configuration. Dates are YYYY-MM-DD strings.
type Config struct {
	EntryCapacity          TierCapacity                 `json:"entry_capacity" yaml:"entry_capacity"`
	ExitCapacity           TierCapacity                 `json:"exit_capacity" yaml:"exit_capacity"`
	MaxStorageDays         int                          `json:"max_storage_days" yaml:"max_storage_days"`
	MaxStorageByProduct    map[string]int               `json:"max_storage_by_product" yaml:"max_storage_by_product"`
	StabilizationCapacity  int                          `json:"stabilization_capacity" yaml:"stabilization_capacity"`
	StabilizationOverrides map[string]int               `json:"stabilization_overrides" yaml:"stabilization_overrides"`
	EntryOverrides         map[string]capacity.Override `json:"entry_overrides" yaml:"entry_overrides"`
	ExitOverrides          map[string]capacity.Override `json:"exit_overrides" yaml:"exit_overrides"`
	Holidays               []string                     `json:"holidays" yaml:"holidays"`
	AdjustWeekends         *bool                        `json:"adjust_weekends" yaml:"adjust_weekends"`
	AdjustHolidays         *bool                        `json:"adjust_holidays" yaml:"adjust_holidays"`
	Groups                 []GroupConfig                `json:"groups" yaml:"groups"`
	SuggestionLimit        int                          `json:"suggestion_limit" yaml:"suggestion_limit"`
}

// DefaultHolidays is the plant calendar shipped with the planner.
var DefaultHolidays = []string{
	"2025-01-01", "2025-04-18", "2025-05-01", "2025-08-15", "2025-10-12", "2025-10-13",
	"2025-11-01", "2025-12-24", "2025-12-25", "2025-12-31", "2026-01-01",
}

// DefaultGroups returns the product groups scheduled on every run by default.
func DefaultGroups() []GroupConfig {
	return []GroupConfig{
		{Name: "JBSPRCLC-MEX", Policy: "unit", Codes: []string{"JBSPRCLC-MEX"}},
		{Name: "JCIVRROD-MEX", Policy: "unit", Codes: []string{"JCIVRROD-MEX"}},
		{Name: "JBCPRCLC-MEX", Policy: "unit", Codes: []string{"JBCPRCLC-MEX"}},
		{Name: "CIVRPORCISAN", Policy: "joint", Codes: []string{"JCIVRPORCISAN", "PCIVRPORCISAN"}},
	}
}

// DefaultConfig returns the configuration used by the plant when nothing is overridden.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero values with the plant defaults. Explicit false on the
// adjustment switches and an explicit empty holiday or group list are kept.
func (c *Config) SetDefaults() {
	if c.EntryCapacity == (TierCapacity{}) {
		c.EntryCapacity = TierCapacity{Tier1: 3100, Tier2: 3500}
	}
	if c.ExitCapacity == (TierCapacity{}) {
		c.ExitCapacity = TierCapacity{Tier1: 3100, Tier2: 3500}
	}
	if c.MaxStorageDays == 0 {
		c.MaxStorageDays = 5
	}
	if c.StabilizationCapacity == 0 {
		c.StabilizationCapacity = 4700
	}
	if c.Holidays == nil {
		c.Holidays = append([]string(nil), DefaultHolidays...)
	}
	if c.AdjustWeekends == nil {
		v := true
		c.AdjustWeekends = &v
	}
	if c.AdjustHolidays == nil {
		v := true
		c.AdjustHolidays = &v
	}
	if c.Groups == nil {
		c.Groups = DefaultGroups()
	}
	if c.SuggestionLimit == 0 {
		c.SuggestionLimit = DefaultSuggestionLimit
	}
}

// Validate checks the configuration without building it.
func (c Config) Validate() error {
	_, err := c.build()
	return err
}

// settings is the parsed, ready-to-use form of Config.
type settings struct {
	cal          *calendar.Calendar
	policy       capacity.Policy
	maxStorage   int
	maxByProduct map[string]int
	rule         ExitRule
	groups       []Group
	limit        int
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func (c Config) build() (settings, error) {
	var s settings
	if c.EntryCapacity.Tier1 < 0 || c.EntryCapacity.Tier2 < 0 {
		return s, invalid("entry capacity must not be negative")
	}
	if c.ExitCapacity.Tier1 < 0 || c.ExitCapacity.Tier2 < 0 {
		return s, invalid("exit capacity must not be negative")
	}
	if c.MaxStorageDays < 0 {
		return s, invalid("max_storage_days must not be negative")
	}
	if c.StabilizationCapacity < 0 {
		return s, invalid("stabilization_capacity must not be negative")
	}
	if c.SuggestionLimit < 0 {
		return s, invalid("suggestion_limit must not be negative")
	}
	for code, v := range c.MaxStorageByProduct {
		if v < 0 {
			return s, invalid("max_storage_by_product[%s] must not be negative", code)
		}
	}

	holidays := make([]time.Time, 0, len(c.Holidays))
	for _, h := range c.Holidays {
		d, err := calendar.Parse(h)
		if err != nil {
			return s, invalid("holiday %q: %v", h, err)
		}
		holidays = append(holidays, d)
	}
	s.cal = calendar.New(holidays)

	entryOv, err := parseOverrides("entry_overrides", c.EntryOverrides)
	if err != nil {
		return s, err
	}
	exitOv, err := parseOverrides("exit_overrides", c.ExitOverrides)
	if err != nil {
		return s, err
	}
	stabOv := make(map[time.Time]int, len(c.StabilizationOverrides))
	for k, v := range c.StabilizationOverrides {
		d, err := calendar.Parse(k)
		if err != nil {
			return s, invalid("stabilization_overrides key %q: %v", k, err)
		}
		stabOv[d] = v
	}
	s.policy = capacity.Policy{
		Entry:                  capacity.Flow{Tier1: c.EntryCapacity.Tier1, Tier2: c.EntryCapacity.Tier2, Overrides: entryOv},
		Exit:                   capacity.Flow{Tier1: c.ExitCapacity.Tier1, Tier2: c.ExitCapacity.Tier2, Overrides: exitOv},
		Stabilization:          c.StabilizationCapacity,
		StabilizationOverrides: stabOv,
	}

	s.maxStorage = c.MaxStorageDays
	s.maxByProduct = make(map[string]int, len(c.MaxStorageByProduct))
	for code, v := range c.MaxStorageByProduct {
		s.maxByProduct[code] = v
	}
	s.rule = ExitRule{
		Calendar:       s.cal,
		AdjustWeekends: c.AdjustWeekends == nil || *c.AdjustWeekends,
		AdjustHolidays: c.AdjustHolidays == nil || *c.AdjustHolidays,
	}

	for i, gc := range c.Groups {
		g, err := gc.group()
		if err != nil {
			return s, invalid("groups[%d]: %v", i, err)
		}
		s.groups = append(s.groups, g)
	}

	s.limit = c.SuggestionLimit
	if s.limit == 0 {
		s.limit = DefaultSuggestionLimit
	}
	return s, nil
}

func parseOverrides(name string, in map[string]capacity.Override) (map[time.Time]capacity.Override, error) {
	out := make(map[time.Time]capacity.Override, len(in))
	for k, v := range in {
		d, err := calendar.Parse(k)
		if err != nil {
			return nil, invalid("%s key %q: %v", name, k, err)
		}
		out[d] = v
	}
	return out, nil
}

func (gc GroupConfig) group() (Group, error) {
	policy, err := ParseGroupPolicy(gc.Policy)
	if err != nil {
		return Group{}, err
	}
	if len(gc.Codes) == 0 {
		return Group{}, fmt.Errorf("group %q has no product codes", gc.Name)
	}
	name := gc.Name
	if name == "" {
		name = strings.Join(gc.Codes, "+")
	}
	return Group{
		Name:          name,
		Policy:        policy,
		Codes:         append([]string(nil), gc.Codes...),
		FlagOnFailure: gc.FlagOnFailure,
	}, nil
}

// LoadConfig loads a planner Config from a JSON or YAML file. Keys absent from
// the file keep their default value.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "yaml", "yml", "json":
		return DecodeConfig(f, ext)
	default:
		return Config{}, fmt.Errorf("unsupported config format: .%s", ext)
	}
}

// DecodeConfig reads from r to decode a planner Config on top of the defaults.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	cfg := DefaultConfig()
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, err
		}
	case "json":
		dec := json.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	return cfg, cfg.Validate()
}
