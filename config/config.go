package config

import (
	encjson "encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/saltplan/core/metrics"
	"github.com/kilianp07/saltplan/core/planner"
	"github.com/kilianp07/saltplan/core/runlog"
	"github.com/kilianp07/saltplan/infra/mqtt"
)

// EnvPrefix marks environment variables that override file values. Nested
// keys are separated by a double underscore, e.g. SALTPLAN_SERVER__ADDR.
const EnvPrefix = "SALTPLAN_"

type Config struct {
	Planner planner.Config `json:"planner"`
	Logging LoggingConfig  `json:"logging"`
	RunLog  runlog.Config  `json:"runlog"`
	Metrics metrics.Config `json:"metrics"`
	MQTT    mqtt.Config    `json:"mqtt"`
	Sentry  SentryConfig   `json:"sentry"`
	Server  ServerConfig   `json:"server"`
}

// Load reads the file at path, applies environment overrides and defaults,
// and validates the result. An empty path yields the defaults. Planner keys
// are merged over planner.DefaultConfig, so an explicit zero is kept.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(valueProvider{v: map[string]any{"planner": planner.DefaultConfig()}}, json.Parser()); err != nil {
		return nil, fmt.Errorf("load planner defaults: %w", err)
	}
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.sectionDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Planner.SetDefaults()
	c.sectionDefaults()
}

func (c *Config) sectionDefaults() {
	c.Logging.SetDefaults()
	c.RunLog.SetDefaults()
	c.MQTT.SetDefaults()
	c.Server.SetDefaults()
}

// Validate checks every section and joins the failures.
func (c Config) Validate() error {
	var errs []error
	if err := c.Planner.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("planner: %w", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.RunLog.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("runlog: %w", err))
	}
	if err := c.MQTT.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	return errors.Join(errs...)
}

// valueProvider hands the JSON form of v to koanf.
type valueProvider struct {
	v any
}

func (p valueProvider) ReadBytes() ([]byte, error) {
	return encjson.Marshal(p.v)
}

func (p valueProvider) Read() (map[string]any, error) {
	return nil, errors.New("valueProvider requires a parser")
}
