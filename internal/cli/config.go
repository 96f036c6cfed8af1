package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wander/internal/strategy"
)

// RunConfig describes one exploration run: the SUT endpoint, the
// journey directory, the backing systems to checkpoint, and the
// exploration limits.
type RunConfig struct {
	API         APIConfig         `yaml:"api"`
	Journeys    string            `yaml:"journeys"`
	Systems     []SystemConfig    `yaml:"systems"`
	Exploration ExplorationConfig `yaml:"exploration"`
}

// APIConfig locates the system under test.
type APIConfig struct {
	BaseURL string            `yaml:"base_url"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// SystemConfig declares one backing system to register with the World.
type SystemConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // sqlite | kv | queue | mailbox | clock

	// Path is the SQLite database file. sqlite only.
	Path string `yaml:"path,omitempty"`

	// Tables lists the tables observed and restored. sqlite only.
	Tables []string `yaml:"tables,omitempty"`

	// Mode selects the sqlite rollback discipline: "snapshot" (default,
	// any rollback order) or "savepoint" (cheap, DFS only).
	Mode string `yaml:"mode,omitempty"`

	// Start is the virtual clock start in RFC 3339. clock only.
	Start string `yaml:"start,omitempty"`
}

// ExplorationConfig bounds the run.
type ExplorationConfig struct {
	Strategy       string             `yaml:"strategy,omitempty"`
	Seed           int64              `yaml:"seed,omitempty"`
	MaxSteps       int                `yaml:"max_steps,omitempty"`
	CoverageTarget float64            `yaml:"coverage_target,omitempty"` // percent, 0 disables
	Shrink         *bool              `yaml:"shrink,omitempty"`          // default true
	Weights        map[string]float64 `yaml:"weights,omitempty"`
}

var systemTypes = map[string]bool{
	"sqlite":  true,
	"kv":      true,
	"queue":   true,
	"mailbox": true,
	"clock":   true,
}

// LoadConfig reads and validates a run configuration. Unknown YAML
// fields are rejected so typos fail loudly.
func LoadConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg RunConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RunConfig) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Journeys == "" {
		return fmt.Errorf("journeys directory is required")
	}
	if len(c.Systems) == 0 {
		return fmt.Errorf("at least one system is required")
	}

	seen := make(map[string]bool, len(c.Systems))
	for i, sys := range c.Systems {
		if sys.Name == "" {
			return fmt.Errorf("systems[%d]: name is required", i)
		}
		if seen[sys.Name] {
			return fmt.Errorf("systems[%d]: duplicate name %q", i, sys.Name)
		}
		seen[sys.Name] = true
		if !systemTypes[sys.Type] {
			return fmt.Errorf("systems[%d]: unknown type %q", i, sys.Type)
		}
		if sys.Type == "sqlite" {
			if sys.Path == "" {
				return fmt.Errorf("systems[%d]: sqlite systems need a path", i)
			}
			if len(sys.Tables) == 0 {
				return fmt.Errorf("systems[%d]: sqlite systems need tables", i)
			}
			switch sys.Mode {
			case "", "snapshot", "savepoint":
			default:
				return fmt.Errorf("systems[%d]: unknown mode %q", i, sys.Mode)
			}
		}
	}

	if s := c.Exploration.Strategy; s != "" {
		if _, err := strategy.New(s, 0, nil); err != nil {
			return err
		}
	}
	if t := c.Exploration.CoverageTarget; t < 0 || t > 100 {
		return fmt.Errorf("exploration.coverage_target must be within [0, 100]")
	}
	return nil
}

// strategyName returns the configured strategy, defaulting to coverage.
func (c *RunConfig) strategyName() string {
	if c.Exploration.Strategy == "" {
		return "coverage"
	}
	return c.Exploration.Strategy
}

// shrinkEnabled defaults to true.
func (c *RunConfig) shrinkEnabled() bool {
	return c.Exploration.Shrink == nil || *c.Exploration.Shrink
}
