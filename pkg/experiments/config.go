// Package experiments drives reproducible cooperative-routing runs: yaml run
// configuration, query file I/O, static-vs-cooperative comparisons and
// ledger storage evaluation.
package experiments

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/azybler/coop_router/pkg/cch"
	"github.com/azybler/coop_router/pkg/graph"
	"github.com/azybler/coop_router/pkg/ledger"
	"github.com/azybler/coop_router/pkg/potential"
)

// Potential kinds accepted in a run config.
const (
	KindZero        = "zero"
	KindHierarchy   = "hierarchy"
	KindMultiMetric = "multimetric"
	KindCorridor    = "corridor"
)

// PenaltyConfig selects the congestion function parameters.
type PenaltyConfig struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
}

// PotentialConfig selects the goal-direction provider.
type PotentialConfig struct {
	Kind             string  `yaml:"kind"`
	Metrics          int     `yaml:"metrics"`            // multimetric interval count
	CorridorWidthMin uint32  `yaml:"corridor_width_min"` // corridor slack in minutes
	MaxSpeedKmh      float64 `yaml:"max_speed_kmh"`      // corridor geodesic fallback speed
}

// Config is one experiment run, loadable from yaml.
type Config struct {
	GraphPath   string `yaml:"graph"`
	QueriesPath string `yaml:"queries"`

	NumBuckets     uint32 `yaml:"num_buckets"`
	MaxLiveBuckets int    `yaml:"max_live_buckets"`
	Workers        int    `yaml:"workers"`

	Penalty   PenaltyConfig   `yaml:"penalty"`
	Potential PotentialConfig `yaml:"potential"`
}

// DefaultConfig returns a config with the standard knob settings: hourly
// buckets, BPR(1, 2), hierarchy potential, one worker.
func DefaultConfig() Config {
	return Config{
		NumBuckets: ledger.DefaultNumBuckets,
		Workers:    1,
		Penalty:    PenaltyConfig{Alpha: 1, Beta: 2},
		Potential: PotentialConfig{
			Kind:             KindHierarchy,
			Metrics:          4,
			CorridorWidthMin: potential.DefaultCorridorWidthMin,
			MaxSpeedKmh:      potential.DefaultMaxSpeedKmh,
		},
	}
}

// LoadConfig reads a yaml run config, filling unset fields with defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects knob combinations no run could use.
func (c Config) Validate() error {
	switch c.Potential.Kind {
	case KindZero, KindHierarchy, KindMultiMetric, KindCorridor:
	default:
		return fmt.Errorf("unknown potential kind %q", c.Potential.Kind)
	}
	if c.Potential.Kind == KindMultiMetric && c.Potential.Metrics < 1 {
		return fmt.Errorf("multimetric needs at least 1 metric, got %d", c.Potential.Metrics)
	}
	if c.NumBuckets == 0 || graph.DayMs%c.NumBuckets != 0 {
		return fmt.Errorf("%d buckets do not divide the day evenly", c.NumBuckets)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// NewLedger builds the ledger this config describes.
func (c Config) NewLedger(g *graph.Graph) (*ledger.Ledger, error) {
	return ledger.New(g, ledger.Options{
		NumBuckets:     c.NumBuckets,
		Penalty:        ledger.BPRPenalty(c.Penalty.Alpha, c.Penalty.Beta),
		MaxLiveBuckets: c.MaxLiveBuckets,
	})
}

// Prepare builds the configured potential provider over a customized
// hierarchy.
func (c Config) Prepare(topo *cch.Topology, g *graph.Graph) (potential.Prepared, error) {
	switch c.Potential.Kind {
	case KindZero:
		return potential.PreparedZero{}, nil
	case KindHierarchy:
		return potential.PrepareHierarchy(topo, g)
	case KindMultiMetric:
		return potential.PrepareMultiMetric(topo, g, c.Potential.Metrics)
	case KindCorridor:
		return potential.PrepareCorridor(topo, g, c.Potential.CorridorWidthMin, c.Potential.MaxSpeedKmh)
	default:
		return nil, fmt.Errorf("unknown potential kind %q", c.Potential.Kind)
	}
}
