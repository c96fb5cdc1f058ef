// Package config loads the detector's YAML configuration: thresholds,
// weights, bloom sizing, candidate limits, and cache sizing.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/prsense-labs/prsense/internal/ranker"
)

// Config captures every recognized configuration option.
type Config struct {
	DuplicateThreshold float64 `yaml:"duplicate_threshold"`
	PossibleThreshold  float64 `yaml:"possible_threshold"`

	Weights struct {
		Text float64 `yaml:"text"`
		Diff float64 `yaml:"diff"`
		File float64 `yaml:"file"`
	} `yaml:"weights"`

	BloomFilterSize uint64 `yaml:"bloom_filter_size"`
	MaxCandidates   int    `yaml:"max_candidates"`

	EnableCache bool `yaml:"enable_cache"`
	CacheSize   int  `yaml:"cache_size"`

	RepoID string `yaml:"repo_id"`
}

// Default returns a Config populated with the detector's documented
// defaults.
func Default() Config {
	var c Config
	t := ranker.DefaultThresholds()
	c.DuplicateThreshold = t.Duplicate
	c.PossibleThreshold = t.Possible

	w := ranker.DefaultWeights()
	c.Weights.Text = w.Text
	c.Weights.Diff = w.Diff
	c.Weights.File = w.File

	c.BloomFilterSize = 8192
	c.MaxCandidates = 20
	c.EnableCache = true
	c.CacheSize = 1000
	return c
}

// Load reads and parses a YAML configuration file at path, starting
// from Default() so any option the file omits keeps its default value.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Thresholds extracts the ranker.Thresholds view of this config.
func (c Config) Thresholds() ranker.Thresholds {
	return ranker.Thresholds{Duplicate: c.DuplicateThreshold, Possible: c.PossibleThreshold}
}

// RankerWeights extracts the ranker.Weights view of this config.
func (c Config) RankerWeights() ranker.Weights {
	return ranker.Weights{Text: c.Weights.Text, Diff: c.Weights.Diff, File: c.Weights.File}
}

// Validate checks cross-field invariants: threshold ordering, weight
// validity, and sane sizing.
func (c Config) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if err := c.RankerWeights().Validate(); err != nil {
		return err
	}
	if c.BloomFilterSize < 64 || c.BloomFilterSize > (1<<26) {
		return fmt.Errorf("config: bloom_filter_size must be in [64, 2^26], got %d", c.BloomFilterSize)
	}
	if c.MaxCandidates < 1 {
		return fmt.Errorf("config: max_candidates must be positive, got %d", c.MaxCandidates)
	}
	if c.EnableCache && c.CacheSize < 1 {
		return fmt.Errorf("config: cache_size must be positive when enable_cache is true, got %d", c.CacheSize)
	}
	return nil
}
