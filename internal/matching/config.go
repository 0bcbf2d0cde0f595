package matching

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the score thresholds that drive match classification.
type Config struct {
	ConsiderScore   int `toml:"consider_score"`
	ExactScore      int `toml:"exact_score"`
	AmbiguityMargin int `toml:"ambiguity_margin"`
	MaxCandidates   int `toml:"max_candidates"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ConsiderScore   string
	ExactScore      string
	AmbiguityMargin string
	MaxCandidates   string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ConsiderScore != 0 {
		c.ConsiderScore = overlay.ConsiderScore
	}
	if overlay.ExactScore != 0 {
		c.ExactScore = overlay.ExactScore
	}
	if overlay.AmbiguityMargin != 0 {
		c.AmbiguityMargin = overlay.AmbiguityMargin
	}
	if overlay.MaxCandidates != 0 {
		c.MaxCandidates = overlay.MaxCandidates
	}
}

func (c *Config) loadDefaults() {
	if c.ConsiderScore == 0 {
		c.ConsiderScore = 85
	}
	if c.ExactScore == 0 {
		c.ExactScore = 95
	}
	if c.AmbiguityMargin == 0 {
		c.AmbiguityMargin = 3
	}
	if c.MaxCandidates == 0 {
		c.MaxCandidates = 3
	}
}

func (c *Config) loadEnv(env *Env) {
	setInt(env.ConsiderScore, &c.ConsiderScore)
	setInt(env.ExactScore, &c.ExactScore)
	setInt(env.AmbiguityMargin, &c.AmbiguityMargin)
	setInt(env.MaxCandidates, &c.MaxCandidates)
}

func (c *Config) validate() error {
	if c.ConsiderScore < 1 || c.ConsiderScore > 100 {
		return fmt.Errorf("consider_score must be within 1..100")
	}
	if c.ExactScore < c.ConsiderScore || c.ExactScore > 100 {
		return fmt.Errorf("exact_score must be within consider_score..100")
	}
	if c.AmbiguityMargin < 0 {
		return fmt.Errorf("ambiguity_margin cannot be negative")
	}
	if c.MaxCandidates < 1 {
		return fmt.Errorf("max_candidates must be positive")
	}
	return nil
}

func setInt(name string, dst *int) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
