package retry

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds backoff settings for calls to external collaborators.
type Config struct {
	MaxRetries      int     `toml:"max_retries"`
	InitialInterval string  `toml:"initial_interval"`
	MaxInterval     string  `toml:"max_interval"`
	Multiplier      float64 `toml:"multiplier"`
	MaxElapsedTime  string  `toml:"max_elapsed_time"`
	DisableJitter   bool    `toml:"disable_jitter"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxRetries      string
	InitialInterval string
	MaxInterval     string
	Multiplier      string
	MaxElapsedTime  string
}

// InitialIntervalDuration returns InitialInterval as a time.Duration.
func (c *Config) InitialIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.InitialInterval)
	return d
}

// MaxIntervalDuration returns MaxInterval as a time.Duration.
func (c *Config) MaxIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxInterval)
	return d
}

// MaxElapsedTimeDuration returns MaxElapsedTime as a time.Duration.
func (c *Config) MaxElapsedTimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxElapsedTime)
	return d
}

// Policy converts the finalized config into a runtime Policy.
func (c *Config) Policy() Policy {
	return Policy{
		MaxRetries:      c.MaxRetries,
		InitialInterval: c.InitialIntervalDuration(),
		MaxInterval:     c.MaxIntervalDuration(),
		Multiplier:      c.Multiplier,
		MaxElapsedTime:  c.MaxElapsedTimeDuration(),
		Jitter:          !c.DisableJitter,
	}
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
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.InitialInterval != "" {
		c.InitialInterval = overlay.InitialInterval
	}
	if overlay.MaxInterval != "" {
		c.MaxInterval = overlay.MaxInterval
	}
	if overlay.Multiplier != 0 {
		c.Multiplier = overlay.Multiplier
	}
	if overlay.MaxElapsedTime != "" {
		c.MaxElapsedTime = overlay.MaxElapsedTime
	}
	if overlay.DisableJitter {
		c.DisableJitter = true
	}
}

func (c *Config) loadDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialInterval == "" {
		c.InitialInterval = "1s"
	}
	if c.MaxInterval == "" {
		c.MaxInterval = "30s"
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.MaxElapsedTime == "" {
		c.MaxElapsedTime = "2m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxRetries != "" {
		if v := os.Getenv(env.MaxRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxRetries = n
			}
		}
	}
	if env.InitialInterval != "" {
		if v := os.Getenv(env.InitialInterval); v != "" {
			c.InitialInterval = v
		}
	}
	if env.MaxInterval != "" {
		if v := os.Getenv(env.MaxInterval); v != "" {
			c.MaxInterval = v
		}
	}
	if env.Multiplier != "" {
		if v := os.Getenv(env.Multiplier); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Multiplier = f
			}
		}
	}
	if env.MaxElapsedTime != "" {
		if v := os.Getenv(env.MaxElapsedTime); v != "" {
			c.MaxElapsedTime = v
		}
	}
}

func (c *Config) validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("multiplier must be at least 1")
	}
	if _, err := time.ParseDuration(c.InitialInterval); err != nil {
		return fmt.Errorf("invalid initial_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.MaxInterval); err != nil {
		return fmt.Errorf("invalid max_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.MaxElapsedTime); err != nil {
		return fmt.Errorf("invalid max_elapsed_time: %w", err)
	}
	return nil
}
