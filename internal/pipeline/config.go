package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config bounds ingestion concurrency. ClaimTimeout is how long a registry
// claim on a file holds before another run may take the file over; it must
// exceed FileTimeout.
type Config struct {
	Workers      int    `toml:"workers"`
	FileTimeout  string `toml:"file_timeout"`
	ClaimTimeout string `toml:"claim_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Workers      string
	FileTimeout  string
	ClaimTimeout string
}

// FileTimeoutDuration returns FileTimeout as a time.Duration.
func (c *Config) FileTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.FileTimeout)
	return d
}

// ClaimTimeoutDuration returns ClaimTimeout as a time.Duration.
func (c *Config) ClaimTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ClaimTimeout)
	return d
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
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.FileTimeout != "" {
		c.FileTimeout = overlay.FileTimeout
	}
	if overlay.ClaimTimeout != "" {
		c.ClaimTimeout = overlay.ClaimTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.FileTimeout == "" {
		c.FileTimeout = "5m"
	}
	if c.ClaimTimeout == "" {
		c.ClaimTimeout = "30m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Workers = n
			}
		}
	}
	if env.FileTimeout != "" {
		if v := os.Getenv(env.FileTimeout); v != "" {
			c.FileTimeout = v
		}
	}
	if env.ClaimTimeout != "" {
		if v := os.Getenv(env.ClaimTimeout); v != "" {
			c.ClaimTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	d, err := time.ParseDuration(c.FileTimeout)
	if err != nil {
		return fmt.Errorf("invalid file_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("file_timeout must be positive")
	}
	claim, err := time.ParseDuration(c.ClaimTimeout)
	if err != nil {
		return fmt.Errorf("invalid claim_timeout: %w", err)
	}
	if claim <= d {
		return fmt.Errorf("claim_timeout must exceed file_timeout")
	}
	return nil
}
