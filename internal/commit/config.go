package commit

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/manifest/internal/roster"
)

// Config controls routing and the guest record layout.
type Config struct {
	Cutoff          string `toml:"cutoff"`
	ArrivalColumn   string `toml:"arrival_column"`
	DepartureColumn string `toml:"departure_column"`
	Slots           int    `toml:"slots"`
	DateFormat      string `toml:"date_format"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Cutoff          string
	ArrivalColumn   string
	DepartureColumn string
	Slots           string
	DateFormat      string
}

// CutoffDate returns Cutoff as a UTC calendar day.
func (c *Config) CutoffDate() time.Time {
	t, _ := time.Parse(time.DateOnly, c.Cutoff)
	return t
}

// Layout returns the guest record block layout.
func (c *Config) Layout() roster.Layout {
	return roster.Layout{
		ArrivalColumn:   c.ArrivalColumn,
		DepartureColumn: c.DepartureColumn,
		Slots:           c.Slots,
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
	if overlay.Cutoff != "" {
		c.Cutoff = overlay.Cutoff
	}
	if overlay.ArrivalColumn != "" {
		c.ArrivalColumn = overlay.ArrivalColumn
	}
	if overlay.DepartureColumn != "" {
		c.DepartureColumn = overlay.DepartureColumn
	}
	if overlay.Slots != 0 {
		c.Slots = overlay.Slots
	}
	if overlay.DateFormat != "" {
		c.DateFormat = overlay.DateFormat
	}
}

func (c *Config) loadDefaults() {
	if c.Cutoff == "" {
		c.Cutoff = "2026-02-13"
	}
	if c.ArrivalColumn == "" {
		c.ArrivalColumn = "I"
	}
	if c.DepartureColumn == "" {
		c.DepartureColumn = "AE"
	}
	if c.Slots == 0 {
		c.Slots = 1
	}
	if c.DateFormat == "" {
		c.DateFormat = "01/02/06"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Cutoff != "" {
		if v := os.Getenv(env.Cutoff); v != "" {
			c.Cutoff = v
		}
	}
	if env.ArrivalColumn != "" {
		if v := os.Getenv(env.ArrivalColumn); v != "" {
			c.ArrivalColumn = v
		}
	}
	if env.DepartureColumn != "" {
		if v := os.Getenv(env.DepartureColumn); v != "" {
			c.DepartureColumn = v
		}
	}
	if env.Slots != "" {
		if v := os.Getenv(env.Slots); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Slots = n
			}
		}
	}
	if env.DateFormat != "" {
		if v := os.Getenv(env.DateFormat); v != "" {
			c.DateFormat = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.Parse(time.DateOnly, c.Cutoff); err != nil {
		return fmt.Errorf("invalid cutoff: %w", err)
	}
	if err := c.Layout().Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	return nil
}
