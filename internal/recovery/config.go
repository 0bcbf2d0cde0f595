package recovery

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config selects and tunes the OCR engine.
type Config struct {
	Engine   string `toml:"engine"`
	Binary   string `toml:"binary"`
	Language string `toml:"language"`
	PSM      int    `toml:"psm"`
	OEM      int    `toml:"oem"`
	Timeout  string `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Engine   string
	Binary   string
	Language string
	PSM      string
	Timeout  string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
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
	if overlay.Engine != "" {
		c.Engine = overlay.Engine
	}
	if overlay.Binary != "" {
		c.Binary = overlay.Binary
	}
	if overlay.Language != "" {
		c.Language = overlay.Language
	}
	if overlay.PSM != 0 {
		c.PSM = overlay.PSM
	}
	if overlay.OEM != 0 {
		c.OEM = overlay.OEM
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Engine == "" {
		c.Engine = EngineTesseract
	}
	if c.Binary == "" {
		c.Binary = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.PSM == 0 {
		c.PSM = 6
	}
	if c.OEM == 0 {
		c.OEM = 3
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Engine != "" {
		if v := os.Getenv(env.Engine); v != "" {
			c.Engine = v
		}
	}
	if env.Binary != "" {
		if v := os.Getenv(env.Binary); v != "" {
			c.Binary = v
		}
	}
	if env.Language != "" {
		if v := os.Getenv(env.Language); v != "" {
			c.Language = v
		}
	}
	if env.PSM != "" {
		if v := os.Getenv(env.PSM); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.PSM = n
			}
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Engine {
	case EngineTesseract, EngineGosseract:
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	if c.PSM < 0 || c.PSM > 13 {
		return fmt.Errorf("psm must be between 0 and 13")
	}
	if c.OEM < 0 || c.OEM > 3 {
		return fmt.Errorf("oem must be between 0 and 3")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
