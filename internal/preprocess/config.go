package preprocess

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Enhancement pass names, applied in the configured order.
const (
	PassOriginal = "original"
	PassContrast = "contrast"
	PassDenoise  = "denoise"
	PassUpscale  = "upscale"
	// PassTextLayer tags fragments read from an embedded PDF text layer.
	PassTextLayer = "text-layer"
)

// Config tunes rasterization and the enhancement passes.
type Config struct {
	DPI              int      `toml:"dpi"`
	MinTextChars     int      `toml:"min_text_chars"`
	DisableTextLayer bool     `toml:"disable_text_layer"`
	Passes           []string `toml:"passes"`
	MaxPixels        int      `toml:"max_pixels"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	DPI              string
	MinTextChars     string
	DisableTextLayer string
	Passes           string
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
	if overlay.DPI != 0 {
		c.DPI = overlay.DPI
	}
	if overlay.MinTextChars != 0 {
		c.MinTextChars = overlay.MinTextChars
	}
	if overlay.DisableTextLayer {
		c.DisableTextLayer = true
	}
	if len(overlay.Passes) > 0 {
		c.Passes = overlay.Passes
	}
	if overlay.MaxPixels != 0 {
		c.MaxPixels = overlay.MaxPixels
	}
}

func (c *Config) loadDefaults() {
	if c.DPI == 0 {
		c.DPI = 300
	}
	if c.MinTextChars == 0 {
		c.MinTextChars = 20
	}
	if len(c.Passes) == 0 {
		c.Passes = []string{PassOriginal, PassContrast, PassDenoise, PassUpscale}
	}
	if c.MaxPixels == 0 {
		c.MaxPixels = 60_000_000
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.DPI != "" {
		if v := os.Getenv(env.DPI); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.DPI = n
			}
		}
	}
	if env.MinTextChars != "" {
		if v := os.Getenv(env.MinTextChars); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MinTextChars = n
			}
		}
	}
	if env.DisableTextLayer != "" {
		if v := os.Getenv(env.DisableTextLayer); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.DisableTextLayer = b
			}
		}
	}
	if env.Passes != "" {
		if v := os.Getenv(env.Passes); v != "" {
			var passes []string
			for p := range strings.SplitSeq(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					passes = append(passes, p)
				}
			}
			c.Passes = passes
		}
	}
}

func (c *Config) validate() error {
	if c.DPI < 72 || c.DPI > 1200 {
		return fmt.Errorf("dpi must be between 72 and 1200")
	}
	if c.MinTextChars < 1 {
		return fmt.Errorf("min_text_chars must be positive")
	}
	if len(c.Passes) == 0 {
		return fmt.Errorf("at least one pass required")
	}
	for _, p := range c.Passes {
		switch p {
		case PassOriginal, PassContrast, PassDenoise, PassUpscale:
		default:
			return fmt.Errorf("unknown pass %q", p)
		}
	}
	if c.MaxPixels < 1 {
		return fmt.Errorf("max_pixels must be positive")
	}
	return nil
}
