package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	EnvLogFormat = "MANIFEST_LOG_FORMAT"
	EnvLogLevel  = "MANIFEST_LOG_LEVEL"
)

// LogConfig selects the slog handler. Text suits terminals; json suits
// Cloud Functions and other collectors that parse structured lines.
type LogConfig struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// NewLogger builds a logger writing to w.
func (c *LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LogConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *LogConfig) Merge(overlay *LogConfig) {
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
}

func (c *LogConfig) level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func (c *LogConfig) loadDefaults() {
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Level == "" {
		c.Level = "info"
	}
}

func (c *LogConfig) loadEnv() {
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Format = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Level = v
	}
}

func (c *LogConfig) validate() error {
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("format must be text or json, got %q", c.Format)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	return nil
}

// DefaultLogger writes text at info level to stderr.
func DefaultLogger() *slog.Logger {
	c := LogConfig{}
	c.loadDefaults()
	return c.NewLogger(os.Stderr)
}
