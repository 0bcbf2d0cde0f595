package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/manifest/internal/commit"
	"github.com/JaimeStill/manifest/internal/matching"
	"github.com/JaimeStill/manifest/internal/pipeline"
	"github.com/JaimeStill/manifest/internal/pnr"
	"github.com/JaimeStill/manifest/internal/preprocess"
	"github.com/JaimeStill/manifest/internal/recovery"
	"github.com/JaimeStill/manifest/pkg/auth"
	"github.com/JaimeStill/manifest/pkg/database"
	"github.com/JaimeStill/manifest/pkg/retry"
	"github.com/JaimeStill/manifest/pkg/sheets"
	"github.com/JaimeStill/manifest/pkg/source"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvManifestEnv             = "MANIFEST_ENV"
	EnvManifestConfig          = "MANIFEST_CONFIG"
	EnvManifestShutdownTimeout = "MANIFEST_SHUTDOWN_TIMEOUT"
	EnvManifestVersion         = "MANIFEST_VERSION"
	EnvManifestPersistence     = "MANIFEST_PERSISTENCE"
)

// Persistence backends for the ingestion registry and commit ledger.
const (
	PersistencePostgres = "postgres"
	PersistenceMemory   = "memory"
)

var databaseEnv = &database.Env{
	Host:            "MANIFEST_DB_HOST",
	Port:            "MANIFEST_DB_PORT",
	Name:            "MANIFEST_DB_NAME",
	User:            "MANIFEST_DB_USER",
	Password:        "MANIFEST_DB_PASSWORD",
	SSLMode:         "MANIFEST_DB_SSL_MODE",
	MaxOpenConns:    "MANIFEST_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "MANIFEST_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "MANIFEST_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "MANIFEST_DB_CONN_TIMEOUT",
}

var sourceEnv = &source.Env{
	Backend:           "MANIFEST_SOURCE_BACKEND",
	ContainerName:     "MANIFEST_SOURCE_CONTAINER_NAME",
	ConnectionString:  "MANIFEST_SOURCE_CONNECTION_STRING",
	AccountURL:        "MANIFEST_SOURCE_ACCOUNT_URL",
	InboxFolderID:     "MANIFEST_SOURCE_INBOX_FOLDER_ID",
	ProcessedFolderID: "MANIFEST_SOURCE_PROCESSED_FOLDER_ID",
	CredentialsFile:   "MANIFEST_SOURCE_CREDENTIALS_FILE",
	Bucket:            "MANIFEST_SOURCE_BUCKET",
	Dir:               "MANIFEST_SOURCE_DIR",
}

var sheetsEnv = &sheets.Env{
	Backend:         "MANIFEST_SHEETS_BACKEND",
	SpreadsheetID:   "MANIFEST_SHEETS_SPREADSHEET_ID",
	CredentialsFile: "MANIFEST_SHEETS_CREDENTIALS_FILE",
	XLSXPath:        "MANIFEST_SHEETS_XLSX_PATH",
	TicketSheet:     "MANIFEST_SHEETS_TICKET_SHEET",
	MasterSheet:     "MANIFEST_SHEETS_MASTER_SHEET",
}

var ocrEnv = &recovery.Env{
	Engine:   "MANIFEST_OCR_ENGINE",
	Binary:   "MANIFEST_OCR_BINARY",
	Language: "MANIFEST_OCR_LANGUAGE",
	PSM:      "MANIFEST_OCR_PSM",
	Timeout:  "MANIFEST_OCR_TIMEOUT",
}

var preprocessEnv = &preprocess.Env{
	DPI:              "MANIFEST_PREPROCESS_DPI",
	MinTextChars:     "MANIFEST_PREPROCESS_MIN_TEXT_CHARS",
	DisableTextLayer: "MANIFEST_PREPROCESS_DISABLE_TEXT_LAYER",
	Passes:           "MANIFEST_PREPROCESS_PASSES",
}

var pnrEnv = &pnr.Env{
	BaseURL: "MANIFEST_PNR_BASE_URL",
	Host:    "MANIFEST_PNR_HOST",
	APIKey:  "MANIFEST_PNR_API_KEY",
	Timeout: "MANIFEST_PNR_TIMEOUT",
}

var matchingEnv = &matching.Env{
	ConsiderScore:   "MANIFEST_MATCHING_CONSIDER_SCORE",
	ExactScore:      "MANIFEST_MATCHING_EXACT_SCORE",
	AmbiguityMargin: "MANIFEST_MATCHING_AMBIGUITY_MARGIN",
	MaxCandidates:   "MANIFEST_MATCHING_MAX_CANDIDATES",
}

var commitEnv = &commit.Env{
	Cutoff:          "MANIFEST_COMMIT_CUTOFF",
	ArrivalColumn:   "MANIFEST_COMMIT_ARRIVAL_COLUMN",
	DepartureColumn: "MANIFEST_COMMIT_DEPARTURE_COLUMN",
	Slots:           "MANIFEST_COMMIT_SLOTS",
	DateFormat:      "MANIFEST_COMMIT_DATE_FORMAT",
}

var pipelineEnv = &pipeline.Env{
	Workers:      "MANIFEST_PIPELINE_WORKERS",
	FileTimeout:  "MANIFEST_PIPELINE_FILE_TIMEOUT",
	ClaimTimeout: "MANIFEST_PIPELINE_CLAIM_TIMEOUT",
}

var retryEnv = &retry.Env{
	MaxRetries:      "MANIFEST_RETRY_MAX_RETRIES",
	InitialInterval: "MANIFEST_RETRY_INITIAL_INTERVAL",
	MaxInterval:     "MANIFEST_RETRY_MAX_INTERVAL",
	Multiplier:      "MANIFEST_RETRY_MULTIPLIER",
	MaxElapsedTime:  "MANIFEST_RETRY_MAX_ELAPSED_TIME",
}

var authEnv = &auth.Env{
	Issuer:   "MANIFEST_AUTH_ISSUER",
	Audience: "MANIFEST_AUTH_AUDIENCE",
}

// Config is the root configuration for the Manifest service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Source          source.Config     `toml:"source"`
	Sheets          sheets.Config     `toml:"sheets"`
	OCR             recovery.Config   `toml:"ocr"`
	Preprocess      preprocess.Config `toml:"preprocess"`
	PNR             pnr.Config        `toml:"pnr"`
	Matching        matching.Config   `toml:"matching"`
	Commit          commit.Config     `toml:"commit"`
	Pipeline        pipeline.Config   `toml:"pipeline"`
	Retry           retry.Config      `toml:"retry"`
	Auth            auth.Config       `toml:"auth"`
	API             APIConfig         `toml:"api"`
	Log             LogConfig         `toml:"log"`
	Persistence     string            `toml:"persistence"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the MANIFEST_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvManifestEnv); env != "" {
		return env
	}
	return "local"
}

// UsesDatabase reports whether the registry and ledger live in Postgres.
func (c *Config) UsesDatabase() bool {
	return c.Persistence == PersistencePostgres
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration. MANIFEST_CONFIG names an alternate base
// file.
func Load() (*Config, error) {
	cfg := &Config{}

	base := BaseConfigFile
	if v := os.Getenv(EnvManifestConfig); v != "" {
		base = v
	}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.Persistence != "" {
		c.Persistence = overlay.Persistence
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Source.Merge(&overlay.Source)
	c.Sheets.Merge(&overlay.Sheets)
	c.OCR.Merge(&overlay.OCR)
	c.Preprocess.Merge(&overlay.Preprocess)
	c.PNR.Merge(&overlay.PNR)
	c.Matching.Merge(&overlay.Matching)
	c.Commit.Merge(&overlay.Commit)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Retry.Merge(&overlay.Retry)
	c.Auth.Merge(&overlay.Auth)
	c.API.Merge(&overlay.API)
	c.Log.Merge(&overlay.Log)
}

// Finalize applies defaults, environment overrides and validation to the
// root config and every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"source", func() error { return c.Source.Finalize(sourceEnv) }},
		{"sheets", func() error { return c.Sheets.Finalize(sheetsEnv) }},
		{"ocr", func() error { return c.OCR.Finalize(ocrEnv) }},
		{"preprocess", func() error { return c.Preprocess.Finalize(preprocessEnv) }},
		{"pnr", func() error { return c.PNR.Finalize(pnrEnv) }},
		{"matching", func() error { return c.Matching.Finalize(matchingEnv) }},
		{"commit", func() error { return c.Commit.Finalize(commitEnv) }},
		{"pipeline", func() error { return c.Pipeline.Finalize(pipelineEnv) }},
		{"retry", func() error { return c.Retry.Finalize(retryEnv) }},
		{"auth", func() error { return c.Auth.Finalize(authEnv) }},
		{"api", c.API.Finalize},
		{"log", c.Log.Finalize},
	}
	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.Persistence == "" {
		c.Persistence = PersistencePostgres
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvManifestPersistence); v != "" {
		c.Persistence = v
	}
	if v := os.Getenv(EnvManifestShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvManifestVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	switch c.Persistence {
	case PersistencePostgres, PersistenceMemory:
	default:
		return fmt.Errorf("persistence must be %s or %s, got %q", PersistencePostgres, PersistenceMemory, c.Persistence)
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvManifestEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
