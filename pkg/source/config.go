package source

import (
	"fmt"
	"os"
)

// Backend names accepted by Config.Backend.
const (
	BackendAzure = "azure"
	BackendDrive = "drive"
	BackendGCS   = "gcs"
	BackendLocal = "local"
)

// Config selects the file source backend and its inbox/processed locations.
type Config struct {
	Backend string `toml:"backend"`

	// Prefix-based backends (azure, gcs, local).
	InboxPrefix     string `toml:"inbox_prefix"`
	ProcessedPrefix string `toml:"processed_prefix"`

	// Azure Blob Storage. AccountURL with no ConnectionString authenticates
	// with the default Azure credential chain.
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`

	// Google Drive folders.
	InboxFolderID     string `toml:"inbox_folder_id"`
	ProcessedFolderID string `toml:"processed_folder_id"`
	CredentialsFile   string `toml:"credentials_file"`

	// Google Cloud Storage.
	Bucket string `toml:"bucket"`

	// Local directory.
	Dir string `toml:"dir"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend           string
	ContainerName     string
	ConnectionString  string
	AccountURL        string
	InboxFolderID     string
	ProcessedFolderID string
	CredentialsFile   string
	Bucket            string
	Dir               string
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
	merge := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	merge(&c.Backend, overlay.Backend)
	merge(&c.InboxPrefix, overlay.InboxPrefix)
	merge(&c.ProcessedPrefix, overlay.ProcessedPrefix)
	merge(&c.ContainerName, overlay.ContainerName)
	merge(&c.ConnectionString, overlay.ConnectionString)
	merge(&c.AccountURL, overlay.AccountURL)
	merge(&c.InboxFolderID, overlay.InboxFolderID)
	merge(&c.ProcessedFolderID, overlay.ProcessedFolderID)
	merge(&c.CredentialsFile, overlay.CredentialsFile)
	merge(&c.Bucket, overlay.Bucket)
	merge(&c.Dir, overlay.Dir)
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendAzure
	}
	if c.InboxPrefix == "" {
		c.InboxPrefix = "inbox"
	}
	if c.ProcessedPrefix == "" {
		c.ProcessedPrefix = "processed"
	}
	if c.ContainerName == "" {
		c.ContainerName = "tickets"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	set(env.Backend, &c.Backend)
	set(env.ContainerName, &c.ContainerName)
	set(env.ConnectionString, &c.ConnectionString)
	set(env.AccountURL, &c.AccountURL)
	set(env.InboxFolderID, &c.InboxFolderID)
	set(env.ProcessedFolderID, &c.ProcessedFolderID)
	set(env.CredentialsFile, &c.CredentialsFile)
	set(env.Bucket, &c.Bucket)
	set(env.Dir, &c.Dir)
}

func (c *Config) validate() error {
	if c.InboxPrefix == c.ProcessedPrefix {
		return fmt.Errorf("inbox_prefix and processed_prefix must differ")
	}

	switch c.Backend {
	case BackendAzure:
		if c.ContainerName == "" {
			return fmt.Errorf("container_name required")
		}
		if c.ConnectionString == "" && c.AccountURL == "" {
			return fmt.Errorf("connection_string or account_url required")
		}
	case BackendDrive:
		if c.InboxFolderID == "" {
			return fmt.Errorf("inbox_folder_id required")
		}
		if c.ProcessedFolderID == "" {
			return fmt.Errorf("processed_folder_id required")
		}
	case BackendGCS:
		if c.Bucket == "" {
			return fmt.Errorf("bucket required")
		}
	case BackendLocal:
		if c.Dir == "" {
			return fmt.Errorf("dir required")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
