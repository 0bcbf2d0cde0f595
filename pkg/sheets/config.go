package sheets

import (
	"fmt"
	"os"
)

// Backend names accepted by Config.Backend.
const (
	BackendGoogle = "google"
	BackendXLSX   = "xlsx"
)

// Config selects and parameterizes the spreadsheet backend.
type Config struct {
	Backend         string `toml:"backend"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	CredentialsFile string `toml:"credentials_file"`
	XLSXPath        string `toml:"xlsx_path"`
	TicketSheet     string `toml:"ticket_sheet"`
	MasterSheet     string `toml:"master_sheet"`
	// TicketInput and MasterInput are Sheets API valueInputOption values.
	TicketInput string `toml:"ticket_input"`
	MasterInput string `toml:"master_input"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend         string
	SpreadsheetID   string
	CredentialsFile string
	XLSXPath        string
	TicketSheet     string
	MasterSheet     string
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
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.SpreadsheetID != "" {
		c.SpreadsheetID = overlay.SpreadsheetID
	}
	if overlay.CredentialsFile != "" {
		c.CredentialsFile = overlay.CredentialsFile
	}
	if overlay.XLSXPath != "" {
		c.XLSXPath = overlay.XLSXPath
	}
	if overlay.TicketSheet != "" {
		c.TicketSheet = overlay.TicketSheet
	}
	if overlay.MasterSheet != "" {
		c.MasterSheet = overlay.MasterSheet
	}
	if overlay.TicketInput != "" {
		c.TicketInput = overlay.TicketInput
	}
	if overlay.MasterInput != "" {
		c.MasterInput = overlay.MasterInput
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendGoogle
	}
	if c.TicketSheet == "" {
		c.TicketSheet = "Sheet1"
	}
	if c.MasterSheet == "" {
		c.MasterSheet = "Master"
	}
	if c.TicketInput == "" {
		c.TicketInput = "RAW"
	}
	if c.MasterInput == "" {
		c.MasterInput = "USER_ENTERED"
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
	set(env.SpreadsheetID, &c.SpreadsheetID)
	set(env.CredentialsFile, &c.CredentialsFile)
	set(env.XLSXPath, &c.XLSXPath)
	set(env.TicketSheet, &c.TicketSheet)
	set(env.MasterSheet, &c.MasterSheet)
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendGoogle:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("spreadsheet_id required for google backend")
		}
	case BackendXLSX:
		if c.XLSXPath == "" {
			return fmt.Errorf("xlsx_path required for xlsx backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.TicketSheet == c.MasterSheet {
		return fmt.Errorf("ticket_sheet and master_sheet must differ")
	}
	return nil
}
