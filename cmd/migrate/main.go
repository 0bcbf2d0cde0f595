// Command migrate applies the ticket registry and commit ledger schema.
//
// The connection comes from -dsn, then MANIFEST_DB_DSN, then the database
// section of the service configuration (config.toml plus overlay and
// MANIFEST_DB_* overrides).
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/manifest/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "MANIFEST_DB_DSN"

func main() {
	var (
		dsn     = flag.String("dsn", "", "Database connection URL")
		up      = flag.Bool("up", false, "Apply all pending migrations")
		down    = flag.Bool("down", false, "Revert all migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current schema version")
		force   = flag.Int("force", -1, "Force set version after a failed migration")
	)
	flag.Parse()

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	url, err := resolveDSN(*dsn)
	if err != nil {
		log.Fatal(err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		log.Fatalf("migration source: %v", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		log.Fatalf("migrator: %v", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return
		}
		if err != nil {
			log.Fatalf("version: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case forceSet:
		if err := m.Force(*force); err != nil {
			log.Fatalf("force: %v", err)
		}
		fmt.Printf("forced to version %d\n", *force)
	case *up:
		report(m.Up(), "schema up to date")
	case *down:
		report(m.Down(), "schema reverted")
	case *steps != 0:
		report(m.Steps(*steps), fmt.Sprintf("applied %d migration steps", *steps))
	default:
		fmt.Println("usage: migrate [-dsn <url>] -up | -down | -steps N | -version | -force N")
		flag.PrintDefaults()
		os.Exit(2)
	}
}

func resolveDSN(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(envDSN); env != "" {
		return env, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("no -dsn or %s and config failed to load: %w", envDSN, err)
	}
	if !cfg.UsesDatabase() {
		return "", fmt.Errorf("persistence is %q: nothing to migrate", cfg.Persistence)
	}
	return cfg.Database.URL(), nil
}

func report(err error, done string) {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate: %v", err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no change")
		return
	}
	fmt.Println(done)
}
