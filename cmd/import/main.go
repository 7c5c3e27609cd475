// Command import runs a one-shot bulk reconciliation import of one or more
// CSV sources into the catalog database. The exit code is 0 only when every
// source imported with zero failed records.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cinetrack/cinetrack/internal/config"
	"github.com/cinetrack/cinetrack/internal/importer"
	"github.com/cinetrack/cinetrack/internal/logging"
	"github.com/cinetrack/cinetrack/internal/store"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type options struct {
	DryRun      bool `long:"dry-run" description:"Import into an in-memory store; no database writes"`
	Diagnostics bool `long:"diagnostics" description:"Print per-row failure diagnostics"`

	Args struct {
		Files []string `positional-arg-name:"file.csv" required:"1" description:"CSV sources to import, in order"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	if opts.DryRun && os.Getenv("DATABASE_URL") == "" && os.Getenv("DB_URL") == "" {
		// Dry runs never touch the database; satisfy the required setting.
		os.Setenv("DATABASE_URL", "postgres://dry-run")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	var st store.Store
	if opts.DryRun {
		st = store.NewMemory()
	} else {
		ctx := context.Background()
		pool, err := store.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		version, err := store.RunMigrations(cfg.Database.URL)
		if err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Debug("schema ready", "migration_version", version)

		st = store.NewPostgres(pool)
	}

	im := importer.New(st, importer.WithStatementTimeout(cfg.Import.StatementTimeout))

	exitCode := 0
	for _, path := range opts.Args.Files {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Import.RunTimeout)
		result := im.Run(ctx, path)
		cancel()

		fmt.Printf("%s: %s\n", path, result.Summary())
		if opts.Diagnostics {
			for _, d := range result.Diagnostics {
				fmt.Printf("  row %d [%s]: %s\n", d.Row, d.Type, d.Message)
			}
		}
		if !result.Ok() {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
