package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/simplestore/storefront/app/config"
	"github.com/simplestore/storefront/app/logger"
	"github.com/simplestore/storefront/app/migration"
)

func main() {
	migrationsPath := flag.String("path", "migrations", "path to the migrations directory")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLog, err := logger.New(&logger.Config{
		Level:  *logLevel,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	if cfg.Database.Driver != "postgres" {
		zapLog.Fatal("SQL migrations target postgres; sqlite databases use auto-migrate",
			zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		zapLog.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		zapLog.Fatal("Failed to connect to database", zap.Error(err))
	}

	m, err := migration.New(db, *migrationsPath, zapLog)
	if err != nil {
		zapLog.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			zapLog.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			zapLog.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		if len(args) < 2 {
			zapLog.Fatal("Step count required. Usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			zapLog.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := m.Steps(n); err != nil {
			zapLog.Fatal("Migration step failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			zapLog.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			zapLog.Info("No migrations applied")
		} else {
			zapLog.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
		}

	case "force":
		if len(args) < 2 {
			zapLog.Fatal("Version required. Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			zapLog.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		if err := m.Force(version); err != nil {
			zapLog.Fatal("Force version failed", zap.Error(err))
		}

	default:
		zapLog.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Storefront database migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                Apply all pending migrations
  down              Roll back all migrations
  step <n>          Apply n migrations (negative rolls back)
  version           Show the current migration version
  force <version>   Mark a version as applied after a failed run

Flags:
  -path string        Path to the migrations directory (default "migrations")
  -log-level string   Log level (default "info")

Connection settings come from the STORE_DATABASE_* environment variables.`)
}
