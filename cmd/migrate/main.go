// Command migrate manages the embedded PostgreSQL schema migrations.
//
// Usage:
//
//	go run ./cmd/migrate up         # Apply all pending migrations
//	go run ./cmd/migrate down       # Roll back the last migration
//	go run ./cmd/migrate version    # Show current migration version
//	go run ./cmd/migrate to N       # Migrate to version N
//	go run ./cmd/migrate force N    # Force version to N (fix dirty state)
package main

import (
	"fmt"
	"os"
	"strconv"

	"agent-builder/internal/config"
	"agent-builder/internal/database"
	"agent-builder/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("../.env")
	}

	cfg := config.Load()
	logging.Init(cfg.Environment)
	defer logging.Sync()
	log := logging.Named("migrate")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	runner, err := database.NewMigrationRunner(&database.MigrationConfig{
		DatabaseURL: database.PostgresURL(cfg.Database),
		Logger:      log,
	})
	if err != nil {
		log.Fatal("failed to create migration runner", zap.Error(err))
	}
	defer runner.Close()

	switch os.Args[1] {
	case "up":
		err = runner.RunMigrations()
	case "down":
		err = runner.RollbackMigration()
	case "version":
		var status database.MigrationStatus
		status, err = runner.GetVersion()
		if err == nil {
			fmt.Printf("version=%d dirty=%v applied=%v\n", status.Version, status.Dirty, status.Applied)
			if status.Dirty {
				fmt.Printf("database is dirty; fix the failed migration then run 'migrate force %d'\n", status.Version-1)
			}
		}
	case "to":
		version, perr := strconv.ParseUint(argAt(2), 10, 32)
		if perr != nil {
			log.Fatal("invalid version", zap.String("arg", argAt(2)))
		}
		err = runner.MigrateToVersion(uint(version))
	case "force":
		version, perr := strconv.Atoi(argAt(2))
		if perr != nil {
			log.Fatal("invalid version", zap.String("arg", argAt(2)))
		}
		err = runner.Force(version)
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("migration command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func argAt(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func printUsage() {
	fmt.Print(`Agent Builder database migrations

Usage:
  migrate <command> [arguments]

Commands:
  up           Apply all pending migrations
  down         Roll back the last migration
  version      Show current migration version
  to <N>       Migrate to version N
  force <N>    Force version to N (use to fix dirty state)

Environment:
  DATABASE_URL or DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSL_MODE
`)
}
