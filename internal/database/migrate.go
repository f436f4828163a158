// Package database runs the versioned PostgreSQL schema migrations embedded in
// the binary, using golang-migrate.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"

	"agent-builder/internal/db"
	"agent-builder/internal/logging"
	"agent-builder/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// MigrationConfig holds configuration for the migration runner
type MigrationConfig struct {
	// DatabaseURL is a postgres:// connection URL
	DatabaseURL string

	// Source overrides the embedded migrations
	Source fs.FS

	Logger *zap.Logger
}

// MigrationRunner handles database migrations
type MigrationRunner struct {
	config  *MigrationConfig
	migrate *migrate.Migrate
	db      *sql.DB
	log     *zap.Logger
}

// MigrationStatus represents the current migration state
type MigrationStatus struct {
	Version uint   `json:"version"`
	Dirty   bool   `json:"dirty"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// NewMigrationRunner opens the database and prepares the embedded source
func NewMigrationRunner(config *MigrationConfig) (*MigrationRunner, error) {
	if config == nil {
		return nil, errors.New("migration config is required")
	}
	if config.DatabaseURL == "" {
		return nil, errors.New("database url is required")
	}

	log := config.Logger
	if log == nil {
		log = logging.Named("migrate")
	}

	source := config.Source
	if source == nil {
		source = migrations.FS
	}
	if err := CheckSource(source); err != nil {
		return nil, err
	}

	conn, err := sql.Open("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
	}

	src, err := iofs.New(source, ".")
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return &MigrationRunner{config: config, migrate: m, db: conn, log: log}, nil
}

// RunMigrations applies all pending migrations
func (r *MigrationRunner) RunMigrations() error {
	r.log.Info("running database migrations")

	if err := r.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			r.log.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, _ := r.migrate.Version()
	r.log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// RollbackMigration rolls back the last migration
func (r *MigrationRunner) RollbackMigration() error {
	r.log.Info("rolling back last migration")

	if err := r.migrate.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			r.log.Info("no migrations to roll back")
			return nil
		}
		return fmt.Errorf("rollback failed: %w", err)
	}

	version, dirty, _ := r.migrate.Version()
	r.log.Info("rollback completed", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// MigrateToVersion migrates up or down to version
func (r *MigrationRunner) MigrateToVersion(version uint) error {
	if err := r.migrate.Migrate(version); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			r.log.Info("already at version", zap.Uint("version", version))
			return nil
		}
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}

	r.log.Info("migrated", zap.Uint("version", version))
	return nil
}

// GetVersion returns the current migration version
func (r *MigrationRunner) GetVersion() (MigrationStatus, error) {
	version, dirty, err := r.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return MigrationStatus{}, nil
		}
		return MigrationStatus{Error: err.Error()}, err
	}

	return MigrationStatus{Version: version, Dirty: dirty, Applied: version > 0}, nil
}

// Force sets the migration version without running migrations. Used to clear
// a dirty state after a manual fix.
func (r *MigrationRunner) Force(version int) error {
	if err := r.migrate.Force(version); err != nil {
		return fmt.Errorf("force failed: %w", err)
	}
	r.log.Warn("migration version forced", zap.Int("version", version))
	return nil
}

// Close closes the migration runner and database connection
func (r *MigrationRunner) Close() error {
	srcErr, dbErr := r.migrate.Close()
	if srcErr != nil {
		return fmt.Errorf("failed to close source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}

// RunMigrations applies every pending embedded migration to databaseURL
func RunMigrations(databaseURL string) error {
	runner, err := NewMigrationRunner(&MigrationConfig{DatabaseURL: databaseURL})
	if err != nil {
		return err
	}
	defer runner.Close()

	return runner.RunMigrations()
}

// CheckSource verifies every up migration in source has a matching down file
func CheckSource(source fs.FS) error {
	ups, err := fs.Glob(source, "*.up.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	if len(ups) == 0 {
		return errors.New("no migrations found")
	}

	for _, up := range ups {
		down := up[:len(up)-len(".up.sql")] + ".down.sql"
		if _, err := fs.Stat(source, down); err != nil {
			return fmt.Errorf("migration %s has no down file", up)
		}
	}
	return nil
}

// PostgresURL renders cfg as a postgres:// URL for golang-migrate
func PostgresURL(cfg *db.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.DBName,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
