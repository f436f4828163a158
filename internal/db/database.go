package db

import (
	"fmt"
	"time"

	"agent-builder/internal/logging"
	"agent-builder/pkg/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Database wraps the GORM database instance
type Database struct {
	DB     *gorm.DB
	driver string
}

// Config holds database configuration
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string

	// SQLitePath is used when Driver is "sqlite"; ":memory:" gives a private
	// in-process database.
	SQLitePath string

	LogLevel logger.LogLevel
}

// DSN renders the PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.TimeZone,
	)
}

// NewDatabase opens the configured store and migrates the schema
func NewDatabase(config *Config) (*Database, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(config.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var dialector gorm.Dialector
	switch config.Driver {
	case DriverSQLite:
		path := config.SQLitePath
		if path == "" {
			path = "agent_builder.db"
		}
		dialector = sqlite.Open(path)
	case DriverPostgres, "":
		dialector = postgres.Open(config.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	database := &Database{DB: db, driver: config.Driver}
	if database.driver == "" {
		database.driver = DriverPostgres
	}

	if database.driver == DriverSQLite {
		// SQLite allows a single writer; one connection also keeps ":memory:"
		// databases from splitting per connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logging.L().Info("database connected", zap.String("driver", database.driver))
	return database, nil
}

// Migrate auto-migrates all models
func (d *Database) Migrate() error {
	if err := d.DB.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if d.driver == DriverPostgres {
		d.createIndexes()
	}
	return nil
}

// createIndexes adds PostgreSQL-only indexes GORM tags cannot express
func (d *Database) createIndexes() {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_debug_events_chat_recent ON debug_events(chat_id, created_at DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_agent_metrics_recent ON agent_metrics(recorded_at DESC)",
	}
	for _, stmt := range stmts {
		if err := d.DB.Exec(stmt).Error; err != nil {
			logging.L().Warn("index creation failed", zap.String("statement", stmt), zap.Error(err))
		}
	}
}

// Driver returns the active driver name
func (d *Database) Driver() string {
	return d.driver
}

// Health checks database connectivity
func (d *Database) Health() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the underlying GORM database instance
func (d *Database) GetDB() *gorm.DB {
	return d.DB
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		Driver:   DriverPostgres,
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "password",
		DBName:   "agent_builder",
		SSLMode:  "disable",
		TimeZone: "UTC",
		LogLevel: logger.Warn,
	}
}
