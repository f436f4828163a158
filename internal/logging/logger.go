// Package logging provides the process-wide structured logger.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

var (
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	once   sync.Once
)

// Init builds the global logger for the given environment. Only the first call
// has an effect; later calls are no-ops.
func Init(environment string) {
	once.Do(func() {
		var cfg zap.Config
		if environment == "production" {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "ts"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		built, err := cfg.Build()
		if err != nil {
			built = zap.NewNop()
		}
		logger = built.Named("agent-builder")
		sugar = logger.Sugar()
	})
}

// L returns the global structured logger
func L() *zap.Logger {
	Init(os.Getenv("ENVIRONMENT"))
	return logger
}

// S returns the global sugared logger (printf-style)
func S() *zap.SugaredLogger {
	Init(os.Getenv("ENVIRONMENT"))
	return sugar
}

// Named returns a child of the global logger for one component
func Named(component string) *zap.Logger {
	return L().Named(component)
}

// Sync flushes any buffered log entries. Call before app exit.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// GormLevel maps the environment onto a GORM log level: SQL is echoed only in
// development.
func GormLevel(environment string) gormlogger.LogLevel {
	switch environment {
	case "development":
		return gormlogger.Info
	case "test":
		return gormlogger.Silent
	default:
		return gormlogger.Warn
	}
}
