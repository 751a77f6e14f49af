// Package db provides database connection and migration functionality.
package db

import (
	"fmt"
	stdlog "log"
	"os"

	"github.com/arukh89/bitcoin-block/internal/config"
	"github.com/arukh89/bitcoin-block/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a database connection using the provided configuration.
// Returns (nil, nil) when no DATABASE_URL is configured; the caller falls
// back to the in-memory store.
func Open(cfg config.Config) (*gorm.DB, error) {
	// Configure GORM logger (Silent to avoid cluttering output; only errors will be logged)
	newLogger := logger.New(
		stdlog.New(os.Stdout, "", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	if cfg.DBDialect == "" || cfg.DBDsn == "" {
		return nil, nil
	}

	switch cfg.DBDialect {
	case "postgres":
		// TranslateError turns driver unique-violation errors into
		// gorm.ErrDuplicatedKey, which the store maps onto the guess
		// and open-round constraints.
		return gorm.Open(postgres.Open(cfg.DBDsn), &gorm.Config{
			Logger:         newLogger,
			TranslateError: true,
		})
	default:
		return nil, fmt.Errorf("unsupported DB_DIALECT: %s", cfg.DBDialect)
	}
}

// AutoMigrate runs database migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&models.Round{},
		&models.Guess{},
		&models.PrizeConfig{},
		&models.ChatMessage{},
	)
}
