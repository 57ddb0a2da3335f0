package database

import (
	"fmt"
	"time"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/pkg/config"
	applog "go-dispatch-ws/pkg/logger"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens the PostgreSQL pool used by the API server. SQL logging
// goes through log.
func ConnectDB(cfg config.DBConfig, log *applog.Logger, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	// gorm prints through Printf, which zerolog emits at debug level; gorm's
	// own LogLevel does the filtering.
	zl := log.Named("gorm").Zerolog().Level(zerolog.DebugLevel)
	newLogger := logger.New(&zl, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.ConnectionString(),
		PreferSimpleProtocol: true, // Disables implicit prepared statements for pooled (transaction mode) proxies
	}), &gorm.Config{
		Logger:      newLogger,
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates or updates the tables backing the table API.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Account{}, &model.User{}, &model.Product{}, &model.Order{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	// quantity must stay non-negative at rest; AutoMigrate has no portable syntax for it.
	return db.Exec(`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'products_quantity_non_negative') THEN
			ALTER TABLE products ADD CONSTRAINT products_quantity_non_negative CHECK (quantity >= 0);
		END IF;
	END $$;`).Error
}
