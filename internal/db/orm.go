package db

import (
	"fmt"

	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/logging"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// OpenORM connects gorm to the configured driver ("postgres" or "sqlite").
func OpenORM(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// sqlite allows one writer; a single connection keeps transactions serialized
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	logging.Info("Connected to database via GORM", "driver", driver)
	return db, nil
}

// Migrate creates or updates every table and seeds default settings.
func Migrate(db *gorm.DB, defaultCooldownHours int) error {
	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	defaults := []gormModels.Setting{
		{Key: constants.SettingCooldownHours, Value: fmt.Sprintf("%d", defaultCooldownHours)},
		{Key: constants.SettingKeyMessage, Value: constants.DefaultKeyMessage},
	}

	// Existing values win; this only fills gaps on first boot
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	return nil
}
