package database

import (
	"fmt"

	"stockcount-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to postgres and runs the migrations.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if log != nil {
		log.Info("database connected, migrations done")
	}
	return db, nil
}

// Migrate creates or updates every table of the service. Tests call it against sqlite.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
		&models.InventoryItem{},
		&models.InventoryLevel{},
		&models.StockMovement{},
		&models.PhysicalStockCount{},
		&models.PhysicalStockCountItem{},
		&models.ScanningSession{},
		&models.ScannedItem{},
		&models.PhysicalStockAdjustment{},
		&models.PhysicalStockAdjustmentItem{},
	)
	if err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}
