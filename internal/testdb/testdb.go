// Package testdb opens a migrated in-memory sqlite database for package tests.
package testdb

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"stockcount-backend/internal/database"
	"stockcount-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var seq atomic.Int64

// New returns an isolated database. A single connection is kept open so the
// in-memory schema survives and transactions serialise like row locks would.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedItem inserts an active item with one level row.
func SeedItem(t *testing.T, db *gorm.DB, barcode, location string, qty int, unitCost string) models.InventoryItem {
	t.Helper()

	item := models.InventoryItem{
		SupplierCode: "SUP-" + barcode,
		Barcode:      barcode,
		Description:  "Item " + barcode,
		UnitCost:     decimal.RequireFromString(unitCost),
		IsActive:     true,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	level := models.InventoryLevel{
		InventoryItemID:   item.ID,
		StorageLocation:   location,
		QuantityAvailable: qty,
	}
	if err := db.Create(&level).Error; err != nil {
		t.Fatalf("seed level: %v", err)
	}
	return item
}

func SeedUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) models.User {
	t.Helper()

	u := models.User{
		Name:         name,
		Email:        strings.ToLower(name) + "@example.org",
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}
