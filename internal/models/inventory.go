package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem: item master row, read-only for counting
type InventoryItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SupplierCode string          `gorm:"size:50;index" json:"supplier_code"`
	Barcode      string          `gorm:"size:64;uniqueIndex" json:"barcode"`
	Description  string          `gorm:"size:255;not null" json:"description"`
	UnitCost     decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"unit_cost"`
	IsActive     bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// InventoryLevel: book quantity of one item at one location
type InventoryLevel struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	InventoryItemID   uint          `gorm:"not null;uniqueIndex:idx_level_item_location" json:"inventory_item_id"`
	InventoryItem     InventoryItem `json:"-"`
	StorageLocation   string        `gorm:"size:100;not null;uniqueIndex:idx_level_item_location" json:"storage_location"`
	QuantityAvailable int           `gorm:"not null;default:0" json:"quantity_available"`
	QuantityReserved  int           `gorm:"not null;default:0" json:"quantity_reserved"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
