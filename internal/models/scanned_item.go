package models

import "time"

// ScannedItem: append-only scan event, only the verification fields change
type ScannedItem struct {
	ID                       uint       `gorm:"primaryKey" json:"id"`
	ScanningSessionID        uint       `gorm:"index;not null" json:"scanning_session_id"`
	PhysicalStockCountItemID uint       `gorm:"index;not null" json:"physical_stock_count_item_id"`
	InventoryItemID          uint       `gorm:"not null" json:"inventory_item_id"`
	ClientScanID             *string    `gorm:"size:36;uniqueIndex" json:"client_scan_id,omitempty"`
	Barcode                  string     `gorm:"size:64;not null" json:"barcode"`
	SupplierCode             string     `gorm:"size:50" json:"supplier_code"`
	QuantityScanned          int        `gorm:"not null" json:"quantity_scanned"`
	StorageLocation          string     `gorm:"size:100" json:"storage_location"`
	ScannedBy                uint       `gorm:"not null" json:"scanned_by"`
	ScannedAt                time.Time  `gorm:"index;not null" json:"scanned_at"`
	Verified                 bool       `gorm:"not null;default:false" json:"verified"`
	VerifiedBy               *uint      `json:"verified_by"`
	VerifiedAt               *time.Time `json:"verified_at"`
	Notes                    string     `gorm:"size:255" json:"notes"`
}
