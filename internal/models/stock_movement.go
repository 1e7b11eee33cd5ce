package models

import "time"

type MovementType string

const (
	MovementAdjustmentIn  MovementType = "Adjustment In"
	MovementAdjustmentOut MovementType = "Adjustment Out"
)

const ReferencePhysicalStockAdjustment = "PhysicalStockAdjustment"

// MovementTypeFor picks the direction from the signed quantity.
func MovementTypeFor(delta int) MovementType {
	if delta < 0 {
		return MovementAdjustmentOut
	}
	return MovementAdjustmentIn
}

// StockMovement: append-only ledger row, quantity_after - quantity_before is the signed move
type StockMovement struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	InventoryItemID uint         `gorm:"index;not null" json:"inventory_item_id"`
	StorageLocation string       `gorm:"size:100;not null" json:"storage_location"`
	MovementType    MovementType `gorm:"size:30;not null" json:"movement_type"`
	QuantityBefore  int          `gorm:"not null" json:"quantity_before"`
	QuantityMoved   int          `gorm:"not null" json:"quantity_moved"`
	QuantityAfter   int          `gorm:"not null" json:"quantity_after"`
	ReferenceType   string       `gorm:"size:50;index:idx_movement_reference;not null" json:"reference_type"`
	ReferenceID     uint         `gorm:"index:idx_movement_reference;not null" json:"reference_id"`
	Reason          string       `gorm:"size:255" json:"reason"`
	CreatedBy       uint         `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time    `json:"created_at"`
}
