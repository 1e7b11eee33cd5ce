package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AdjustmentStatus string

const (
	AdjustmentStatusDraft   AdjustmentStatus = "draft"
	AdjustmentStatusApplied AdjustmentStatus = "applied"
)

// PhysicalStockAdjustment: batch correction derived from a finalized count
type PhysicalStockAdjustment struct {
	ID                   uint             `gorm:"primaryKey" json:"id"`
	AdjustmentNumber     string           `gorm:"size:30;uniqueIndex;not null" json:"adjustment_number"`
	PhysicalStockCountID uint             `gorm:"index;not null" json:"physical_stock_count_id"`
	TotalAdjustmentValue decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"total_adjustment_value"`
	Reason               string           `gorm:"size:255" json:"reason"`
	Status               AdjustmentStatus `gorm:"size:20;index;not null" json:"status"`
	CreatedBy            uint             `gorm:"not null" json:"created_by"`
	CreatedAt            time.Time        `json:"created_at"`
	AppliedBy            *uint            `json:"applied_by"`
	AppliedAt            *time.Time       `json:"applied_at"`

	Items []PhysicalStockAdjustmentItem `gorm:"foreignKey:AdjustmentID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// PhysicalStockAdjustmentItem: one corrected line, at most one per count item
type PhysicalStockAdjustmentItem struct {
	ID                       uint            `gorm:"primaryKey" json:"id"`
	AdjustmentID             uint            `gorm:"index;not null" json:"adjustment_id"`
	PhysicalStockCountItemID uint            `gorm:"uniqueIndex;not null" json:"physical_stock_count_item_id"`
	InventoryItemID          uint            `gorm:"not null" json:"inventory_item_id"`
	StorageLocation          string          `gorm:"size:100" json:"storage_location"`
	SystemQuantity           int             `gorm:"not null" json:"system_quantity"`
	PhysicalQuantity         int             `gorm:"not null" json:"physical_quantity"`
	AdjustmentQuantity       int             `gorm:"not null" json:"adjustment_quantity"`
	UnitCost                 decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"unit_cost"`
	AdjustmentValue          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"adjustment_value"`
	Reason                   string          `gorm:"size:255" json:"reason"`
}

// NewAdjustmentItem copies the settled variance of a count line.
func NewAdjustmentItem(item PhysicalStockCountItem) PhysicalStockAdjustmentItem {
	return PhysicalStockAdjustmentItem{
		PhysicalStockCountItemID: item.ID,
		InventoryItemID:          item.InventoryItemID,
		StorageLocation:          item.StorageLocation,
		SystemQuantity:           item.SystemQuantity,
		PhysicalQuantity:         item.SystemQuantity + item.Variance,
		AdjustmentQuantity:       item.Variance,
		UnitCost:                 item.UnitCost,
		AdjustmentValue:          item.VarianceValue,
		Reason:                   item.DiscrepancyReason,
	}
}
