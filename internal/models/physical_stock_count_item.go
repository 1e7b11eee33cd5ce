package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CountItemStatus string

const (
	CountItemStatusPending     CountItemStatus = "pending"
	CountItemStatusCounted     CountItemStatus = "counted"
	CountItemStatusVerified    CountItemStatus = "verified"
	CountItemStatusDiscrepancy CountItemStatus = "discrepancy"
)

// CanTransition guards the per-line state machine:
// Pending -> Counted -> (Counted) -> Verified|Discrepancy.
// Finalize may also settle an uncounted line straight from Pending.
func (s CountItemStatus) CanTransition(to CountItemStatus) bool {
	switch s {
	case CountItemStatusPending:
		return to == CountItemStatusCounted || to == CountItemStatusVerified || to == CountItemStatusDiscrepancy
	case CountItemStatusCounted:
		return to == CountItemStatusCounted || to == CountItemStatusVerified || to == CountItemStatusDiscrepancy
	}
	return false
}

func (s CountItemStatus) IsFinal() bool {
	return s == CountItemStatusVerified || s == CountItemStatusDiscrepancy
}

type CountPass string

const (
	CountPassFirst  CountPass = "first"
	CountPassSecond CountPass = "second"
)

func (p CountPass) Valid() bool {
	return p == CountPassFirst || p == CountPassSecond
}

// PhysicalStockCountItem: expected vs counted quantity of one inventory item inside a count
type PhysicalStockCountItem struct {
	ID                   uint   `gorm:"primaryKey" json:"id"`
	PhysicalStockCountID uint   `gorm:"not null;uniqueIndex:idx_count_line" json:"physical_stock_count_id"`
	InventoryItemID      uint   `gorm:"index;not null" json:"inventory_item_id"`
	LineNumber           int    `gorm:"not null;uniqueIndex:idx_count_line" json:"line_number"`
	SupplierCode         string `gorm:"size:50" json:"supplier_code"`
	Barcode              string `gorm:"size:64;index" json:"barcode"`
	Description          string `gorm:"size:255" json:"description"`
	StorageLocation      string `gorm:"size:100" json:"storage_location"`

	// snapshot, never updated after population
	SystemQuantity    int             `gorm:"not null" json:"system_quantity"`
	ReservedQuantity  int             `gorm:"not null" json:"reserved_quantity"`
	AvailableQuantity int             `gorm:"not null" json:"available_quantity"`
	UnitCost          decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"unit_cost"`

	FirstCountQuantity  *int       `json:"first_count_quantity"`
	FirstCountBy        *uint      `json:"first_count_by"`
	FirstCountAt        *time.Time `json:"first_count_at"`
	SecondCountQuantity *int       `json:"second_count_quantity"`
	SecondCountBy       *uint      `json:"second_count_by"`
	SecondCountAt       *time.Time `json:"second_count_at"`

	FinalCountQuantity *int            `json:"final_count_quantity"`
	Variance           int             `gorm:"not null;default:0" json:"variance"`
	VarianceValue      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"variance_value"`

	Status             CountItemStatus `gorm:"size:20;index;not null" json:"status"`
	RequiresRecount    bool            `gorm:"not null;default:false" json:"requires_recount"`
	DiscrepancyReason  string          `gorm:"size:255" json:"discrepancy_reason"`
	AdjustmentRequired bool            `gorm:"not null;default:false" json:"adjustment_required"`
	AdjustmentApplied  bool            `gorm:"not null;default:false" json:"adjustment_applied"`
	AdjustmentAppliedBy *uint          `json:"adjustment_applied_by"`
	AdjustmentAppliedAt *time.Time     `json:"adjustment_applied_at"`
	Notes               string         `gorm:"size:500" json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCountItemFromLevel builds a Pending line from a book snapshot with every
// numeric field explicitly zeroed.
func NewCountItemFromLevel(countID uint, line int, item InventoryItem, level InventoryLevel) PhysicalStockCountItem {
	return PhysicalStockCountItem{
		PhysicalStockCountID: countID,
		InventoryItemID:      item.ID,
		LineNumber:           line,
		SupplierCode:         item.SupplierCode,
		Barcode:              item.Barcode,
		Description:          item.Description,
		StorageLocation:      level.StorageLocation,
		SystemQuantity:       level.QuantityAvailable,
		ReservedQuantity:     level.QuantityReserved,
		AvailableQuantity:    level.QuantityAvailable - level.QuantityReserved,
		UnitCost:             item.UnitCost,
		Variance:             0,
		VarianceValue:        decimal.Zero,
		Status:               CountItemStatusPending,
	}
}

// HasCount reports whether any pass was recorded.
func (i *PhysicalStockCountItem) HasCount() bool {
	return i.FirstCountQuantity != nil || i.SecondCountQuantity != nil
}

// ResolveFinalQuantity: second ?? first ?? 0
func (i *PhysicalStockCountItem) ResolveFinalQuantity() int {
	if i.SecondCountQuantity != nil {
		return *i.SecondCountQuantity
	}
	if i.FirstCountQuantity != nil {
		return *i.FirstCountQuantity
	}
	return 0
}

// Settle recomputes final quantity, variance and status from the stored passes.
// Calling it twice yields the same result.
func (i *PhysicalStockCountItem) Settle() {
	final := i.ResolveFinalQuantity()
	i.FinalCountQuantity = &final
	i.Variance = final - i.SystemQuantity
	i.VarianceValue = decimal.NewFromInt(int64(i.Variance)).Mul(i.UnitCost).Round(2)
	i.AdjustmentRequired = i.Variance != 0
	if i.Variance != 0 {
		i.Status = CountItemStatusDiscrepancy
	} else {
		i.Status = CountItemStatusVerified
	}
}
