package models

import "time"

type CountStatus string

const (
	CountStatusPending    CountStatus = "pending"
	CountStatusInProgress CountStatus = "in_progress"
	CountStatusCompleted  CountStatus = "completed"
	CountStatusCancelled  CountStatus = "cancelled"
)

type CountType string

const (
	CountTypeFull  CountType = "full"
	CountTypeCycle CountType = "cycle"
	CountTypeSpot  CountType = "spot"
)

func (t CountType) Valid() bool {
	switch t {
	case CountTypeFull, CountTypeCycle, CountTypeSpot:
		return true
	}
	return false
}

// CanTransition: Pending -> InProgress -> Completed, Cancelled only from Pending/InProgress.
func (s CountStatus) CanTransition(to CountStatus) bool {
	switch s {
	case CountStatusPending:
		return to == CountStatusInProgress || to == CountStatusCancelled
	case CountStatusInProgress:
		return to == CountStatusCompleted || to == CountStatusCancelled
	}
	return false
}

// PhysicalStockCount: one physical stock-taking event
type PhysicalStockCount struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	CountNumber     string      `gorm:"size:30;uniqueIndex;not null" json:"count_number"`
	Description     string      `gorm:"size:255" json:"description"`
	CountDate       time.Time   `gorm:"index;not null" json:"count_date"`
	StorageLocation *string     `gorm:"size:100" json:"storage_location"` // nil = all locations
	CountType       CountType   `gorm:"size:20;not null" json:"count_type"`
	Status          CountStatus `gorm:"size:20;index;not null" json:"status"`
	ScheduledDate   *time.Time  `json:"scheduled_date"`

	StartedBy   *uint      `json:"started_by"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedBy *uint      `json:"completed_by"`
	CompletedAt *time.Time `json:"completed_at"`
	ApprovedBy  *uint      `json:"approved_by"`
	ApprovedAt  *time.Time `json:"approved_at"`

	TotalItemsExpected int `gorm:"not null;default:0" json:"total_items_expected"`
	TotalItemsCounted  int `gorm:"not null;default:0" json:"total_items_counted"`
	TotalDiscrepancies int `gorm:"not null;default:0" json:"total_discrepancies"`

	Notes     string    `gorm:"size:1000" json:"notes"`
	CreatedBy uint      `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []PhysicalStockCountItem `gorm:"foreignKey:PhysicalStockCountID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *PhysicalStockCount) IsClosed() bool {
	return c.Status == CountStatusCompleted || c.Status == CountStatusCancelled
}
