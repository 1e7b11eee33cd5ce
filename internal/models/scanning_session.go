package models

import "time"

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// ScanningSession: one operator scanning against one count
type ScanningSession struct {
	ID                   uint          `gorm:"primaryKey" json:"id"`
	PhysicalStockCountID uint          `gorm:"index;not null" json:"physical_stock_count_id"`
	Status               SessionStatus `gorm:"size:20;index;not null" json:"status"`
	StorageZone          string        `gorm:"size:100" json:"storage_zone"`
	StartedBy            uint          `gorm:"not null" json:"started_by"`
	StartedAt            time.Time     `gorm:"not null" json:"started_at"`
	CompletedAt          *time.Time    `json:"completed_at"`
	LastScanAt           *time.Time    `json:"last_scan_at"`
	TotalScansCompleted  int           `gorm:"not null;default:0" json:"total_scans_completed"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// LastActivity is the later of start and last scan.
func (s *ScanningSession) LastActivity() time.Time {
	if s.LastScanAt != nil && s.LastScanAt.After(s.StartedAt) {
		return *s.LastScanAt
	}
	return s.StartedAt
}
