// Package store is the persistence boundary of the counting subsystem. Every
// method of Store is implemented by the GORM store; nothing is forwarded at
// runtime.
package store

import (
	"context"
	"time"

	"stockcount-backend/internal/models"
)

type CountFilter struct {
	Status          models.CountStatus
	StorageLocation string
	Limit           int
}

type ItemFilter struct {
	Status       models.CountItemStatus
	OnlyVariance bool
}

type ScanFilter struct {
	SessionID uint
	CountID   uint
}

type LevelFilter struct {
	InventoryItemID uint
	StorageLocation string
}

type MovementFilter struct {
	InventoryItemID uint
	ReferenceType   string
	ReferenceID     uint
	Limit           int
}

// SnapshotRow pairs an active item with one of its location levels.
type SnapshotRow struct {
	Item  models.InventoryItem
	Level models.InventoryLevel
}

type NumberKind int

const (
	NumberCount NumberKind = iota + 1
	NumberAdjustment
)

// Store is the full persistence contract.
type Store interface {
	// WithTx runs fn inside one database transaction; any error rolls back.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	CountNumbersWithPrefix(ctx context.Context, kind NumberKind, prefix string) (int64, error)

	// counts
	CreateCount(ctx context.Context, c *models.PhysicalStockCount) error
	GetCount(ctx context.Context, id uint) (*models.PhysicalStockCount, error)
	GetCountByNumber(ctx context.Context, number string) (*models.PhysicalStockCount, error)
	ListCounts(ctx context.Context, f CountFilter) ([]models.PhysicalStockCount, error)
	SaveCount(ctx context.Context, c *models.PhysicalStockCount) error
	UpdateCountIfStatus(ctx context.Context, id uint, status models.CountStatus, fields map[string]any) (bool, error)
	ApproveCount(ctx context.Context, id uint, actorID uint, at time.Time) (bool, error)
	DeleteCount(ctx context.Context, id uint) error

	// count items
	CreateCountItems(ctx context.Context, items []models.PhysicalStockCountItem) error
	DeleteCountItems(ctx context.Context, countID uint) error
	GetCountItem(ctx context.Context, id uint) (*models.PhysicalStockCountItem, error)
	ListCountItems(ctx context.Context, countID uint, f ItemFilter) ([]models.PhysicalStockCountItem, error)
	SaveCountItem(ctx context.Context, item *models.PhysicalStockCountItem) error
	MaxLineNumber(ctx context.Context, countID uint) (int, error)
	FindCountItemForInventory(ctx context.Context, countID, inventoryItemID uint, location string) (*models.PhysicalStockCountItem, error)
	ListItemsPendingAdjustment(ctx context.Context, countID uint) ([]models.PhysicalStockCountItem, error)
	MarkCountItemAdjusted(ctx context.Context, id uint, actorID uint, at time.Time) (bool, error)

	// inventory snapshot source
	ListSnapshot(ctx context.Context, location *string) ([]SnapshotRow, error)
	GetInventoryItem(ctx context.Context, id uint) (*models.InventoryItem, error)
	FindItemByBarcode(ctx context.Context, barcode string) (*models.InventoryItem, error)
	GetLevel(ctx context.Context, inventoryItemID uint, location string) (*models.InventoryLevel, error)
	ListLevels(ctx context.Context, f LevelFilter) ([]models.InventoryLevel, error)
	IncrementLevel(ctx context.Context, inventoryItemID uint, location string, delta int) (before, after int, err error)

	// scanning
	CreateSession(ctx context.Context, s *models.ScanningSession) error
	GetSession(ctx context.Context, id uint) (*models.ScanningSession, error)
	ListSessions(ctx context.Context, countID uint) ([]models.ScanningSession, error)
	CountActiveSessions(ctx context.Context, countID uint) (int64, error)
	CloseSession(ctx context.Context, id uint, at time.Time) (bool, error)
	IncrementSessionScans(ctx context.Context, id uint, at time.Time) (bool, error)
	ListStaleSessions(ctx context.Context, idleSince time.Time) ([]models.ScanningSession, error)
	CreateScan(ctx context.Context, s *models.ScannedItem) error
	GetScan(ctx context.Context, id uint) (*models.ScannedItem, error)
	FindScanByClientID(ctx context.Context, clientScanID string) (*models.ScannedItem, error)
	ListScans(ctx context.Context, f ScanFilter) ([]models.ScannedItem, error)
	VerifyScan(ctx context.Context, id uint, actorID uint, at time.Time) (bool, error)

	// adjustments & ledger
	CreateAdjustment(ctx context.Context, a *models.PhysicalStockAdjustment) error
	GetAdjustment(ctx context.Context, id uint) (*models.PhysicalStockAdjustment, error)
	ListAdjustments(ctx context.Context, countID uint) ([]models.PhysicalStockAdjustment, error)
	ClaimAdjustment(ctx context.Context, id uint, actorID uint, at time.Time) (bool, error)
	CreateMovement(ctx context.Context, m *models.StockMovement) error
	ListMovements(ctx context.Context, f MovementFilter) ([]models.StockMovement, error)
}
