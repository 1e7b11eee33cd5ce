package store

import (
	"context"
	"time"

	"stockcount-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of gorm (postgres in production).
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) CountNumbersWithPrefix(ctx context.Context, kind NumberKind, prefix string) (int64, error) {
	var (
		n     int64
		model any
		col   string
	)
	switch kind {
	case NumberAdjustment:
		model, col = &models.PhysicalStockAdjustment{}, "adjustment_number"
	default:
		model, col = &models.PhysicalStockCount{}, "count_number"
	}
	err := s.db.WithContext(ctx).Model(model).Where(col+" LIKE ?", prefix+"%").Count(&n).Error
	return n, wrap("count numbers", "number", err)
}

// -------------------------
// Counts
// -------------------------

func (s *GormStore) CreateCount(ctx context.Context, c *models.PhysicalStockCount) error {
	return wrap("create count", "count", s.db.WithContext(ctx).Create(c).Error)
}

func (s *GormStore) GetCount(ctx context.Context, id uint) (*models.PhysicalStockCount, error) {
	var c models.PhysicalStockCount
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, wrap("get count", "count", err)
	}
	return &c, nil
}

func (s *GormStore) GetCountByNumber(ctx context.Context, number string) (*models.PhysicalStockCount, error) {
	var c models.PhysicalStockCount
	if err := s.db.WithContext(ctx).First(&c, "count_number = ?", number).Error; err != nil {
		return nil, wrap("get count by number", "count", err)
	}
	return &c, nil
}

func (s *GormStore) ListCounts(ctx context.Context, f CountFilter) ([]models.PhysicalStockCount, error) {
	q := s.db.WithContext(ctx).Model(&models.PhysicalStockCount{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.StorageLocation != "" {
		q = q.Where("storage_location = ?", f.StorageLocation)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var counts []models.PhysicalStockCount
	err := q.Order("count_date DESC, id DESC").Find(&counts).Error
	return counts, wrap("list counts", "count", err)
}

func (s *GormStore) SaveCount(ctx context.Context, c *models.PhysicalStockCount) error {
	return wrap("save count", "count", s.db.WithContext(ctx).Save(c).Error)
}

func (s *GormStore) UpdateCountIfStatus(ctx context.Context, id uint, status models.CountStatus, fields map[string]any) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.PhysicalStockCount{}).
		Where("id = ? AND status = ?", id, status).
		Updates(fields)
	if res.Error != nil {
		return false, wrap("update count", "count", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) ApproveCount(ctx context.Context, id uint, actorID uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.PhysicalStockCount{}).
		Where("id = ? AND status = ? AND approved_at IS NULL", id, models.CountStatusCompleted).
		Updates(map[string]any{"approved_by": actorID, "approved_at": at})
	if res.Error != nil {
		return false, wrap("approve count", "count", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) DeleteCount(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessions := tx.Model(&models.ScanningSession{}).Select("id").Where("physical_stock_count_id = ?", id)
		if err := tx.Where("scanning_session_id IN (?)", sessions).Delete(&models.ScannedItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("physical_stock_count_id = ?", id).Delete(&models.ScanningSession{}).Error; err != nil {
			return err
		}
		if err := tx.Where("physical_stock_count_id = ?", id).Delete(&models.PhysicalStockCountItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.PhysicalStockCount{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return wrap("delete count", "count", err)
}

// -------------------------
// Count items
// -------------------------

func (s *GormStore) CreateCountItems(ctx context.Context, items []models.PhysicalStockCountItem) error {
	if len(items) == 0 {
		return nil
	}
	return wrap("create count items", "count item", s.db.WithContext(ctx).CreateInBatches(&items, 200).Error)
}

func (s *GormStore) DeleteCountItems(ctx context.Context, countID uint) error {
	err := s.db.WithContext(ctx).Where("physical_stock_count_id = ?", countID).Delete(&models.PhysicalStockCountItem{}).Error
	return wrap("delete count items", "count item", err)
}

func (s *GormStore) GetCountItem(ctx context.Context, id uint) (*models.PhysicalStockCountItem, error) {
	var item models.PhysicalStockCountItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, wrap("get count item", "count item", err)
	}
	return &item, nil
}

func (s *GormStore) ListCountItems(ctx context.Context, countID uint, f ItemFilter) ([]models.PhysicalStockCountItem, error) {
	q := s.db.WithContext(ctx).Where("physical_stock_count_id = ?", countID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OnlyVariance {
		q = q.Where("variance <> 0")
	}
	var items []models.PhysicalStockCountItem
	err := q.Order("line_number ASC").Find(&items).Error
	return items, wrap("list count items", "count item", err)
}

func (s *GormStore) SaveCountItem(ctx context.Context, item *models.PhysicalStockCountItem) error {
	return wrap("save count item", "count item", s.db.WithContext(ctx).Save(item).Error)
}

func (s *GormStore) MaxLineNumber(ctx context.Context, countID uint) (int, error) {
	var last int
	err := s.db.WithContext(ctx).Model(&models.PhysicalStockCountItem{}).
		Where("physical_stock_count_id = ?", countID).
		Select("COALESCE(MAX(line_number), 0)").
		Scan(&last).Error
	return last, wrap("max line number", "count item", err)
}

func (s *GormStore) FindCountItemForInventory(ctx context.Context, countID, inventoryItemID uint, location string) (*models.PhysicalStockCountItem, error) {
	q := s.db.WithContext(ctx).Where("physical_stock_count_id = ? AND inventory_item_id = ?", countID, inventoryItemID)
	if location != "" {
		q = q.Where("storage_location = ?", location)
	}
	var item models.PhysicalStockCountItem
	if err := q.Order("line_number ASC").First(&item).Error; err != nil {
		return nil, wrap("find count item", "count item", err)
	}
	return &item, nil
}

func (s *GormStore) ListItemsPendingAdjustment(ctx context.Context, countID uint) ([]models.PhysicalStockCountItem, error) {
	db := s.db.WithContext(ctx)
	onAdjustment := db.Model(&models.PhysicalStockAdjustmentItem{}).Select("physical_stock_count_item_id")

	var items []models.PhysicalStockCountItem
	err := db.
		Where("physical_stock_count_id = ? AND adjustment_required = ? AND adjustment_applied = ?", countID, true, false).
		Where("id NOT IN (?)", onAdjustment).
		Order("line_number ASC").
		Find(&items).Error
	return items, wrap("list items pending adjustment", "count item", err)
}

func (s *GormStore) MarkCountItemAdjusted(ctx context.Context, id uint, actorID uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.PhysicalStockCountItem{}).
		Where("id = ? AND adjustment_applied = ?", id, false).
		Updates(map[string]any{
			"adjustment_applied":    true,
			"adjustment_applied_by": actorID,
			"adjustment_applied_at": at,
		})
	if res.Error != nil {
		return false, wrap("mark item adjusted", "count item", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// -------------------------
// Inventory snapshot source
// -------------------------

// snapshotScan is the flat shape of one joined level/item row.
type snapshotScan struct {
	LevelID           uint
	InventoryItemID   uint
	StorageLocation   string
	QuantityAvailable int
	QuantityReserved  int
	SupplierCode      string
	Barcode           string
	Description       string
	UnitCost          decimal.Decimal
	IsActive          bool
}

// ListSnapshot joins levels to active items in one statement, so the item
// master size never turns into bind parameters.
func (s *GormStore) ListSnapshot(ctx context.Context, location *string) ([]SnapshotRow, error) {
	q := s.db.WithContext(ctx).Table("inventory_levels").
		Select(`inventory_levels.id AS level_id,
			inventory_levels.inventory_item_id,
			inventory_levels.storage_location,
			inventory_levels.quantity_available,
			inventory_levels.quantity_reserved,
			inventory_items.supplier_code,
			inventory_items.barcode,
			inventory_items.description,
			inventory_items.unit_cost,
			inventory_items.is_active`).
		Joins("JOIN inventory_items ON inventory_items.id = inventory_levels.inventory_item_id").
		Where("inventory_items.is_active = ?", true)
	if location != nil {
		q = q.Where("inventory_levels.storage_location = ?", *location)
	}

	var flat []snapshotScan
	err := q.Order("inventory_levels.inventory_item_id ASC, inventory_levels.storage_location ASC").Scan(&flat).Error
	if err != nil {
		return nil, wrap("list snapshot", "inventory level", err)
	}

	rows := make([]SnapshotRow, 0, len(flat))
	for _, r := range flat {
		rows = append(rows, SnapshotRow{
			Item: models.InventoryItem{
				ID:           r.InventoryItemID,
				SupplierCode: r.SupplierCode,
				Barcode:      r.Barcode,
				Description:  r.Description,
				UnitCost:     r.UnitCost,
				IsActive:     r.IsActive,
			},
			Level: models.InventoryLevel{
				ID:                r.LevelID,
				InventoryItemID:   r.InventoryItemID,
				StorageLocation:   r.StorageLocation,
				QuantityAvailable: r.QuantityAvailable,
				QuantityReserved:  r.QuantityReserved,
			},
		})
	}
	return rows, nil
}

func (s *GormStore) GetInventoryItem(ctx context.Context, id uint) (*models.InventoryItem, error) {
	var it models.InventoryItem
	if err := s.db.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		return nil, wrap("get inventory item", "inventory item", err)
	}
	return &it, nil
}

func (s *GormStore) FindItemByBarcode(ctx context.Context, barcode string) (*models.InventoryItem, error) {
	var it models.InventoryItem
	if err := s.db.WithContext(ctx).First(&it, "barcode = ?", barcode).Error; err != nil {
		return nil, wrap("find item by barcode", "inventory item", err)
	}
	return &it, nil
}

func (s *GormStore) GetLevel(ctx context.Context, inventoryItemID uint, location string) (*models.InventoryLevel, error) {
	var lvl models.InventoryLevel
	err := s.db.WithContext(ctx).
		First(&lvl, "inventory_item_id = ? AND storage_location = ?", inventoryItemID, location).Error
	if err != nil {
		return nil, wrap("get level", "inventory level", err)
	}
	return &lvl, nil
}

func (s *GormStore) ListLevels(ctx context.Context, f LevelFilter) ([]models.InventoryLevel, error) {
	q := s.db.WithContext(ctx).Model(&models.InventoryLevel{})
	if f.InventoryItemID != 0 {
		q = q.Where("inventory_item_id = ?", f.InventoryItemID)
	}
	if f.StorageLocation != "" {
		q = q.Where("storage_location = ?", f.StorageLocation)
	}
	var levels []models.InventoryLevel
	err := q.Order("inventory_item_id ASC, storage_location ASC").Find(&levels).Error
	return levels, wrap("list levels", "inventory level", err)
}

// IncrementLevel adds delta with one INSERT .. ON CONFLICT DO UPDATE, so a
// missing row and concurrent writers are both handled by the unique
// (item, location) index. Inside a transaction the row stays locked until
// commit, so the value read back afterwards is our own.
func (s *GormStore) IncrementLevel(ctx context.Context, inventoryItemID uint, location string, delta int) (int, int, error) {
	db := s.db.WithContext(ctx)
	now := time.Now()

	lvl := models.InventoryLevel{
		InventoryItemID:   inventoryItemID,
		StorageLocation:   location,
		QuantityAvailable: delta,
		UpdatedAt:         now,
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "inventory_item_id"}, {Name: "storage_location"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity_available": gorm.Expr("inventory_levels.quantity_available + ?", delta),
			"updated_at":         now,
		}),
	}).Create(&lvl).Error
	if err != nil {
		return 0, 0, wrap("increment level", "inventory level", err)
	}

	var after models.InventoryLevel
	if err := db.First(&after, "inventory_item_id = ? AND storage_location = ?", inventoryItemID, location).Error; err != nil {
		return 0, 0, wrap("read level", "inventory level", err)
	}
	return after.QuantityAvailable - delta, after.QuantityAvailable, nil
}

// -------------------------
// Scanning
// -------------------------

func (s *GormStore) CreateSession(ctx context.Context, sess *models.ScanningSession) error {
	return wrap("create session", "scanning session", s.db.WithContext(ctx).Create(sess).Error)
}

func (s *GormStore) GetSession(ctx context.Context, id uint) (*models.ScanningSession, error) {
	var sess models.ScanningSession
	if err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error; err != nil {
		return nil, wrap("get session", "scanning session", err)
	}
	return &sess, nil
}

func (s *GormStore) ListSessions(ctx context.Context, countID uint) ([]models.ScanningSession, error) {
	var sessions []models.ScanningSession
	err := s.db.WithContext(ctx).
		Where("physical_stock_count_id = ?", countID).
		Order("started_at ASC, id ASC").
		Find(&sessions).Error
	return sessions, wrap("list sessions", "scanning session", err)
}

func (s *GormStore) CountActiveSessions(ctx context.Context, countID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ScanningSession{}).
		Where("physical_stock_count_id = ? AND status = ?", countID, models.SessionStatusActive).
		Count(&n).Error
	return n, wrap("count active sessions", "scanning session", err)
}

func (s *GormStore) CloseSession(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.ScanningSession{}).
		Where("id = ? AND status = ?", id, models.SessionStatusActive).
		Updates(map[string]any{"status": models.SessionStatusCompleted, "completed_at": at})
	if res.Error != nil {
		return false, wrap("close session", "scanning session", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) IncrementSessionScans(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.ScanningSession{}).
		Where("id = ? AND status = ?", id, models.SessionStatusActive).
		Updates(map[string]any{
			"total_scans_completed": gorm.Expr("total_scans_completed + 1"),
			"last_scan_at":          at,
		})
	if res.Error != nil {
		return false, wrap("increment session scans", "scanning session", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) ListStaleSessions(ctx context.Context, idleSince time.Time) ([]models.ScanningSession, error) {
	var sessions []models.ScanningSession
	err := s.db.WithContext(ctx).
		Where("status = ? AND COALESCE(last_scan_at, started_at) < ?", models.SessionStatusActive, idleSince).
		Order("id ASC").
		Find(&sessions).Error
	return sessions, wrap("list stale sessions", "scanning session", err)
}

func (s *GormStore) CreateScan(ctx context.Context, scan *models.ScannedItem) error {
	return wrap("create scan", "scan", s.db.WithContext(ctx).Create(scan).Error)
}

func (s *GormStore) GetScan(ctx context.Context, id uint) (*models.ScannedItem, error) {
	var scan models.ScannedItem
	if err := s.db.WithContext(ctx).First(&scan, "id = ?", id).Error; err != nil {
		return nil, wrap("get scan", "scan", err)
	}
	return &scan, nil
}

func (s *GormStore) FindScanByClientID(ctx context.Context, clientScanID string) (*models.ScannedItem, error) {
	var scan models.ScannedItem
	if err := s.db.WithContext(ctx).First(&scan, "client_scan_id = ?", clientScanID).Error; err != nil {
		return nil, wrap("find scan", "scan", err)
	}
	return &scan, nil
}

func (s *GormStore) ListScans(ctx context.Context, f ScanFilter) ([]models.ScannedItem, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&models.ScannedItem{})
	if f.SessionID != 0 {
		q = q.Where("scanning_session_id = ?", f.SessionID)
	}
	if f.CountID != 0 {
		sessions := db.Model(&models.ScanningSession{}).Select("id").Where("physical_stock_count_id = ?", f.CountID)
		q = q.Where("scanning_session_id IN (?)", sessions)
	}
	var scans []models.ScannedItem
	err := q.Order("scanned_at ASC, id ASC").Find(&scans).Error
	return scans, wrap("list scans", "scan", err)
}

func (s *GormStore) VerifyScan(ctx context.Context, id uint, actorID uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.ScannedItem{}).
		Where("id = ? AND verified = ?", id, false).
		Updates(map[string]any{"verified": true, "verified_by": actorID, "verified_at": at})
	if res.Error != nil {
		return false, wrap("verify scan", "scan", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// -------------------------
// Adjustments & ledger
// -------------------------

// CreateAdjustment inserts the header together with its Items.
func (s *GormStore) CreateAdjustment(ctx context.Context, a *models.PhysicalStockAdjustment) error {
	return wrap("create adjustment", "adjustment", s.db.WithContext(ctx).Create(a).Error)
}

func (s *GormStore) GetAdjustment(ctx context.Context, id uint) (*models.PhysicalStockAdjustment, error) {
	var a models.PhysicalStockAdjustment
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, wrap("get adjustment", "adjustment", err)
	}
	return &a, nil
}

func (s *GormStore) ListAdjustments(ctx context.Context, countID uint) ([]models.PhysicalStockAdjustment, error) {
	var list []models.PhysicalStockAdjustment
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("physical_stock_count_id = ?", countID).
		Order("id ASC").
		Find(&list).Error
	return list, wrap("list adjustments", "adjustment", err)
}

// ClaimAdjustment flips Draft to Applied. Only one caller can win the row.
func (s *GormStore) ClaimAdjustment(ctx context.Context, id uint, actorID uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.PhysicalStockAdjustment{}).
		Where("id = ? AND status = ?", id, models.AdjustmentStatusDraft).
		Updates(map[string]any{
			"status":     models.AdjustmentStatusApplied,
			"applied_by": actorID,
			"applied_at": at,
		})
	if res.Error != nil {
		return false, wrap("claim adjustment", "adjustment", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) CreateMovement(ctx context.Context, m *models.StockMovement) error {
	return wrap("create movement", "stock movement", s.db.WithContext(ctx).Create(m).Error)
}

func (s *GormStore) ListMovements(ctx context.Context, f MovementFilter) ([]models.StockMovement, error) {
	q := s.db.WithContext(ctx).Model(&models.StockMovement{})
	if f.InventoryItemID != 0 {
		q = q.Where("inventory_item_id = ?", f.InventoryItemID)
	}
	if f.ReferenceType != "" {
		q = q.Where("reference_type = ?", f.ReferenceType)
	}
	if f.ReferenceID != 0 {
		q = q.Where("reference_id = ?", f.ReferenceID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var list []models.StockMovement
	err := q.Order("created_at ASC, id ASC").Find(&list).Error
	return list, wrap("list movements", "stock movement", err)
}
