package inventory

import (
	"strconv"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type LevelResponse struct {
	InventoryItemID   uint   `json:"inventory_item_id"`
	StorageLocation   string `json:"storage_location"`
	QuantityAvailable int    `json:"quantity_available"`
	QuantityReserved  int    `json:"quantity_reserved"`
	UpdatedAt         string `json:"updated_at"`
}

type ItemResponse struct {
	ID           uint            `json:"id"`
	SupplierCode string          `json:"supplier_code"`
	Barcode      string          `json:"barcode"`
	Description  string          `json:"description"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	IsActive     bool            `json:"is_active"`
	Levels       []LevelResponse `json:"levels"`
}

type MovementResponse struct {
	ID              uint   `json:"id"`
	InventoryItemID uint   `json:"inventory_item_id"`
	StorageLocation string `json:"storage_location"`
	MovementType    string `json:"movement_type"`
	QuantityBefore  int    `json:"quantity_before"`
	QuantityMoved   int    `json:"quantity_moved"`
	QuantityAfter   int    `json:"quantity_after"`
	ReferenceType   string `json:"reference_type"`
	ReferenceID     uint   `json:"reference_id"`
	Reason          string `json:"reason"`
	CreatedBy       uint   `json:"created_by"`
	CreatedAt       string `json:"created_at"`
}

func toLevelResponse(l models.InventoryLevel) LevelResponse {
	return LevelResponse{
		InventoryItemID:   l.InventoryItemID,
		StorageLocation:   l.StorageLocation,
		QuantityAvailable: l.QuantityAvailable,
		QuantityReserved:  l.QuantityReserved,
		UpdatedAt:         l.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func queryUint(c *fiber.Ctx, key string) (uint, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid " + key)
	}
	return uint(n), nil
}

// GET /api/inventory/levels?inventory_item_id=1&storage_location=A
func ListLevelsHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		itemID, err := queryUint(c, "inventory_item_id")
		if err != nil {
			return err
		}

		levels, err := st.ListLevels(c.UserContext(), store.LevelFilter{
			InventoryItemID: itemID,
			StorageLocation: c.Query("storage_location"),
		})
		if err != nil {
			return err
		}

		resp := make([]LevelResponse, 0, len(levels))
		for _, l := range levels {
			resp = append(resp, toLevelResponse(l))
		}
		return c.JSON(resp)
	}
}

// GET /api/inventory/items/barcode/:barcode
func GetItemByBarcodeHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := st.FindItemByBarcode(c.UserContext(), c.Params("barcode"))
		if err != nil {
			return err
		}

		levels, err := st.ListLevels(c.UserContext(), store.LevelFilter{InventoryItemID: item.ID})
		if err != nil {
			return err
		}

		resp := ItemResponse{
			ID:           item.ID,
			SupplierCode: item.SupplierCode,
			Barcode:      item.Barcode,
			Description:  item.Description,
			UnitCost:     item.UnitCost,
			IsActive:     item.IsActive,
			Levels:       make([]LevelResponse, 0, len(levels)),
		}
		for _, l := range levels {
			resp.Levels = append(resp.Levels, toLevelResponse(l))
		}
		return c.JSON(resp)
	}
}

// GET /api/stock-movements?inventory_item_id=1&reference_type=PhysicalStockAdjustment&reference_id=3
func ListMovementsHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		itemID, err := queryUint(c, "inventory_item_id")
		if err != nil {
			return err
		}
		refID, err := queryUint(c, "reference_id")
		if err != nil {
			return err
		}

		movements, err := st.ListMovements(c.UserContext(), store.MovementFilter{
			InventoryItemID: itemID,
			ReferenceType:   c.Query("reference_type"),
			ReferenceID:     refID,
			Limit:           c.QueryInt("limit", 500),
		})
		if err != nil {
			return err
		}

		resp := make([]MovementResponse, 0, len(movements))
		for _, m := range movements {
			resp = append(resp, MovementResponse{
				ID:              m.ID,
				InventoryItemID: m.InventoryItemID,
				StorageLocation: m.StorageLocation,
				MovementType:    string(m.MovementType),
				QuantityBefore:  m.QuantityBefore,
				QuantityMoved:   m.QuantityMoved,
				QuantityAfter:   m.QuantityAfter,
				ReferenceType:   m.ReferenceType,
				ReferenceID:     m.ReferenceID,
				Reason:          m.Reason,
				CreatedBy:       m.CreatedBy,
				CreatedAt:       m.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(resp)
	}
}
