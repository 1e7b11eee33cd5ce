package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"
	"stockcount-backend/internal/testdb"

	"github.com/gofiber/fiber/v2"
)

func newApp(t *testing.T) (*fiber.App, store.Store) {
	t.Helper()
	db := testdb.New(t)
	st := store.NewGormStore(db)

	testdb.SeedItem(t, db, "111", "A", 10, "2.50")
	testdb.SeedItem(t, db, "222", "B", 4, "1.00")

	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler(nil)})
	app.Get("/inventory/levels", ListLevelsHandler(st))
	app.Get("/inventory/items/barcode/:barcode", GetItemByBarcodeHandler(st))
	app.Get("/stock-movements", ListMovementsHandler(st))
	return app, st
}

func getJSON(t *testing.T, app *fiber.App, path string, out any) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		t.Fatal(err)
	}
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestListLevelsFiltersByLocation(t *testing.T) {
	app, _ := newApp(t)

	var levels []LevelResponse
	if code := getJSON(t, app, "/inventory/levels?storage_location=B", &levels); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(levels) != 1 || levels[0].QuantityAvailable != 4 {
		t.Fatalf("unexpected levels %+v", levels)
	}

	if code := getJSON(t, app, "/inventory/levels?inventory_item_id=x", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestGetItemByBarcode(t *testing.T) {
	app, _ := newApp(t)

	var item ItemResponse
	if code := getJSON(t, app, "/inventory/items/barcode/111", &item); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if item.Barcode != "111" || len(item.Levels) != 1 || item.Levels[0].StorageLocation != "A" {
		t.Fatalf("unexpected item %+v", item)
	}

	if code := getJSON(t, app, "/inventory/items/barcode/999", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestListMovementsByReference(t *testing.T) {
	app, st := newApp(t)
	ctx := context.Background()

	for _, ref := range []uint{1, 2} {
		if err := st.CreateMovement(ctx, &models.StockMovement{
			InventoryItemID: 1,
			StorageLocation: "A",
			MovementType:    models.MovementAdjustmentOut,
			QuantityBefore:  10,
			QuantityMoved:   2,
			QuantityAfter:   8,
			ReferenceType:   models.ReferencePhysicalStockAdjustment,
			ReferenceID:     ref,
			CreatedBy:       1,
		}); err != nil {
			t.Fatal(err)
		}
	}

	var out []MovementResponse
	if code := getJSON(t, app, "/stock-movements?reference_type=PhysicalStockAdjustment&reference_id=2", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(out) != 1 || out[0].ReferenceID != 2 || out[0].MovementType != "Adjustment Out" {
		t.Fatalf("unexpected movements %+v", out)
	}
}
