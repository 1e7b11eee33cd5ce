package stockcount

import (
	"fmt"
	"testing"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/testdb"

	"github.com/shopspring/decimal"
)

func TestPopulateSnapshotsBookQuantities(t *testing.T) {
	f := newFixture(t)
	seeded := f.seedScenario(t)
	testdb.SeedItem(t, f.db, "8690009", "B", 7, "1.00")

	inactive := testdb.SeedItem(t, f.db, "8690010", "A", 3, "1.00")
	if err := f.db.Model(&inactive).Update("is_active", false).Error; err != nil {
		t.Fatal(err)
	}

	count, items := f.populated(t, "A")

	if len(items) != 3 {
		t.Fatalf("expected 3 lines at A, got %d", len(items))
	}
	wantQty := []int{10, 0, 25}
	for i, it := range items {
		if it.LineNumber != i+1 {
			t.Fatalf("line %d has number %d", i, it.LineNumber)
		}
		if it.InventoryItemID != seeded[i].ID || it.SystemQuantity != wantQty[i] {
			t.Fatalf("line %d snapshot = item %d qty %d", i+1, it.InventoryItemID, it.SystemQuantity)
		}
		if it.Status != models.CountItemStatusPending || it.Variance != 0 || !it.VarianceValue.IsZero() {
			t.Fatalf("line %d not a clean pending line: %+v", i+1, it)
		}
		if it.FirstCountQuantity != nil || it.SecondCountQuantity != nil || it.FinalCountQuantity != nil {
			t.Fatalf("line %d has counts before counting", i+1)
		}
		if !it.UnitCost.Equal(seeded[i].UnitCost) || it.Barcode != seeded[i].Barcode {
			t.Fatalf("line %d item fields not copied", i+1)
		}
	}

	got, err := f.svc.GetCount(f.ctx, count.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalItemsExpected != 3 {
		t.Fatalf("total_items_expected = %d", got.TotalItemsExpected)
	}
}

func TestPopulateAllLocations(t *testing.T) {
	f := newFixture(t)
	f.seedScenario(t)
	testdb.SeedItem(t, f.db, "8690009", "B", 7, "1.00")

	count := f.newCount(t, "")
	n, err := f.svc.Populate(f.ctx, supervisor, count.ID, nil)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 lines across locations, got %d", n)
	}

	loc := "B"
	n, err = f.svc.Populate(f.ctx, supervisor, count.ID, &loc)
	if err != nil {
		t.Fatalf("re-populate: %v", err)
	}
	if n != 1 {
		t.Fatalf("explicit location should narrow to 1 line, got %d", n)
	}
	items := f.items(t, count.ID)
	if len(items) != 1 || items[0].LineNumber != 1 || items[0].StorageLocation != "B" {
		t.Fatalf("lines not replaced: %+v", items)
	}
}

func TestPopulateOnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	f.seedScenario(t)
	count, _ := f.populated(t, "A")

	if _, err := f.svc.StartCount(f.ctx, supervisor, count.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.Populate(f.ctx, supervisor, count.ID, nil)
	expectCode(t, err, apperr.CodeAlreadyPopulated)

	if got := len(f.items(t, count.ID)); got != 3 {
		t.Fatalf("lines changed after rejected populate: %d", got)
	}
}

func TestPopulateWithNoStock(t *testing.T) {
	f := newFixture(t)
	count := f.newCount(t, "A")

	n, err := f.svc.Populate(f.ctx, supervisor, count.ID, nil)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no lines, got %d", n)
	}
}

func TestAddItemAppendsLine(t *testing.T) {
	f := newFixture(t)
	f.seedScenario(t)
	extra := testdb.SeedItem(t, f.db, "8690020", "B", 4, "3.00")
	count, _ := f.populated(t, "A")

	line, err := f.svc.AddItem(f.ctx, supervisor, count.ID, AddItemInput{InventoryItemID: extra.ID, StorageLocation: "B", Notes: "found on pallet"})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if line.ID == 0 || line.LineNumber != 4 || line.SystemQuantity != 4 || line.Notes != "found on pallet" {
		t.Fatalf("unexpected line %+v", line)
	}

	got, err := f.svc.GetCount(f.ctx, count.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalItemsExpected != 3 {
		t.Fatalf("manual line changed expected total to %d", got.TotalItemsExpected)
	}

	_, err = f.svc.AddItem(f.ctx, supervisor, count.ID, AddItemInput{InventoryItemID: extra.ID, StorageLocation: "B"})
	expectCode(t, err, apperr.CodeDuplicate)
}

func TestAddItemWithoutLevelSnapshotsZero(t *testing.T) {
	f := newFixture(t)
	f.seedScenario(t)
	extra := testdb.SeedItem(t, f.db, "8690021", "B", 4, "3.00")
	count, _ := f.populated(t, "A")

	line, err := f.svc.AddItem(f.ctx, supervisor, count.ID, AddItemInput{InventoryItemID: extra.ID})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if line.StorageLocation != "A" || line.SystemQuantity != 0 {
		t.Fatalf("expected zero snapshot at the count location, got %+v", line)
	}
}

func TestAddItemRejectsClosedCount(t *testing.T) {
	f := newFixture(t)
	items := f.seedScenario(t)
	count, _ := f.populated(t, "A")
	if _, err := f.svc.CancelCount(f.ctx, supervisor, count.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.AddItem(f.ctx, supervisor, count.ID, AddItemInput{InventoryItemID: items[0].ID})
	expectCode(t, err, apperr.CodeCountClosed)

	_, err = f.svc.AddItem(f.ctx, supervisor, count.ID, AddItemInput{})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPopulateLargeItemMaster(t *testing.T) {
	if testing.Short() {
		t.Skip("large seed")
	}
	f := newFixture(t)

	const n = 33000
	master := make([]models.InventoryItem, n)
	for i := range master {
		master[i] = models.InventoryItem{
			Barcode:     fmt.Sprintf("M%06d", i),
			Description: "bulk",
			UnitCost:    decimal.NewFromInt(2),
			IsActive:    true,
		}
	}
	if err := f.db.CreateInBatches(&master, 1000).Error; err != nil {
		t.Fatalf("seed items: %v", err)
	}
	levels := make([]models.InventoryLevel, n)
	for i := range levels {
		levels[i] = models.InventoryLevel{InventoryItemID: master[i].ID, StorageLocation: "A", QuantityAvailable: 3}
	}
	if err := f.db.CreateInBatches(&levels, 1000).Error; err != nil {
		t.Fatalf("seed levels: %v", err)
	}

	count := f.newCount(t, "A")
	added, err := f.svc.Populate(f.ctx, supervisor, count.ID, nil)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if added != n {
		t.Fatalf("added %d lines, want %d", added, n)
	}

	got, err := f.svc.GetCount(f.ctx, count.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalItemsExpected != n {
		t.Fatalf("total_items_expected = %d, want %d", got.TotalItemsExpected, n)
	}
}
