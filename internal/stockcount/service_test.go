package stockcount

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/audit"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"
	"stockcount-backend/internal/testdb"

	"gorm.io/gorm"
)

var (
	supervisor = models.Actor{ID: 1, Name: "Selin"}
	counter    = models.Actor{ID: 2, Name: "Mert"}
	fixedNow   = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
)

type fixture struct {
	svc *Service
	db  *gorm.DB
	st  store.Store
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	st := store.NewGormStore(db)
	svc := NewService(st, audit.NewService(db, nil, nil), nil)
	svc.now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, db: db, st: st, ctx: context.Background()}
}

// seedScenario creates three items at "A" with book quantities 10, 0 and 25.
func (f *fixture) seedScenario(t *testing.T) []models.InventoryItem {
	t.Helper()
	return []models.InventoryItem{
		testdb.SeedItem(t, f.db, "8690001", "A", 10, "2.50"),
		testdb.SeedItem(t, f.db, "8690002", "A", 0, "4.00"),
		testdb.SeedItem(t, f.db, "8690003", "A", 25, "1.20"),
	}
}

func (f *fixture) newCount(t *testing.T, location string) *models.PhysicalStockCount {
	t.Helper()
	in := CreateCountInput{Description: "monthly count", CountType: models.CountTypeFull}
	if location != "" {
		in.StorageLocation = &location
	}
	count, err := f.svc.CreateCount(f.ctx, supervisor, in)
	if err != nil {
		t.Fatalf("CreateCount: %v", err)
	}
	return count
}

func (f *fixture) populated(t *testing.T, location string) (*models.PhysicalStockCount, []models.PhysicalStockCountItem) {
	t.Helper()
	count := f.newCount(t, location)
	if _, err := f.svc.Populate(f.ctx, supervisor, count.ID, nil); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	return count, f.items(t, count.ID)
}

func (f *fixture) items(t *testing.T, countID uint) []models.PhysicalStockCountItem {
	t.Helper()
	items, err := f.svc.ListCountItems(f.ctx, countID, store.ItemFilter{})
	if err != nil {
		t.Fatalf("ListCountItems: %v", err)
	}
	return items
}

func (f *fixture) record(t *testing.T, itemID uint, pass models.CountPass, qty int) {
	t.Helper()
	if _, err := f.svc.RecordCount(f.ctx, counter, itemID, pass, qty); err != nil {
		t.Fatalf("RecordCount(%d, %s, %d): %v", itemID, pass, qty, err)
	}
}

func (f *fixture) level(t *testing.T, itemID uint, location string) int {
	t.Helper()
	lvl, err := f.st.GetLevel(f.ctx, itemID, location)
	if err != nil {
		t.Fatalf("GetLevel: %v", err)
	}
	return lvl.QuantityAvailable
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil error", code)
	}
	if !apperr.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func (f *fixture) auditFor(t *testing.T, entityType string, id uint) []models.AuditLog {
	t.Helper()
	var logs []models.AuditLog
	if err := f.db.Where("entity_type = ? AND entity_id = ?", entityType, id).Order("id").Find(&logs).Error; err != nil {
		t.Fatalf("audit rows: %v", err)
	}
	return logs
}

// startEntries returns the count's audit rows for the Pending to InProgress move.
func (f *fixture) startEntries(t *testing.T, countID uint) []models.AuditLog {
	t.Helper()
	var out []models.AuditLog
	for _, l := range f.auditFor(t, entityCount, countID) {
		if strings.Contains(l.Description, " started") {
			out = append(out, l)
		}
	}
	return out
}

func decodeAudit(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode audit data %q: %v", raw, err)
	}
	return m
}

func expectStartEntry(t *testing.T, logs []models.AuditLog, actor models.Actor) {
	t.Helper()
	if len(logs) != 1 {
		t.Fatalf("expected one start entry, got %d", len(logs))
	}
	l := logs[0]
	if l.Action != models.AuditActionUpdate || l.UserID != actor.ID {
		t.Fatalf("unexpected start entry %+v", l)
	}
	if got := decodeAudit(t, l.BeforeData)["status"]; got != string(models.CountStatusPending) {
		t.Fatalf("before status = %v", got)
	}
	if got := decodeAudit(t, l.AfterData)["status"]; got != string(models.CountStatusInProgress) {
		t.Fatalf("after status = %v", got)
	}
}

func TestMissingActorIsRejected(t *testing.T) {
	f := newFixture(t)
	f.seedScenario(t)
	count, items := f.populated(t, "A")

	var none models.Actor
	_, err := f.svc.CreateCount(f.ctx, none, CreateCountInput{})
	expectCode(t, err, apperr.CodeMissingActor)

	_, err = f.svc.RecordCount(f.ctx, none, items[0].ID, models.CountPassFirst, 1)
	expectCode(t, err, apperr.CodeMissingActor)

	_, err = f.svc.Finalize(f.ctx, none, count.ID)
	expectCode(t, err, apperr.CodeMissingActor)

	_, err = f.svc.Apply(f.ctx, none, 1)
	expectCode(t, err, apperr.CodeMissingActor)
}

func TestAuditTrailAttributesActor(t *testing.T) {
	f := newFixture(t)
	f.seedScenario(t)
	count, _ := f.populated(t, "A")

	var logs []models.AuditLog
	if err := f.db.Where("entity_type = ? AND entity_id = ?", entityCount, count.ID).Order("id").Find(&logs).Error; err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected create and populate entries, got %d", len(logs))
	}
	if logs[1].Action != models.AuditActionPopulate || logs[1].UserID != supervisor.ID || logs[1].UserName != supervisor.Name {
		t.Fatalf("unexpected audit entry %+v", logs[1])
	}
}
