package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"stockcount-backend/internal/models"
	"stockcount-backend/internal/testdb"

	"github.com/gofiber/fiber/v2"
)

func TestWriteLogStoresBeforeAfter(t *testing.T) {
	db := testdb.New(t)
	svc := NewService(db, nil, nil)
	actor := models.Actor{ID: 7, Name: "Ayse"}

	err := svc.WriteLog(context.Background(), LogOptions{
		Actor:       actor,
		EntityType:  "physical_stock_count",
		EntityID:    3,
		Action:      models.AuditActionFinalize,
		Description: "count finalized",
		Before:      map[string]string{"status": "in_progress"},
		After:       map[string]string{"status": "completed"},
	})
	if err != nil {
		t.Fatalf("WriteLog: %v", err)
	}

	logs, err := svc.List(context.Background(), ListFilter{EntityType: "physical_stock_count", EntityID: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	got := logs[0]
	if got.UserID != 7 || got.UserName != "Ayse" {
		t.Fatalf("actor not recorded: %+v", got)
	}
	if got.BeforeData != `{"status":"in_progress"}` || got.AfterData != `{"status":"completed"}` {
		t.Fatalf("unexpected payloads: %s / %s", got.BeforeData, got.AfterData)
	}
}

func TestWriteLogNilPayloadIsJSONNull(t *testing.T) {
	db := testdb.New(t)
	svc := NewService(db, nil, nil)

	if err := svc.WriteLog(context.Background(), LogOptions{
		Actor:      models.SystemActor,
		EntityType: "scanning_session",
		EntityID:   1,
		Action:     models.AuditActionUpdate,
	}); err != nil {
		t.Fatal(err)
	}

	logs, _ := svc.List(context.Background(), ListFilter{})
	if len(logs) != 1 || logs[0].BeforeData != "null" || logs[0].AfterData != "null" {
		t.Fatalf("expected null payloads, got %+v", logs)
	}
}

func TestWriteLogForwardsToWebhook(t *testing.T) {
	var (
		mu       sync.Mutex
		received []webhookPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p webhookPayload
		if err := json.Unmarshal(body, &p); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	db := testdb.New(t)
	svc := NewService(db, NewForwarder(srv.URL, time.Second), nil)

	if err := svc.WriteLog(context.Background(), LogOptions{
		Actor:       models.Actor{ID: 1, Name: "admin"},
		EntityType:  "physical_stock_adjustment",
		EntityID:    9,
		Action:      models.AuditActionApply,
		Description: "adjustment applied",
	}); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 webhook call, got %d", len(received))
	}
	if received[0].EntityID != 9 || received[0].Action != models.AuditActionApply {
		t.Fatalf("unexpected payload %+v", received[0])
	}
}

func TestWebhookFailureDoesNotFailWrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	db := testdb.New(t)
	svc := NewService(db, NewForwarder(srv.URL, time.Second), nil)

	err := svc.WriteLog(context.Background(), LogOptions{
		Actor:      models.Actor{ID: 1, Name: "admin"},
		EntityType: "physical_stock_count",
		EntityID:   1,
		Action:     models.AuditActionCreate,
	})
	if err != nil {
		t.Fatalf("webhook failure leaked: %v", err)
	}
}

func TestNewForwarderDisabled(t *testing.T) {
	if NewForwarder("", 0) != nil {
		t.Fatal("expected nil forwarder for empty url")
	}
}

func TestListAuditLogsHandler(t *testing.T) {
	db := testdb.New(t)
	svc := NewService(db, nil, nil)
	ctx := context.Background()

	for i := uint(1); i <= 3; i++ {
		_ = svc.WriteLog(ctx, LogOptions{
			Actor:      models.Actor{ID: i, Name: "u"},
			EntityType: "physical_stock_count",
			EntityID:   i,
			Action:     models.AuditActionCreate,
		})
	}

	app := fiber.New()
	app.Get("/audit-logs", ListAuditLogsHandler(svc))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs?entity_id=2", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var out []AuditLogResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].EntityID != 2 {
		t.Fatalf("unexpected result %+v", out)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/audit-logs?entity_id=abc", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}
}
