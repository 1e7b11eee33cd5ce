package stockcount

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/auth"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/testdb"

	"github.com/gofiber/fiber/v2"
)

const testSecret = "test-secret-that-is-at-least-32-bytes!"

type apiFixture struct {
	*fixture
	app        *fiber.App
	supervisor string
	counter    string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	f := newFixture(t)

	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler(nil)})
	api := app.Group("/api", auth.JWTMiddleware(testSecret))
	RegisterRoutes(api, f.svc)

	token := func(name string, role models.UserRole) string {
		u := testdb.SeedUser(t, f.db, name, role)
		tok, err := auth.GenerateToken(testSecret, &u)
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}
	return &apiFixture{
		fixture:    f,
		app:        app,
		supervisor: token("Selin", models.RoleSupervisor),
		counter:    token("Mert", models.RoleCounter),
	}
}

func (a *apiFixture) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestCountLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	a.seedScenario(t)

	var count models.PhysicalStockCount
	if code := a.do(t, http.MethodPost, "/api/counts", a.supervisor, fiber.Map{
		"description":      "monthly",
		"count_date":       "2026-01-15",
		"storage_location": "A",
	}, &count); code != http.StatusCreated {
		t.Fatalf("create count: %d", code)
	}
	base := fmt.Sprintf("/api/counts/%d", count.ID)

	var populated map[string]int
	if code := a.do(t, http.MethodPost, base+"/populate", a.supervisor, nil, &populated); code != http.StatusOK || populated["itemsAdded"] != 3 {
		t.Fatalf("populate: %d %v", code, populated)
	}

	var session models.ScanningSession
	if code := a.do(t, http.MethodPost, base+"/scanning-sessions", a.counter, fiber.Map{"storage_zone": "A1"}, &session); code != http.StatusCreated {
		t.Fatalf("open session: %d", code)
	}

	var scan ScanResult
	code := a.do(t, http.MethodPost, fmt.Sprintf("/api/scanning-sessions/%d/scan", session.ID), a.counter, fiber.Map{"barcode": "999"}, &scan)
	if code != http.StatusBadRequest || scan.Success || scan.Message != "Item not found with this barcode" {
		t.Fatalf("unknown barcode: %d %+v", code, scan)
	}
	code = a.do(t, http.MethodPost, fmt.Sprintf("/api/scanning-sessions/%d/scan", session.ID), a.counter, fiber.Map{"barcode": "8690001", "quantity": 8}, &scan)
	if code != http.StatusOK || !scan.Success {
		t.Fatalf("scan: %d %+v", code, scan)
	}

	var items []models.PhysicalStockCountItem
	if code := a.do(t, http.MethodGet, base+"/items", a.counter, nil, &items); code != http.StatusOK || len(items) != 3 {
		t.Fatalf("list items: %d %d", code, len(items))
	}
	for i, qty := range []int{8, 0, 25} {
		path := fmt.Sprintf("/api/count-items/%d/count", items[i].ID)
		if code := a.do(t, http.MethodPost, path, a.counter, fiber.Map{"pass": "first", "quantity": qty}, nil); code != http.StatusOK {
			t.Fatalf("record line %d: %d", i+1, code)
		}
	}

	var eb errorBody
	if code := a.do(t, http.MethodPost, base+"/finalize", a.supervisor, nil, &eb); code != http.StatusBadRequest || eb.Code != apperr.CodeSessionsActive {
		t.Fatalf("finalize with open session: %d %+v", code, eb)
	}
	if code := a.do(t, http.MethodPut, fmt.Sprintf("/api/scanning-sessions/%d", session.ID), a.counter, fiber.Map{"status": "completed"}, nil); code != http.StatusOK {
		t.Fatalf("close session: %d", code)
	}

	var summary FinalizeSummary
	if code := a.do(t, http.MethodPost, base+"/finalize", a.supervisor, nil, &summary); code != http.StatusOK || summary.Discrepancies != 1 {
		t.Fatalf("finalize: %d %+v", code, summary)
	}

	var adj models.PhysicalStockAdjustment
	if code := a.do(t, http.MethodPost, base+"/adjustments", a.supervisor, fiber.Map{"reason": "January count"}, &adj); code != http.StatusCreated || len(adj.Items) != 1 {
		t.Fatalf("generate: %d %+v", code, adj)
	}

	eb = errorBody{}
	if code := a.do(t, http.MethodPost, base+"/adjustments", a.supervisor, nil, &eb); code != http.StatusBadRequest || eb.Code != apperr.CodeNothingToAdjust {
		t.Fatalf("second generate: %d %+v", code, eb)
	}

	applyPath := fmt.Sprintf("/api/adjustments/%d/apply", adj.ID)
	var applied map[string]bool
	if code := a.do(t, http.MethodPost, applyPath, a.supervisor, nil, &applied); code != http.StatusOK || !applied["applied"] {
		t.Fatalf("apply: %d %v", code, applied)
	}
	eb = errorBody{}
	if code := a.do(t, http.MethodPost, applyPath, a.supervisor, nil, &eb); code != http.StatusBadRequest || eb.Code != apperr.CodeAlreadyApplied {
		t.Fatalf("second apply: %d %+v", code, eb)
	}

	var report []VarianceLine
	if code := a.do(t, http.MethodGet, base+"/variance-report", a.counter, nil, &report); code != http.StatusOK || len(report) != 1 || !report[0].AdjustmentApplied {
		t.Fatalf("variance report: %d %+v", code, report)
	}
}

func TestRoleAndTokenChecks(t *testing.T) {
	a := newAPI(t)

	if code := a.do(t, http.MethodGet, "/api/counts", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", code)
	}
	if code := a.do(t, http.MethodPost, "/api/counts", a.counter, fiber.Map{}, nil); code != http.StatusForbidden {
		t.Fatalf("counter creating a count: %d", code)
	}

	count := a.newCount(t, "A")
	if code := a.do(t, http.MethodPost, fmt.Sprintf("/api/counts/%d/approve", count.ID), a.supervisor, nil, nil); code != http.StatusForbidden {
		t.Fatalf("supervisor approving: %d", code)
	}

	var eb errorBody
	if code := a.do(t, http.MethodGet, "/api/counts/777", a.counter, nil, &eb); code != http.StatusNotFound || eb.Code != apperr.CodeNotFound {
		t.Fatalf("unknown count: %d %+v", code, eb)
	}
	if code := a.do(t, http.MethodGet, "/api/counts/abc", a.counter, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", code)
	}
}

func TestRecordCountRequiresQuantity(t *testing.T) {
	a := newAPI(t)
	a.seedScenario(t)
	_, items := a.populated(t, "A")

	var eb errorBody
	code := a.do(t, http.MethodPost, fmt.Sprintf("/api/count-items/%d/count", items[0].ID), a.counter, fiber.Map{"pass": "first"}, &eb)
	if code != http.StatusBadRequest || eb.Code != apperr.CodeInvalidInput {
		t.Fatalf("missing quantity: %d %+v", code, eb)
	}

	eb = errorBody{}
	code = a.do(t, http.MethodPost, fmt.Sprintf("/api/count-items/%d/count", items[0].ID), a.counter, fiber.Map{"pass": "second", "quantity": 3}, &eb)
	if code != http.StatusBadRequest || eb.Code != apperr.CodeFirstCountRequired {
		t.Fatalf("second without first: %d %+v", code, eb)
	}
}

func TestImportAndExportOverHTTP(t *testing.T) {
	a := newAPI(t)
	a.seedScenario(t)
	count, _ := a.populated(t, "A")
	base := fmt.Sprintf("/api/counts/%d", count.ID)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("pass", "first"); err != nil {
		t.Fatal(err)
	}
	part, err := mw.CreateFormFile("file", "sheet.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := countSheet(t, [][]interface{}{{1, 8}, {2, 0}, {3, 25}}).WriteTo(part); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, base+"/count-sheet", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+a.counter)
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var result ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || result.Recorded != 3 {
		t.Fatalf("import: %d %+v", resp.StatusCode, result)
	}

	if code := a.do(t, http.MethodPost, base+"/finalize", a.supervisor, nil, nil); code != http.StatusOK {
		t.Fatalf("finalize: %d", code)
	}

	req = httptest.NewRequest(http.MethodGet, base+"/variance-report/export", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+a.counter)
	resp, err = a.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get(fiber.HeaderContentType) != xlsxContentType {
		t.Fatalf("export: %d %s", resp.StatusCode, resp.Header.Get(fiber.HeaderContentType))
	}
}
