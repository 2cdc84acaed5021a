package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/rfigueroa/bankfeed/pkg/config"
	"github.com/rfigueroa/bankfeed/pkg/mapping"
	"github.com/rfigueroa/bankfeed/pkg/models"
	"github.com/rfigueroa/bankfeed/pkg/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := log.New(io.Discard)
	registry := mapping.NewRegistry(logger)
	inst := &models.Institution{ID: "test-bank", Name: "Test Bank"}
	inst.AddMapping("Transaction Date", models.FieldDatePosted, models.MapDynamic).
		AddMapping("Description", models.FieldDescription, models.MapDynamic).
		AddMapping("Amount", models.FieldAmount, models.MapDynamic)
	if err := registry.Register(inst); err != nil {
		t.Fatal(err)
	}
	return New(&config.Config{}, store.NewMemStore(), registry, logger)
}

func postStatement(t *testing.T, srv *Server, institutionID, csvBody string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("statement", "statement.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(csvBody)); err != nil {
		t.Fatal(err)
	}
	if err := form.WriteField("account_id", "acct-1"); err != nil {
		t.Fatal(err)
	}
	if err := form.WriteField("institution_id", institutionID); err != nil {
		t.Fatal(err)
	}
	if err := form.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

const testStatement = "Transaction Date,Description,Amount\n" +
	"2025-03-01,Paycheck,10.83\n" +
	"2025-03-02,Groceries,-93.49\n" +
	"2025-03-03,Bad Row,not-a-number\n"

func TestImportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := postStatement(t, srv, "test-bank", testStatement)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Rows     int              `json:"rows"`
		Accepted int              `json:"accepted"`
		Inserted int              `json:"inserted"`
		Skipped  int              `json:"skipped"`
		Rejected []map[string]any `json:"rejected"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if body.Rows != 3 || body.Accepted != 2 || body.Inserted != 2 {
		t.Errorf("rows=%d accepted=%d inserted=%d", body.Rows, body.Accepted, body.Inserted)
	}
	if len(body.Rejected) != 1 {
		t.Fatalf("rejected = %v", body.Rejected)
	}

	// Same file again: nothing new lands.
	rec = postStatement(t, srv, "test-bank", testStatement)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Inserted != 0 || body.Skipped != 2 {
		t.Errorf("re-import: inserted=%d skipped=%d", body.Inserted, body.Skipped)
	}
}

func TestImportUnknownInstitution(t *testing.T) {
	rec := postStatement(t, newTestServer(t), "nope", testStatement)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	srv := newTestServer(t)
	if rec := postStatement(t, srv, "test-bank", testStatement); rec.Code != http.StatusOK {
		t.Fatalf("import failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/acct-1/balance", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Balance struct {
			Total  json.Number `json:"total"`
			ByDate []any       `json:"byDate"`
		} `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Balance.Total.String() != "-82.66" {
		t.Errorf("total = %s, want -82.66", body.Balance.Total)
	}
	if len(body.Balance.ByDate) != 2 {
		t.Errorf("byDate has %d points, want 2", len(body.Balance.ByDate))
	}
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	if rec := postStatement(t, srv, "test-bank", testStatement); rec.Code != http.StatusOK {
		t.Fatalf("import failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/acct-1/export", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("content type = %q", got)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("export has %d lines, want header + 2 rows", len(lines))
	}
}

func TestInstitutionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	body := `{"institutionId":"cu-1","name":"Credit Union","mappings":[` +
		`{"fromField":"Date","toField":"datePosted","mapType":"dynamic"},` +
		`{"fromField":"Amount","toField":"amount","mapType":"dynamic"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/institutions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/institutions", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list struct {
		Institutions []models.Institution `json:"institutions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Institutions) != 2 {
		t.Errorf("listed %d institutions, want 2", len(list.Institutions))
	}

	// Invalid mapping set must be rejected with a 422.
	bad := `{"institutionId":"cu-2","name":"Bad","mappings":[` +
		`{"fromField":"A","toField":"amount","mapType":"dynamic"},` +
		`{"fromField":"B","toField":"amount","mapType":"dynamic"}]}`
	req = httptest.NewRequest(http.MethodPost, "/api/institutions", strings.NewReader(bad))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestAccountEndpoints(t *testing.T) {
	srv := newTestServer(t)

	body := `{"id":"acct-1","institutionId":"test-bank","name":"Checking","accountType":"checking","interestStrategy":"simple"}`
	req := httptest.NewRequest(http.MethodPost, "/api/accounts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Same id again conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/accounts", strings.NewReader(body))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate account status = %d, want 409", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var list struct {
		Accounts []models.Account `json:"accounts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Accounts) != 1 || list.Accounts[0].Name != "Checking" {
		t.Errorf("accounts = %+v", list.Accounts)
	}
}
