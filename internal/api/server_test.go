package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/udhar-khata/khata/internal/app/ledger"
	"github.com/udhar-khata/khata/internal/app/remind"
	"github.com/udhar-khata/khata/internal/domain"
	"github.com/udhar-khata/khata/internal/infra/memory"
	"github.com/udhar-khata/khata/internal/infra/observability"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

func setupServer(t *testing.T) (*Server, *ledger.Ledger) {
	t.Helper()
	l, err := ledger.Open(context.Background(), memory.NewStore())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return NewServer(l, remind.New("")), l
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp
}

func errorType(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	e, ok := decode(t, w)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no error object: %s", w.Body.String())
	}
	return e["type"].(string)
}

// ─── Server Tests ───────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	s, _ := setupServer(t)
	w := do(t, s.Handler(), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if decode(t, w)["status"] != "ok" {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := setupServer(t)
	w := do(t, s.Handler(), http.MethodOptions, "/api/customers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PATCH") {
		t.Errorf("Allow-Methods = %q, want PATCH", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, l := setupServer(t)
	if w := do(t, s.Handler(), http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("metrics disabled: expected 404, got %d", w.Code)
	}

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	m.ObserveState(len(l.Customers()), l.Totals())
	s.EnableMetrics(reg)

	w := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "khata_ledger_customers") {
		t.Errorf("metrics output missing khata_ledger_customers:\n%s", w.Body.String())
	}
}

// ─── Customer Tests ─────────────────────────────────────────────────────────

func TestAddAndGetCustomer(t *testing.T) {
	s, _ := setupServer(t)
	h := s.Handler()

	w := do(t, h, http.MethodPost, "/api/customers", `{"name":"Asha","phone":"9000000001"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	id := created["id"].(string)
	if created["balance"] != float64(0) || created["standing"] != "settled" {
		t.Errorf("new customer = %v", created)
	}
	if txs, ok := created["transactions"].([]interface{}); !ok || len(txs) != 0 {
		t.Errorf("transactions = %v, want []", created["transactions"])
	}

	w = do(t, h, http.MethodGet, "/api/customers/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode(t, w); got["name"] != "Asha" || got["initials"] != "AS" {
		t.Errorf("customer = %v", got)
	}
}

func TestAddCustomer_Validation(t *testing.T) {
	s, l := setupServer(t)
	h := s.Handler()

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"phone":"1"}`},
		{"empty name", `{"name":"","phone":"1"}`},
		{"not json", `name=Asha`},
		{"unknown field", `{"name":"Asha","email":"a@b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/customers", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if typ := errorType(t, w); typ != "invalid_request" {
				t.Errorf("error type = %q", typ)
			}
		})
	}
	if n := len(l.Customers()); n != 0 {
		t.Errorf("customers = %d after rejected requests, want 0", n)
	}
}

func TestAddCustomer_ValidationDetails(t *testing.T) {
	s, _ := setupServer(t)
	w := do(t, s.Handler(), http.MethodPost, "/api/customers", `{"phone":"1"}`)
	e := decode(t, w)["error"].(map[string]interface{})
	details := e["details"].([]interface{})
	if len(details) != 1 {
		t.Fatalf("details = %v", details)
	}
	d := details[0].(map[string]interface{})
	if d["field"] != "name" || d["type"] != "required" {
		t.Errorf("detail = %v", d)
	}
}

func TestListCustomers_Search(t *testing.T) {
	s, l := setupServer(t)
	ctx := context.Background()
	l.AddCustomer(ctx, "Ravi", "9000000002")
	l.AddCustomer(ctx, "Asha", "9000000001")

	w := do(t, s.Handler(), http.MethodGet, "/api/customers", "")
	all := decode(t, w)["customers"].([]interface{})
	if len(all) != 2 || all[0].(map[string]interface{})["name"] != "Ravi" {
		t.Errorf("list = %v", all)
	}

	w = do(t, s.Handler(), http.MethodGet, "/api/customers?q=ash", "")
	found := decode(t, w)["customers"].([]interface{})
	if len(found) != 1 || found[0].(map[string]interface{})["name"] != "Asha" {
		t.Errorf("search = %v", found)
	}
}

func TestDeleteCustomer(t *testing.T) {
	s, l := setupServer(t)
	c, _ := l.AddCustomer(context.Background(), "Asha", "1")
	h := s.Handler()

	if w := do(t, h, http.MethodDelete, "/api/customers/"+c.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w := do(t, h, http.MethodDelete, "/api/customers/"+c.ID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
	if typ := errorType(t, w); typ != "not_found" {
		t.Errorf("error type = %q", typ)
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	s, _ := setupServer(t)
	if w := do(t, s.Handler(), http.MethodGet, "/api/customers/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ─── Transaction Tests ──────────────────────────────────────────────────────

func TestTransactions_Scenario(t *testing.T) {
	s, l := setupServer(t)
	c, _ := l.AddCustomer(context.Background(), "Asha", "9000000001")
	h := s.Handler()
	base := "/api/customers/" + c.ID

	w := do(t, h, http.MethodPost, base+"/transactions", `{"type":"udhar","amount":500,"description":"lunch"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	first := decode(t, w)
	if first["amount"] != float64(500) || first["type"] != "udhar" {
		t.Errorf("transaction = %v", first)
	}

	w = do(t, h, http.MethodPost, base+"/transactions", `{"type":"payment","amount":"200"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	detail := decode(t, do(t, h, http.MethodGet, base, ""))
	if detail["balance"] != float64(300) || detail["label"] != "you will pay" {
		t.Errorf("after payment = %v", detail)
	}
	txs := detail["transactions"].([]interface{})
	if txs[0].(map[string]interface{})["type"] != "vasuli" {
		t.Errorf("history not newest-first: %v", txs)
	}

	if w := do(t, h, http.MethodDelete, base+"/transactions/"+first["id"].(string), ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	detail = decode(t, do(t, h, http.MethodGet, base, ""))
	if detail["balance"] != float64(-200) || detail["standing"] != "owed" {
		t.Errorf("after delete = %v", detail)
	}

	totals := decode(t, do(t, h, http.MethodGet, "/api/totals", ""))
	if totals["totalDebt"] != float64(0) || totals["totalPayment"] != float64(200) || totals["netBalance"] != float64(-200) {
		t.Errorf("totals = %v", totals)
	}
}

func TestAddTransaction_Invalid(t *testing.T) {
	s, l := setupServer(t)
	c, _ := l.AddCustomer(context.Background(), "Asha", "1")
	h := s.Handler()

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"bad amount", "/api/customers/" + c.ID + "/transactions", `{"type":"udhar","amount":"abc"}`, http.StatusBadRequest},
		{"negative amount", "/api/customers/" + c.ID + "/transactions", `{"type":"udhar","amount":-5}`, http.StatusBadRequest},
		{"bad type", "/api/customers/" + c.ID + "/transactions", `{"type":"gift","amount":5}`, http.StatusBadRequest},
		{"missing amount", "/api/customers/" + c.ID + "/transactions", `{"type":"udhar"}`, http.StatusBadRequest},
		{"unknown customer", "/api/customers/nope/transactions", `{"type":"udhar","amount":5}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, h, http.MethodPost, tt.path, tt.body); w.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}

	got, _ := l.Customer(c.ID)
	if len(got.Transactions) != 0 {
		t.Errorf("transactions = %d after rejected requests", len(got.Transactions))
	}
}

func TestEditTransaction(t *testing.T) {
	s, l := setupServer(t)
	ctx := context.Background()
	c, _ := l.AddCustomer(ctx, "Asha", "1")
	tx, _, _ := l.AddTransaction(ctx, c.ID, domain.TxUdhar, "100", "old")
	h := s.Handler()
	path := "/api/customers/" + c.ID + "/transactions/" + tx.ID

	w := do(t, h, http.MethodPatch, path, `{"amount":"120.5"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode(t, w)
	if got["amount"] != 120.5 || got["description"] != "old" || got["id"] != tx.ID {
		t.Errorf("edited = %v", got)
	}

	if w := do(t, h, http.MethodPatch, path, `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty edit: expected 400, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPatch, path, `{"amount":"-1"}`); w.Code != http.StatusBadRequest {
		t.Errorf("negative edit: expected 400, got %d", w.Code)
	}
	missing := "/api/customers/" + c.ID + "/transactions/nope"
	if w := do(t, h, http.MethodPatch, missing, `{"description":"x"}`); w.Code != http.StatusNotFound {
		t.Errorf("missing tx: expected 404, got %d", w.Code)
	}
}

func TestRemind(t *testing.T) {
	s, l := setupServer(t)
	ctx := context.Background()
	c, _ := l.AddCustomer(ctx, "Asha", "+91 90000 00001")
	l.AddTransaction(ctx, c.ID, domain.TxUdhar, "1500", "")

	w := do(t, s.Handler(), http.MethodGet, "/api/customers/"+c.ID+"/remind", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode(t, w)
	if link := resp["link"].(string); !strings.HasPrefix(link, "https://wa.me/919000000001?text=") {
		t.Errorf("link = %q", link)
	}
	if msg := resp["message"].(string); !strings.Contains(msg, "₹1,500.00") {
		t.Errorf("message = %q", msg)
	}
}

// ─── Export / Import Tests ──────────────────────────────────────────────────

func TestExportImport(t *testing.T) {
	src, l := setupServer(t)
	ctx := context.Background()
	c, _ := l.AddCustomer(ctx, "Asha", "1")
	l.AddTransaction(ctx, c.ID, domain.TxUdhar, "75", "")

	w := do(t, src.Handler(), http.MethodGet, "/api/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ExportFilename) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	exported := bytes.Clone(w.Body.Bytes())

	dst, dl := setupServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(exported))
	iw := httptest.NewRecorder()
	dst.Handler().ServeHTTP(iw, req)
	if iw.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", iw.Code, iw.Body.String())
	}
	if decode(t, iw)["imported"] != float64(1) {
		t.Errorf("import response = %s", iw.Body.String())
	}
	if !dl.Totals().TotalDebt.Equal(l.Totals().TotalDebt) {
		t.Errorf("imported totals = %v", dl.Totals())
	}
}

func TestImport_Invalid(t *testing.T) {
	s, _ := setupServer(t)
	w := do(t, s.Handler(), http.MethodPost, "/api/import", `{"not":"a list"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if typ := errorType(t, w); typ != "invalid_import" {
		t.Errorf("error type = %q", typ)
	}
}
