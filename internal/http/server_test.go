package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"thuchi/internal/core"
	"thuchi/internal/services"
	"thuchi/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	srv := NewServer("127.0.0.1:0", services.NewLedgerService(st, nil), st, DefaultOptions())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, st
}

func doRequest(srv *Server, method, target, userID string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func createTransaction(t *testing.T, srv *Server, userID string, typ string, cents int64, date string) string {
	t.Helper()
	payload := fmt.Sprintf(`{"type":%q,"amount_cents":%d,"category":{"id":"cat-1","name":"Ăn uống","icon":"restaurant"},"date":%q}`, typ, cents, date)
	rec := doRequest(srv, http.MethodPost, "/api/transactions", userID, []byte(payload))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp createTransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("create response missing id")
	}
	return resp.ID
}

func TestHandleSummary(t *testing.T) {
	srv, _ := newTestServer(t)

	createTransaction(t, srv, "user-1", "EXPENSE", 50000, "2024-03-05T00:00:00Z")
	createTransaction(t, srv, "user-1", "INCOME", 200000, "2024-03-10T00:00:00Z")
	createTransaction(t, srv, "user-1", "EXPENSE", 30000, "2024-03-05T00:00:00Z")
	createTransaction(t, srv, "user-1", "INCOME", 999999, "2024-04-01T00:00:00Z")

	rec := doRequest(srv, http.MethodGet, "/api/summary?year=2024&month=3", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var summary summaryJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}

	if summary.TotalExpenseCents != 80000 {
		t.Errorf("TotalExpenseCents = %d, want 80000", summary.TotalExpenseCents)
	}
	if summary.TotalIncomeCents != 200000 {
		t.Errorf("TotalIncomeCents = %d, want 200000", summary.TotalIncomeCents)
	}
	if summary.TotalBalanceCents != 120000 {
		t.Errorf("TotalBalanceCents = %d, want 120000", summary.TotalBalanceCents)
	}
	if len(summary.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(summary.Groups))
	}
	if summary.Groups[0].Date != "2024-03-10" || summary.Groups[1].Date != "2024-03-05" {
		t.Errorf("groups not newest first: %s, %s", summary.Groups[0].Date, summary.Groups[1].Date)
	}
	if len(summary.Groups[1].Transactions) != 2 {
		t.Errorf("March 5 group has %d transactions, want 2", len(summary.Groups[1].Transactions))
	}
}

func TestHandleSummary_CacheInvalidatedByWrite(t *testing.T) {
	srv, _ := newTestServer(t)

	createTransaction(t, srv, "user-1", "EXPENSE", 10000, "2024-03-05T00:00:00Z")

	rec := doRequest(srv, http.MethodGet, "/api/summary?year=2024&month=3", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	createTransaction(t, srv, "user-1", "EXPENSE", 5000, "2024-03-06T00:00:00Z")

	rec = doRequest(srv, http.MethodGet, "/api/summary?year=2024&month=3", "user-1", nil)
	var summary summaryJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalExpenseCents != 15000 {
		t.Errorf("TotalExpenseCents after write = %d, want 15000", summary.TotalExpenseCents)
	}
}

func TestHandleSummary_BadParams(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		target string
	}{
		{"month out of range", "/api/summary?year=2024&month=13"},
		{"month zero", "/api/summary?year=2024&month=0"},
		{"month not a number", "/api/summary?year=2024&month=march"},
		{"year not a number", "/api/summary?year=twenty&month=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodGet, tt.target, "user-1", nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestMissingUserHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, target := range []string{"/api/summary", "/api/transactions", "/api/profile"} {
		rec := doRequest(srv, http.MethodGet, target, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without identity: status = %d, want 401", target, rec.Code)
		}
	}
}

func TestHandleListTransactions_FiltersByPeriod(t *testing.T) {
	srv, _ := newTestServer(t)

	createTransaction(t, srv, "user-1", "EXPENSE", 10000, "2024-03-05T00:00:00Z")
	createTransaction(t, srv, "user-1", "INCOME", 20000, "2024-04-01T00:00:00Z")

	rec := doRequest(srv, http.MethodGet, "/api/transactions?year=2024&month=3", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var txs []transactionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if txs[0].Type != "EXPENSE" || txs[0].AmountCents != 10000 {
		t.Errorf("unexpected transaction: %+v", txs[0])
	}
}

func TestHandleListTransactions_UserIsolation(t *testing.T) {
	srv, _ := newTestServer(t)

	createTransaction(t, srv, "user-1", "EXPENSE", 10000, "2024-03-05T00:00:00Z")

	rec := doRequest(srv, http.MethodGet, "/api/transactions?year=2024&month=3", "user-2", nil)
	var txs []transactionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("user-2 sees %d of user-1's transactions", len(txs))
	}
}

func TestHandleCreateTransaction_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type":`},
		{"zero amount", `{"type":"EXPENSE","amount_cents":0,"category":{"name":"Ăn uống"},"date":"2024-03-05T00:00:00Z"}`},
		{"unknown type", `{"type":"TRANSFER","amount_cents":100,"category":{"name":"Ăn uống"},"date":"2024-03-05T00:00:00Z"}`},
		{"empty category", `{"type":"EXPENSE","amount_cents":100,"category":{"name":"  "},"date":"2024-03-05T00:00:00Z"}`},
		{"missing date", `{"type":"EXPENSE","amount_cents":100,"category":{"name":"Ăn uống"}}`},
		{"garbage decimal amount", `{"type":"EXPENSE","amount":"12.3.4","category":{"name":"Ăn uống"},"date":"2024-03-05T00:00:00Z"}`},
		{"note over 500 chars", `{"type":"EXPENSE","amount_cents":100,"category":{"name":"Ăn uống"},"note":"` + strings.Repeat("a", 501) + `","date":"2024-03-05T00:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/api/transactions", "user-1", []byte(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleCreateTransaction_DecimalAmount(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"type":"EXPENSE","amount":"123.45","category":{"name":"Ăn uống"},"date":"2024-03-05T00:00:00Z"}`
	rec := doRequest(srv, http.MethodPost, "/api/transactions", "user-1", []byte(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(srv, http.MethodGet, "/api/transactions?year=2024&month=3", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var txs []transactionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].AmountCents != 12345 {
		t.Errorf("transactions = %+v, want one with 12345 cents", txs)
	}
}

func TestHandleCreateTransaction_LegacyNegatedCents(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"type":"EXPENSE","amount_cents":-50000,"category":{"name":"Ăn uống"},"date":"2024-03-05T00:00:00Z"}`
	rec := doRequest(srv, http.MethodPost, "/api/transactions", "user-1", []byte(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(srv, http.MethodGet, "/api/transactions?year=2024&month=3", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var txs []transactionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].AmountCents != 50000 {
		t.Errorf("transactions = %+v, want one with 50000 cents", txs)
	}
}

func TestHandleDeleteTransaction(t *testing.T) {
	srv, _ := newTestServer(t)

	id := createTransaction(t, srv, "user-1", "EXPENSE", 10000, "2024-03-05T00:00:00Z")

	rec := doRequest(srv, http.MethodDelete, "/api/transactions/"+id, "user-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doRequest(srv, http.MethodDelete, "/api/transactions/"+id, "user-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandleCalendar(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/calendar?year=2024&month=3", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var cal calendarJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &cal); err != nil {
		t.Fatalf("decode calendar: %v", err)
	}
	if len(cal.Cells) != core.GridCells {
		t.Fatalf("got %d cells, want %d", len(cal.Cells), core.GridCells)
	}
	// March 2024 starts on a Friday, so the grid leads with Feb 25.
	if cal.Cells[0].Day != 25 || cal.Cells[0].InMonth {
		t.Errorf("first cell = %+v, want day 25 outside the month", cal.Cells[0])
	}
	if cal.Cells[5].Day != 1 || !cal.Cells[5].InMonth {
		t.Errorf("sixth cell = %+v, want March 1 inside the month", cal.Cells[5])
	}

	rec = doRequest(srv, http.MethodGet, "/api/calendar?year=2024&month=13", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid month status = %d, want 400", rec.Code)
	}
}

func TestHandleProfile(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/profile", "user-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("profile before creation: status = %d, want 404", rec.Code)
	}

	rec = doRequest(srv, http.MethodPut, "/api/profile", "user-1", []byte(`{"name":"Minh","email":"minh@example.com"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("put profile status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(srv, http.MethodGet, "/api/profile", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get profile status = %d", rec.Code)
	}

	var profile profileJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.ID != "user-1" || profile.Name != "Minh" || profile.Email != "minh@example.com" {
		t.Errorf("unexpected profile: %+v", profile)
	}

	rec = doRequest(srv, http.MethodPut, "/api/profile", "user-1", []byte(`{"name":"  "}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", rec.Code)
	}
}

func TestHandleProfileRename(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPut, "/api/profile", "user-1", []byte(`{"name":"Minh","email":"minh@example.com"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("create profile status = %d", rec.Code)
	}

	// A name-only body renames in place and keeps the stored email.
	rec = doRequest(srv, http.MethodPut, "/api/profile", "user-1", []byte(`{"name":"Minh Anh"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d, body %s", rec.Code, rec.Body.String())
	}

	var profile profileJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Name != "Minh Anh" || profile.Email != "minh@example.com" {
		t.Errorf("renamed profile = %+v, want name Minh Anh with email kept", profile)
	}

	// A name-only body for an unknown user still creates the profile.
	rec = doRequest(srv, http.MethodPut, "/api/profile", "user-2", []byte(`{"name":"Lan"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("first-write rename status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(srv, http.MethodGet, "/api/profile", "user-2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get created profile status = %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, target := range []string{"/healthz", "/readyz"} {
		rec := doRequest(srv, http.MethodGet, target, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", target, rec.Code)
		}
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/healthz", "", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("Content-Security-Policy header missing")
	}
}
