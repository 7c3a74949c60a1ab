package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"township-pos-api/internal/handler"
	"township-pos-api/internal/netmon"
	"township-pos-api/internal/remote"
	"township-pos-api/internal/repository"
	"township-pos-api/internal/router"
	"township-pos-api/internal/service"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T) (*chi.Mux, *repository.SQLiteStore) {
	t.Helper()

	store, err := repository.NewSQLiteStore(
		filepath.Join(t.TempDir(), "test.db"),
		repository.Options{ShopID: "test_shop", Seed: true},
	)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	// Remote accepts everything instantly.
	remoteSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(remoteSrv.Close)

	monitor := netmon.New(func(ctx context.Context) bool { return false }, time.Minute, time.Second)
	engine := service.NewSyncEngine(store, remote.NewClient(remoteSrv.URL, time.Second), monitor, service.SyncConfig{
		RetryDelay: time.Millisecond,
	})
	offline := service.NewOfflineManager(store, engine, monitor, "")
	engine.SetResultHandler(offline)

	inventoryService := service.NewInventoryService(store, offline, engine)
	salesService := service.NewSalesService(store, offline, engine)
	creditService := service.NewCreditService(store)
	gamificationService := service.NewGamificationService(store, nil, time.Minute)

	r := router.New(router.Config{
		Handler:             handler.New(store),
		InventoryHandler:    handler.NewInventoryHandler(inventoryService),
		SalesHandler:        handler.NewSalesHandler(salesService, gamificationService),
		CreditHandler:       handler.NewCreditHandler(creditService),
		GamificationHandler: handler.NewGamificationHandler(gamificationService),
		SyncHandler:         handler.NewSyncHandler(engine, offline, monitor),
	})
	return r, store
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doRequest(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := doRequest(t, r, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !env.Success {
		t.Error("success = false")
	}
}

func TestListInventory(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := doRequest(t, r, http.MethodGet, "/api/v1/inventory", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var items []map[string]interface{}
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(items) == 0 {
		t.Error("seeded inventory should not be empty")
	}
	if env.Meta == nil || env.Meta.Total != int64(len(items)) {
		t.Errorf("meta = %+v, want total %d", env.Meta, len(items))
	}
}

func TestCreateInventoryItem(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := doRequest(t, r, http.MethodPost, "/api/v1/inventory", map[string]interface{}{
		"name": "Paraffin 750ml", "price": 22.50, "quantity": 12, "category": "Household",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var item map[string]interface{}
	if err := json.Unmarshal(env.Data, &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if item["name"] != "Paraffin 750ml" {
		t.Errorf("name = %v", item["name"])
	}
	if item["synced"] != false {
		t.Errorf("synced = %v, want false", item["synced"])
	}
}

func TestCreateInventoryItemValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := doRequest(t, r, http.MethodPost, "/api/v1/inventory", map[string]interface{}{
		"name": "", "price": -5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v, want VALIDATION_ERROR", env.Error)
	}
}

func TestUpdateInventoryItemBadID(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, _ := doRequest(t, r, http.MethodPut, "/api/v1/inventory/abc", map[string]interface{}{
		"name": "x", "price": 1, "quantity": 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-numeric id", rec.Code)
	}
}

func TestDeleteInventoryItem(t *testing.T) {
	r, _ := newTestRouter(t)

	_, env := doRequest(t, r, http.MethodPost, "/api/v1/inventory", map[string]interface{}{
		"name": "Doomed", "price": 1, "quantity": 1,
	})
	var item struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}

	path := "/api/v1/inventory/" + strconv.FormatInt(item.ID, 10)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, path, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec2, env2 := doRequest(t, r, http.MethodGet, path, nil)
	if rec2.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 after delete", rec2.Code)
	}
	if env2.Error == nil || env2.Error.Code != "ITEM_NOT_FOUND" {
		t.Errorf("error = %+v, want ITEM_NOT_FOUND", env2.Error)
	}
}

func TestSellEndpoint(t *testing.T) {
	r, store := newTestRouter(t)

	items, err := store.GetInventory(context.Background())
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	target := items[0]

	rec, env := doRequest(t, r, http.MethodPost, "/api/v1/sell", map[string]interface{}{
		"item_id":         target.ID,
		"quantity":        1,
		"payment_method":  "cash",
		"amount_received": target.Price + 10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var sale map[string]interface{}
	if err := json.Unmarshal(env.Data, &sale); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if sale["total"] != target.Price {
		t.Errorf("total = %v, want %v", sale["total"], target.Price)
	}
	if sale["change_given"] != 10.0 {
		t.Errorf("change = %v, want 10", sale["change_given"])
	}
}

func TestSalesHistoryEndpoint(t *testing.T) {
	r, store := newTestRouter(t)

	items, err := store.GetInventory(context.Background())
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	for i := 0; i < 3; i++ {
		rec, _ := doRequest(t, r, http.MethodPost, "/api/v1/sell", map[string]interface{}{
			"item_id": items[0].ID, "quantity": 1, "payment_method": "qr_code",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("sell %d: status %d", i, rec.Code)
		}
	}

	rec, env := doRequest(t, r, http.MethodGet, "/api/v1/sales-history?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var sales []map[string]interface{}
	if err := json.Unmarshal(env.Data, &sales); err != nil {
		t.Fatalf("decode sales: %v", err)
	}
	if len(sales) != 2 {
		t.Errorf("len = %d, want 2", len(sales))
	}

	recBad, _ := doRequest(t, r, http.MethodGet, "/api/v1/sales-history?limit=-1", nil)
	if recBad.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for negative limit", recBad.Code)
	}
}

func TestCreditScoreEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := doRequest(t, r, http.MethodGet, "/api/v1/credit-score", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var report map[string]interface{}
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report["rating"] != "Poor" {
		t.Errorf("rating = %v, want Poor for fresh shop", report["rating"])
	}
	if _, ok := report["loan_eligibility"]; !ok {
		t.Error("report missing loan_eligibility")
	}
}

func TestGamificationEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := doRequest(t, r, http.MethodGet, "/api/v1/gamification", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var summary struct {
		Progress struct {
			Level int `json:"level"`
		} `json:"progress"`
		Missions []map[string]interface{} `json:"missions"`
	}
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Progress.Level != 1 {
		t.Errorf("level = %d, want 1", summary.Progress.Level)
	}
	if len(summary.Missions) != 3 {
		t.Errorf("missions = %d, want 3", len(summary.Missions))
	}
}

func TestSyncStatusEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := doRequest(t, r, http.MethodGet, "/api/v1/sync/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status struct {
		IsOnline     bool `json:"is_online"`
		PendingCount int  `json:"pending_count"`
	}
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.IsOnline {
		t.Error("is_online = true, monitor starts offline")
	}
}

func TestSyncTriggerWhileOffline(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, env := doRequest(t, r, http.MethodPost, "/api/v1/sync/", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 while offline", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "NETWORK_ERROR" {
		t.Errorf("error = %+v, want NETWORK_ERROR", env.Error)
	}
}

func TestSyncOnlineOverrideEnablesSync(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, _ := doRequest(t, r, http.MethodPost, "/api/v1/sync/online", map[string]bool{"online": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec2, env := doRequest(t, r, http.MethodPost, "/api/v1/sync/", nil)
	if rec2.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 once online: %s", rec2.Code, rec2.Body.String())
	}
	var status struct {
		IsOnline bool `json:"is_online"`
	}
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.IsOnline {
		t.Error("is_online = false after override")
	}
}
