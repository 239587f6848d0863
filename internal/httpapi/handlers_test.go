package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/invsync/inventory-sync-server/internal/catalog"
	"github.com/invsync/inventory-sync-server/internal/history"
	"github.com/invsync/inventory-sync-server/internal/remote"
	"github.com/invsync/inventory-sync-server/internal/syncer"
	"github.com/invsync/inventory-sync-server/internal/target"
)

// newVendorServer fakes the remote platform: one listing page with two
// products, updates accepted for any known remote ID.
func newVendorServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/stock":
			if r.URL.Query().Get("page") == "1" {
				w.Write([]byte(`{"data":[{"_id":"id-a1","code":"A1","barcode":"111","name":"Widget"},{"_id":"id-b2","code":"B2","barcode":"222","name":"Gadget"}],"success":true}`))
				return
			}
			w.Write([]byte(`{"data":[],"success":true}`))
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/stock/"):
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
}

func newTestHandler(t *testing.T, vendorURL string) *Handler {
	t.Helper()

	creds := &target.Credentials{
		Name:          "moderna",
		BaseURL:       vendorURL,
		ListPath:      "/api/stock",
		Token:         "tok",
		Secret:        "topsecret",
		Algorithm:     target.SHA1,
		VendorPrefix:  "oneflow",
		PageSize:      1000,
		MaxPages:      3,
		BackoffMs:     10,
		BackoffMaxMs:  50,
		CacheSliding:  time.Hour,
		CacheAbsolute: 10 * time.Hour,
	}
	registry, err := target.NewRegistry([]*target.Credentials{creds})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	client := remote.NewClient(creds, nil)
	fetcher := catalog.NewFetcher(catalog.NewCache(), func(tgt *target.Credentials) catalog.Lister {
		return client
	})
	engine := syncer.NewEngine(registry, fetcher, func(tgt *target.Credentials) syncer.Updater {
		return client
	})

	return NewHandler(engine, history.NewStore(10))
}

func decodeSummary(t *testing.T, body []byte) syncSummary {
	t.Helper()
	var s syncSummary
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("decode summary: %v\nbody: %s", err, body)
	}
	return s
}

func TestSyncBatchEndpoint(t *testing.T) {
	vendor := newVendorServer(t)
	defer vendor.Close()

	router := SetupRouter(newTestHandler(t, vendor.URL), "")

	body := `{"target":"moderna","data":[{"SKU":"A1","Available Primary":5},{"SKU":"ZZ","Available Primary":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	summary := decodeSummary(t, w.Body.Bytes())
	if summary.Total != 2 || summary.Successful != 1 || summary.Failed != 1 {
		t.Errorf("got total=%d successful=%d failed=%d, want 2/1/1",
			summary.Total, summary.Successful, summary.Failed)
	}
	if len(summary.SuccessSkus) != 1 || summary.SuccessSkus[0] != "A1" {
		t.Errorf("unexpected successSkus: %v", summary.SuccessSkus)
	}
	if len(summary.FailedSkus) != 1 || summary.FailedSkus[0] != "ZZ" {
		t.Errorf("unexpected failedSkus: %v", summary.FailedSkus)
	}
	if !strings.Contains(summary.ErrorDetails["ZZ"], "not found") {
		t.Errorf("errorDetails[ZZ] = %q, want it to indicate not found", summary.ErrorDetails["ZZ"])
	}
}

func TestSyncBatchValidation(t *testing.T) {
	vendor := newVendorServer(t)
	defer vendor.Close()
	router := SetupRouter(newTestHandler(t, vendor.URL), "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing target", `{"data":[{"SKU":"A1"}]}`, http.StatusBadRequest},
		{"empty data", `{"target":"moderna","data":[]}`, http.StatusBadRequest},
		{"blank sku", `{"target":"moderna","data":[{"SKU":"","Available Primary":1}]}`, http.StatusBadRequest},
		{"negative quantity", `{"target":"moderna","data":[{"SKU":"A1","Available Primary":-2}]}`, http.StatusBadRequest},
		{"unknown target", `{"target":"nope","data":[{"SKU":"A1","Available Primary":1}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestSyncBatchFetchFailureIsBadGateway(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusBadRequest) // not retryable
	}))
	defer vendor.Close()

	router := SetupRouter(newTestHandler(t, vendor.URL), "")

	body := `{"target":"moderna","data":[{"SKU":"A1","Available Primary":5}]}`
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("catalog fetch failure must abort the batch with 502, got %d", w.Code)
	}
}

func TestSyncCSVEndpoint(t *testing.T) {
	vendor := newVendorServer(t)
	defer vendor.Close()
	router := SetupRouter(newTestHandler(t, vendor.URL), "")

	csv := "Name,SKU,Available Primary\n" +
		"Widget,A1,5\n" +
		"Broken,B2,lots\n"

	req := httptest.NewRequest(http.MethodPost, "/sync/csv?target=moderna", strings.NewReader(csv))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	summary := decodeSummary(t, w.Body.Bytes())
	if summary.Total != 2 || summary.Successful != 1 || summary.Failed != 1 {
		t.Errorf("got total=%d successful=%d failed=%d, want 2/1/1",
			summary.Total, summary.Successful, summary.Failed)
	}
	if !strings.Contains(summary.ErrorDetails["B2"], "quantity") {
		t.Errorf("expected a row error for B2, got %v", summary.ErrorDetails)
	}
}

func TestGetStockEndpoint(t *testing.T) {
	vendor := newVendorServer(t)
	defer vendor.Close()
	router := SetupRouter(newTestHandler(t, vendor.URL), "")

	req := httptest.NewRequest(http.MethodGet, "/stock?target=moderna&sku=222", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var entry catalog.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.RemoteID != "id-b2" || entry.Name != "Gadget" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	req = httptest.NewRequest(http.MethodGet, "/stock?target=moderna&sku=ZZ", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown sku, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/stock?target=moderna", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing sku, got %d", w.Code)
	}
}

func TestRunsEndpoints(t *testing.T) {
	vendor := newVendorServer(t)
	defer vendor.Close()
	router := SetupRouter(newTestHandler(t, vendor.URL), "")

	body := `{"target":"moderna","data":[{"SKU":"A1","Available Primary":5}]}`
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("sync failed: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/runs?target=moderna", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var runs []history.Run
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Result.Total != 1 {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	req = httptest.NewRequest(http.MethodGet, "/runs/"+runs[0].ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for run by ID, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/runs/does-not-exist", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown run, got %d", w.Code)
	}
}

func TestInvalidateCacheEndpoint(t *testing.T) {
	listCalls := 0
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/api/stock" {
			if r.URL.Query().Get("page") == "1" {
				listCalls++
				w.Write([]byte(`{"data":[{"_id":"id-a1","code":"A1"}],"success":true}`))
				return
			}
			w.Write([]byte(`{"data":[],"success":true}`))
		}
	}))
	defer vendor.Close()

	router := SetupRouter(newTestHandler(t, vendor.URL), "")

	lookup := func() {
		req := httptest.NewRequest(http.MethodGet, "/stock?target=moderna&sku=A1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("lookup failed: %d", w.Code)
		}
	}

	lookup()
	lookup() // served from cache
	if listCalls != 1 {
		t.Fatalf("expected 1 listing call before invalidation, got %d", listCalls)
	}

	req := httptest.NewRequest(http.MethodPost, "/cache/invalidate?target=moderna", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	lookup()
	if listCalls != 2 {
		t.Errorf("expected a refetch after invalidation, got %d listing calls", listCalls)
	}

	req = httptest.NewRequest(http.MethodPost, "/cache/invalidate?target=nope", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown target, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	vendor := newVendorServer(t)
	defer vendor.Close()
	router := SetupRouter(newTestHandler(t, vendor.URL), "secret-key")

	// Missing key is rejected.
	req := httptest.NewRequest(http.MethodGet, "/stock?target=moderna&sku=A1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}

	// Wrong key is rejected.
	req = httptest.NewRequest(http.MethodGet, "/stock?target=moderna&sku=A1", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", w.Code)
	}

	// Correct key passes.
	req = httptest.NewRequest(http.MethodGet, "/stock?target=moderna&sku=A1", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", w.Code)
	}

	// /version stays open.
	req = httptest.NewRequest(http.MethodGet, "/version", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for /version without key, got %d", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	vendor := newVendorServer(t)
	defer vendor.Close()
	router := SetupRouter(newTestHandler(t, vendor.URL), "")

	req := httptest.NewRequest(http.MethodGet, "/sync", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}
