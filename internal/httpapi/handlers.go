package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/invsync/inventory-sync-server/internal/history"
	"github.com/invsync/inventory-sync-server/internal/syncer"
	"github.com/invsync/inventory-sync-server/internal/target"
	"github.com/invsync/inventory-sync-server/internal/upload"
	"github.com/invsync/inventory-sync-server/internal/version"
)

// Handler handles HTTP requests.
type Handler struct {
	engine *syncer.Engine
	runs   *history.Store
}

// NewHandler creates a new handler.
func NewHandler(engine *syncer.Engine, runs *history.Store) *Handler {
	return &Handler{engine: engine, runs: runs}
}

// syncSummary is the response body of the sync endpoints.
type syncSummary struct {
	Total        int               `json:"total"`
	Successful   int               `json:"successful"`
	Failed       int               `json:"failed"`
	SuccessSkus  []string          `json:"successSkus"`
	FailedSkus   []string          `json:"failedSkus"`
	ErrorDetails map[string]string `json:"errorDetails"`
}

func newSummary(result *syncer.BatchResult) *syncSummary {
	s := &syncSummary{
		Total:        result.Total,
		Successful:   result.Successful,
		Failed:       result.Failed,
		SuccessSkus:  []string{},
		FailedSkus:   []string{},
		ErrorDetails: make(map[string]string),
	}
	for _, o := range result.Outcomes {
		if o.Succeeded {
			s.SuccessSkus = append(s.SuccessSkus, o.SKU)
		} else {
			s.FailedSkus = append(s.FailedSkus, o.SKU)
			s.ErrorDetails[o.SKU] = o.Detail
		}
	}
	return s
}

// addRowErrors folds upload parse failures into the summary so the
// caller sees skipped rows alongside sync failures.
func (s *syncSummary) addRowErrors(rowErrors []upload.RowError) {
	for _, re := range rowErrors {
		key := re.SKU
		if key == "" {
			key = fmt.Sprintf("row %d", re.RowNo)
		}
		s.Total++
		s.Failed++
		s.FailedSkus = append(s.FailedSkus, key)
		s.ErrorDetails[key] = re.Message
	}
}

// SyncBatch handles POST /sync.
func (h *Handler) SyncBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string        `json:"target"`
		Data   []syncer.Item `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if req.Target == "" {
		http.Error(w, "target is required", http.StatusBadRequest)
		return
	}
	if len(req.Data) == 0 {
		http.Error(w, "No data received.", http.StatusBadRequest)
		return
	}
	for i, item := range req.Data {
		if item.SKU == "" {
			http.Error(w, fmt.Sprintf("data[%d]: SKU is required", i), http.StatusBadRequest)
			return
		}
		if item.Quantity < 0 {
			http.Error(w, fmt.Sprintf("data[%d]: quantity must be >= 0", i), http.StatusBadRequest)
			return
		}
	}

	h.runSync(w, r, req.Target, req.Data, nil, "json")
}

// SyncCSV handles POST /sync/csv. The body is a raw CSV export with a
// header row; target and optional encoding come from the query string.
func (h *Handler) SyncCSV(w http.ResponseWriter, r *http.Request) {
	targetName := r.URL.Query().Get("target")
	if targetName == "" {
		http.Error(w, "target is required", http.StatusBadRequest)
		return
	}

	items, rowErrors, err := upload.Parse(r.Body, r.URL.Query().Get("encoding"))
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid CSV: %v", err), http.StatusBadRequest)
		return
	}
	if len(items) == 0 && len(rowErrors) == 0 {
		http.Error(w, "No data received.", http.StatusBadRequest)
		return
	}

	h.runSync(w, r, targetName, items, rowErrors, "csv")
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request, targetName string, items []syncer.Item, rowErrors []upload.RowError, source string) {
	startedAt := time.Now()

	result, err := h.engine.SyncBatch(r.Context(), targetName, items)
	if err != nil {
		if errors.Is(err, target.ErrUnknownTarget) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Sync failed for target %s: %v", targetName, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	runID := h.runs.Record(&history.Run{
		Target:     targetName,
		Source:     source,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Result:     result,
	})
	log.Printf("Run %s: target %s, %d items, %d ok, %d failed",
		runID, targetName, result.Total, result.Successful, result.Failed)

	summary := newSummary(result)
	summary.addRowErrors(rowErrors)
	writeJSON(w, http.StatusOK, summary)
}

// GetStock handles GET /stock: catalog resolution only, no update.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	targetName := r.URL.Query().Get("target")
	sku := r.URL.Query().Get("sku")
	if targetName == "" || sku == "" {
		http.Error(w, "target and sku are required", http.StatusBadRequest)
		return
	}

	entry, err := h.engine.Lookup(r.Context(), targetName, sku)
	if err != nil {
		switch {
		case errors.Is(err, target.ErrUnknownTarget):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, syncer.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			log.Printf("Stock lookup failed for target %s: %v", targetName, err)
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// InvalidateCache handles POST /cache/invalidate. The next sync or
// lookup for the target will refetch the catalog.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	targetName := r.URL.Query().Get("target")
	if targetName == "" {
		http.Error(w, "target is required", http.StatusBadRequest)
		return
	}

	if err := h.engine.InvalidateCatalog(targetName); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Printf("Catalog cache invalidated for target %s", targetName)
	w.WriteHeader(http.StatusNoContent)
}

// ListRuns handles GET /runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.runs.List(r.URL.Query().Get("target"))
	if runs == nil {
		runs = []*history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /runs/{runId}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/runs/")
	if runID == "" {
		http.Error(w, "runId is required", http.StatusBadRequest)
		return
	}

	run, err := h.runs.Get(runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetVersion handles GET /version.
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Info())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
