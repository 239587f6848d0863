package httpapi

import (
	"net/http"
	"strings"
)

// SetupRouter sets up HTTP routes. All routes except /version sit behind
// the API-key middleware.
func SetupRouter(handler *Handler, apiKey string) http.Handler {
	mux := http.NewServeMux()

	// GET /version
	mux.HandleFunc("/version", handler.GetVersion)

	// POST /sync
	mux.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handler.SyncBatch(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// POST /sync/csv
	mux.HandleFunc("/sync/csv", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handler.SyncCSV(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// GET /stock
	mux.HandleFunc("/stock", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			handler.GetStock(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// POST /cache/invalidate
	mux.HandleFunc("/cache/invalidate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handler.InvalidateCache(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// GET /runs
	// GET /runs/{runId}
	mux.HandleFunc("/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			handler.ListRuns(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/runs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			handler.GetRun(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	wrapped := AuthMiddleware(mux, apiKey)

	// /version stays reachable without a key so probes can check the build.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSuffix(r.URL.Path, "/") == "/version" {
			mux.ServeHTTP(w, r)
			return
		}
		wrapped.ServeHTTP(w, r)
	})
}
