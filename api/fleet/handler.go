package fleet

import (
	"encoding/json"
	"net/http"

	"github.com/kilianp07/robotaxi/core/model"
	"github.com/kilianp07/robotaxi/core/report"
)

// NewStatusHandler exposes the latest snapshot via GET /api/status. It
// answers 503 until the engine published its first report.
func NewStatusHandler(store *report.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap, ok := store.Latest()
		if !ok {
			http.Error(w, "no report yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, snap)
	})
}

// NewTaxisHandler exposes per-taxi battery, energy and distance via
// GET /api/taxis, optionally filtered by ?state=.
func NewTaxisHandler(store *report.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f := report.Filter{State: r.URL.Query().Get("state")}
		if f.State != "" {
			if _, ok := model.ParseTaxiState(f.State); !ok {
				http.Error(w, "unknown state "+f.State, http.StatusBadRequest)
				return
			}
		}
		writeJSON(w, store.Taxis(f))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
