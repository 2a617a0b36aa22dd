package trips

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kilianp07/robotaxi/auth"
	"github.com/kilianp07/robotaxi/core/triplog"
)

// NewHandler exposes the trip ledger via GET /api/trips. Filters are
// taxi_id, kind (trip, charge, tow, stranded) and the simulated-time bounds
// from and to, in seconds. Requests must carry "Bearer <token>" when token
// is non-empty.
func NewHandler(store triplog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !auth.Authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []triplog.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func parseQuery(r *http.Request) (triplog.Query, error) {
	v := r.URL.Query()
	q := triplog.Query{TaxiID: v.Get("taxi_id")}
	if k := v.Get("kind"); k != "" {
		switch triplog.Kind(k) {
		case triplog.KindTrip, triplog.KindCharge, triplog.KindTow, triplog.KindStranded:
			q.Kind = triplog.Kind(k)
		default:
			return q, fmt.Errorf("unknown kind %q", k)
		}
	}
	var err error
	if q.Since, err = parseSeconds(v.Get("from")); err != nil {
		return q, fmt.Errorf("from: %w", err)
	}
	if q.Until, err = parseSeconds(v.Get("to")); err != nil {
		return q, fmt.Errorf("to: %w", err)
	}
	return q, nil
}

func parseSeconds(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("negative time %v", f)
	}
	return f, nil
}
