package fleet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilianp07/robotaxi/core/report"
)

func seeded() *report.Store {
	store := report.NewStore()
	store.Set(report.Snapshot{
		Tick:      10,
		Completed: 2,
		TaxiStatus: []report.TaxiStatus{
			{ID: "taxi0001", State: "idle", BatteryPct: 90},
			{ID: "taxi0002", State: "transporting", BatteryPct: 40, DistanceKm: 3.2, EnergyKWh: 0.64},
		},
	})
	return store
}

func TestStatusHandler(t *testing.T) {
	h := NewStatusHandler(report.NewStore())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/status", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first report, got %d", rr.Code)
	}

	h = NewStatusHandler(seeded())
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var snap report.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Tick != 10 || snap.Completed != 2 || len(snap.TaxiStatus) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestTaxisHandler_Filter(t *testing.T) {
	h := NewTaxisHandler(seeded())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/taxis?state=transporting", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []report.TaxiStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "taxi0002" || out[0].EnergyKWh != 0.64 {
		t.Fatalf("unexpected filter result %#v", out)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/taxis", nil))
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil || len(out) != 2 {
		t.Fatalf("expected all taxis, got %v (%v)", out, err)
	}
}

func TestTaxisHandler_BadRequest(t *testing.T) {
	h := NewTaxisHandler(seeded())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/taxis?state=flying", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/taxis", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}
