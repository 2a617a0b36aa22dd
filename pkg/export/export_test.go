package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kilianp07/robotaxi/core/report"
)

func TestWriteCSV(t *testing.T) {
	taxis := []report.TaxiStatus{
		{ID: "taxi0001", State: "idle", BatteryPct: 80, DistanceKm: 1.5, EnergyKWh: 0.3, Earnings: 12, Cost: 2.5, Profit: 9.5},
		{ID: "taxi0002", State: "transporting", BatteryPct: 42.25},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, taxis); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "taxi_id" || rows[0][7] != "profit" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][7] != "9.500" || rows[2][2] != "42.250" {
		t.Fatalf("unexpected values %v %v", rows[1], rows[2])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	snap := report.Snapshot{Tick: 7, Completed: 3}
	if err := WriteJSON(&buf, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["tick"] != 7.0 || got["completed"] != 3.0 {
		t.Fatalf("unexpected json %v", got)
	}
}

func TestPricingChart(t *testing.T) {
	points := []report.PricePoint{
		{Tick: 0, SimTime: 0, PricingStatus: report.PricingStatus{Interval: "night", Price: 0.12, Demand: 0.7, TODRate: 1}},
		{Tick: 60, SimTime: 60, PricingStatus: report.PricingStatus{Interval: "morning_rush", Price: 0.3, Demand: 1.4, TODRate: 1.5}},
	}
	var buf bytes.Buffer
	if err := PricingChart(&buf, "fleet pricing", points); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"<html", "fleet pricing", "demand", "tod_rate"} {
		if !strings.Contains(html, want) {
			t.Fatalf("chart missing %q", want)
		}
	}
	if err := PricingChart(&buf, "empty", nil); err == nil {
		t.Fatal("expected error without samples")
	}
}
