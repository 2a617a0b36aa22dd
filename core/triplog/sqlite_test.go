package triplog

import (
	"context"
	"testing"
	"time"
)

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:trips.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	now := time.Now()
	recs := []Record{
		{Timestamp: now, SimTime: 10, Kind: KindTrip, TaxiID: "taxi0001", ReservationID: "res00001", Distance: 800, Amount: 6.2},
		{Timestamp: now, SimTime: 20, Kind: KindCharge, TaxiID: "taxi0001", Energy: 30, Amount: 9},
		{Timestamp: now, SimTime: 30, Kind: KindTrip, TaxiID: "taxi0002", ReservationID: "res00002", Amount: 5},
	}
	if err := store.Append(context.Background(), recs...); err != nil {
		t.Fatalf("append: %v", err)
	}
	out, err := store.Query(context.Background(), Query{TaxiID: "taxi0001"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0].ReservationID != "res00001" || out[0].Distance != 800 {
		t.Fatalf("unexpected first record %+v", out[0])
	}
	out, err = store.Query(context.Background(), Query{Kind: KindTrip, Since: 15})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].TaxiID != "taxi0002" {
		t.Fatalf("unexpected filtered records %+v", out)
	}
}
