// Package triplog persists completed trips, charging stops, tows and
// stranding events so runs can be audited after teardown.
package triplog

import (
	"context"
	"time"
)

// Kind classifies a record.
type Kind string

const (
	KindTrip     Kind = "trip"
	KindCharge   Kind = "charge"
	KindTow      Kind = "tow"
	KindStranded Kind = "stranded"
)

// Record is one ledger line.
type Record struct {
	Timestamp     time.Time `json:"timestamp"`
	SimTime       float64   `json:"sim_time"`
	Kind          Kind      `json:"kind"`
	TaxiID        string    `json:"taxi_id"`
	ReservationID string    `json:"reservation_id,omitempty"`
	Distance      float64   `json:"distance_m,omitempty"`
	Energy        float64   `json:"energy_kwh,omitempty"`
	Amount        float64   `json:"amount"`
	Demand        float64   `json:"demand,omitempty"`
	TODRate       float64   `json:"tod_rate,omitempty"`
}

// Query filters records. Zero fields do not filter; Until <= 0 leaves the
// upper bound open.
type Query struct {
	Since  float64
	Until  float64
	TaxiID string
	Kind   Kind
}

// Match reports whether r passes the filter.
func (q Query) Match(r Record) bool {
	if r.SimTime < q.Since {
		return false
	}
	if q.Until > 0 && r.SimTime > q.Until {
		return false
	}
	if q.TaxiID != "" && r.TaxiID != q.TaxiID {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, recs ...Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, ...Record) error        { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
