// Package report builds status snapshots of the fleet between ticks.
package report

import (
	"time"

	"github.com/samber/lo"

	"github.com/kilianp07/robotaxi/core/economics"
	"github.com/kilianp07/robotaxi/core/fleet"
	"github.com/kilianp07/robotaxi/core/model"
)

// TaxiStatus is the per-taxi part of a snapshot.
type TaxiStatus struct {
	ID            string  `json:"id"`
	State         string  `json:"state"`
	BatteryPct    float64 `json:"battery_pct"`
	DistanceKm    float64 `json:"distance_km"`
	EnergyKWh     float64 `json:"energy_kwh"`
	ReservationID string  `json:"reservation_id,omitempty"`
	Earnings      float64 `json:"earnings"`
	Cost          float64 `json:"cost"`
	Profit        float64 `json:"profit"`
	ReturnAt      float64 `json:"return_at,omitempty"`
}

// ChargerCounts splits chargers by activation.
type ChargerCounts struct {
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// PricingStatus is the pricing context in effect.
type PricingStatus struct {
	Interval string  `json:"interval"`
	Demand   float64 `json:"demand"`
	TODRate  float64 `json:"tod_rate"`
	Price    float64 `json:"price"`
}

// Economics aggregates ledgers fleet-wide, removed taxis included. Averages
// are per taxi ever registered.
type Economics struct {
	Total   economics.Summary `json:"total"`
	Average economics.Summary `json:"average"`
}

// Snapshot is a consistent view of the fleet taken between ticks.
type Snapshot struct {
	Tick         int            `json:"tick"`
	SimTime      float64        `json:"sim_time"`
	Time         time.Time      `json:"time"`
	Taxis        map[string]int `json:"taxis"`
	Reservations map[string]int `json:"reservations"`
	Chargers     ChargerCounts  `json:"chargers"`
	TaxiStatus   []TaxiStatus   `json:"taxi_status"`
	Wait         WaitStats      `json:"wait"`
	// Unsatisfied is the share of riders whose wait exceeded the threshold,
	// counting riders still waiting.
	Unsatisfied          float64       `json:"unsatisfied"`
	UnsatisfiedThreshold float64       `json:"unsatisfied_threshold"`
	Completed            int           `json:"completed"`
	Economics            Economics     `json:"economics"`
	Pricing              PricingStatus `json:"pricing"`
	Underfulfilled       int           `json:"underfulfilled_commands"`
	QueueDepth           int           `json:"queue_depth"`
}

// Input carries everything Build reads.
type Input struct {
	Fleet          *fleet.Fleet
	Pricing        *economics.Pricing
	Tariff         economics.Tariff
	Tick           int
	Now            float64
	Threshold      float64
	Underfulfilled int
	QueueDepth     int
	Buckets        []float64
}

// Build computes a snapshot. It must run on the goroutine that owns the fleet.
func Build(in Input) Snapshot {
	f := in.Fleet
	s := Snapshot{
		Tick:                 in.Tick,
		SimTime:              in.Now,
		Time:                 time.Now(),
		Taxis:                make(map[string]int),
		Reservations:         make(map[string]int),
		UnsatisfiedThreshold: in.Threshold,
		Completed:            f.Completed,
		Underfulfilled:       in.Underfulfilled,
		QueueDepth:           in.QueueDepth,
	}
	for _, st := range model.TaxiStates() {
		s.Taxis[st.String()] = 0
	}
	for _, st := range model.ReservationStates() {
		s.Reservations[st.String()] = 0
	}
	s.Reservations[model.ReservationCompleted.String()] = f.Completed

	for _, t := range f.Taxis.Sorted() {
		s.Taxis[t.State.String()]++
		sum := in.Tariff.Summarize(t.Ledger)
		s.TaxiStatus = append(s.TaxiStatus, TaxiStatus{
			ID:            t.ID,
			State:         t.State.String(),
			BatteryPct:    t.Battery.Percent(),
			DistanceKm:    t.Distance / 1000,
			EnergyKWh:     t.Energy,
			ReservationID: t.ReservationID,
			Earnings:      sum.Earnings,
			Cost:          sum.Cost,
			Profit:        sum.Profit,
			ReturnAt:      t.ReturnAt,
		})
	}
	s.Economics.Total, s.Economics.Average = in.Tariff.FleetTotals(f.Ledgers())

	var open []float64
	for _, r := range f.Reservations.Sorted() {
		s.Reservations[r.State.String()]++
		if r.State == model.ReservationWaiting || r.State == model.ReservationAssigned {
			open = append(open, in.Now-r.WaitingSince)
		}
	}
	s.Unsatisfied = Unsatisfied(append(append([]float64(nil), f.WaitSamples...), open...), in.Threshold)

	buckets := in.Buckets
	if buckets == nil {
		buckets = DefaultBuckets
	}
	s.Wait = Waits(f.WaitSamples, buckets)

	chargers := f.Chargers.All()
	s.Chargers.Active = lo.CountBy(chargers, func(c *model.Charger) bool { return c.Active })
	s.Chargers.Inactive = len(chargers) - s.Chargers.Active

	if in.Pricing != nil {
		s.Pricing = PricingStatus{
			Interval: in.Pricing.Interval().Name,
			Demand:   in.Pricing.Demand(),
			TODRate:  in.Pricing.TODRate(),
			Price:    in.Pricing.Price(),
		}
	}
	return s
}

// PricePoint is the pricing context sampled at one tick.
type PricePoint struct {
	Tick    int     `json:"tick"`
	SimTime float64 `json:"sim_time"`
	PricingStatus
}

// PricePoint samples the pricing context of the snapshot.
func (s Snapshot) PricePoint() PricePoint {
	return PricePoint{Tick: s.Tick, SimTime: s.SimTime, PricingStatus: s.Pricing}
}
