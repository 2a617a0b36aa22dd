package economics

import (
	"github.com/samber/lo"

	"github.com/kilianp07/robotaxi/core/model"
)

// TripEarnings prices one trip: base fare plus distance (km) times the
// per-km rate, demand multiplier and tod rate captured at drop-off.
func (t Tariff) TripEarnings(tr model.TripRecord) float64 {
	return t.BaseFare + tr.Distance/1000*t.PerKm*tr.Demand*tr.TODRate
}

// Earnings sums all trips of a ledger.
func (t Tariff) Earnings(l model.Ledger) float64 {
	return lo.SumBy(l.Trips, t.TripEarnings)
}

// Cost sums charging trips and tows, each a fixed fee plus its energy cost.
func (t Tariff) Cost(l model.Ledger) float64 {
	energy := func(e model.CostEntry) float64 { return e.EnergyCost }
	charging := float64(len(l.Charges))*t.ChargeFee + lo.SumBy(l.Charges, energy)
	towing := float64(len(l.Tows))*t.TowFee + lo.SumBy(l.Tows, energy)
	return charging + towing
}

// Summary aggregates a ledger.
type Summary struct {
	Earnings float64 `json:"earnings"`
	Cost     float64 `json:"cost"`
	Profit   float64 `json:"profit"`
	Trips    int     `json:"trips"`
	Charges  int     `json:"charges"`
	Tows     int     `json:"tows"`
}

// Summarize computes earnings, cost and profit of one ledger.
func (t Tariff) Summarize(l model.Ledger) Summary {
	e, c := t.Earnings(l), t.Cost(l)
	return Summary{Earnings: e, Cost: c, Profit: e - c, Trips: len(l.Trips), Charges: len(l.Charges), Tows: len(l.Tows)}
}

// FleetTotals returns fleet-wide totals and per-taxi averages.
func (t Tariff) FleetTotals(ledgers []model.Ledger) (total Summary, avg Summary) {
	for _, l := range ledgers {
		s := t.Summarize(l)
		total.Earnings += s.Earnings
		total.Cost += s.Cost
		total.Trips += s.Trips
		total.Charges += s.Charges
		total.Tows += s.Tows
	}
	total.Profit = total.Earnings - total.Cost
	if n := float64(len(ledgers)); n > 0 {
		avg = Summary{Earnings: total.Earnings / n, Cost: total.Cost / n, Profit: total.Profit / n}
	}
	return total, avg
}
