package model

// TripRecord is a completed trip, priced lazily with the demand multiplier
// and time-of-day rate in effect at drop-off.
type TripRecord struct {
	ReservationID string  `json:"reservation_id"`
	Distance      float64 `json:"distance_m"`
	Demand        float64 `json:"demand"`
	TODRate       float64 `json:"tod_rate"`
	At            float64 `json:"at"`
}

// CostEntry is the energy part of a charging trip or a tow. Fixed fees are
// applied from the tariff when totals are computed.
type CostEntry struct {
	Energy     float64 `json:"energy_kwh"`
	Price      float64 `json:"price"`
	EnergyCost float64 `json:"energy_cost"`
	At         float64 `json:"at"`
}

// Ledger collects the economic history of one taxi.
type Ledger struct {
	Trips   []TripRecord `json:"trips"`
	Charges []CostEntry  `json:"charges"`
	Tows    []CostEntry  `json:"tows"`
}

// NewCostEntry prices energy at the given unit price.
func NewCostEntry(energy, price, at float64) CostEntry {
	return CostEntry{Energy: energy, Price: price, EnergyCost: energy * price, At: at}
}
