package model

import (
	"encoding/json"
	"fmt"
)

// TaxiState enumerates the activity of a taxi.
type TaxiState int

const (
	TaxiIdle TaxiState = iota
	TaxiEnRouteToCharge
	TaxiEnRouteToPickup
	TaxiTransporting
	TaxiOutOfCommission
)

var taxiStateNames = map[TaxiState]string{
	TaxiIdle:            "idle",
	TaxiEnRouteToCharge: "en_route_to_charge",
	TaxiEnRouteToPickup: "en_route_to_pickup",
	TaxiTransporting:    "transporting",
	TaxiOutOfCommission: "out_of_commission",
}

func (s TaxiState) String() string {
	if n, ok := taxiStateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("TaxiState(%d)", int(s))
}

// MarshalJSON encodes the state by name.
func (s TaxiState) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// ParseTaxiState maps a state name back to its value.
func ParseTaxiState(name string) (TaxiState, bool) {
	for s, n := range taxiStateNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// TaxiStates lists every taxi state.
func TaxiStates() []TaxiState {
	return []TaxiState{TaxiIdle, TaxiEnRouteToCharge, TaxiEnRouteToPickup, TaxiTransporting, TaxiOutOfCommission}
}

// OutReason explains why a taxi left service.
type OutReason string

const (
	OutTowed    OutReason = "tow"
	OutStranded OutReason = "stranded"
)

// Taxi is a fleet vehicle. Reservation and charger references are IDs
// resolved through the owning registries.
type Taxi struct {
	ID            string    `json:"id"`
	State         TaxiState `json:"state"`
	Battery       Battery   `json:"battery"`
	ReservationID string    `json:"reservation_id,omitempty"`
	ChargerID     string    `json:"charger_id,omitempty"`
	Destination   Location  `json:"destination"`

	Distance float64 `json:"distance_m"`
	Energy   float64 `json:"energy_kwh"`
	Odometer float64 `json:"-"`

	OutReason OutReason `json:"out_reason,omitempty"`
	ReturnAt  float64   `json:"return_at,omitempty"`

	Ledger Ledger `json:"ledger"`
}

// Available reports whether the taxi can take a new job.
func (t *Taxi) Available() bool { return t.State == TaxiIdle }

// Removable reports whether the taxi may be removed by a command.
func (t *Taxi) Removable() bool {
	return t.State == TaxiIdle || t.State == TaxiOutOfCommission
}

// Dispatch sends the taxi to pick up a reservation.
func (t *Taxi) Dispatch(reservationID string, pickup Location) {
	t.State = TaxiEnRouteToPickup
	t.ReservationID = reservationID
	t.ChargerID = ""
	t.Destination = pickup
}

// SendToCharger diverts the taxi to a charger.
func (t *Taxi) SendToCharger(chargerID string, at Location) {
	t.State = TaxiEnRouteToCharge
	t.ChargerID = chargerID
	t.Destination = at
}

// Board switches to transporting towards dropoff.
func (t *Taxi) Board(dropoff Location) {
	t.State = TaxiTransporting
	t.Destination = dropoff
}

// Free returns the taxi to idle wandering.
func (t *Taxi) Free() {
	t.State = TaxiIdle
	t.ReservationID = ""
	t.ChargerID = ""
}

// Retire takes the taxi out of commission until returnAt.
func (t *Taxi) Retire(reason OutReason, returnAt float64) {
	t.State = TaxiOutOfCommission
	t.ReservationID = ""
	t.ChargerID = ""
	t.OutReason = reason
	t.ReturnAt = returnAt
}

// Reinstate brings an out-of-commission taxi back with a full battery.
func (t *Taxi) Reinstate() {
	t.Battery.Refill()
	t.State = TaxiIdle
	t.OutReason = ""
	t.ReturnAt = 0
}
