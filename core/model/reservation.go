package model

import (
	"encoding/json"
	"fmt"
)

// ReservationState enumerates the lifecycle of a ride request.
type ReservationState int

const (
	ReservationPending ReservationState = iota
	ReservationUnreachable
	ReservationWaiting
	ReservationAssigned
	ReservationInTransit
	ReservationCompleted
)

var reservationStateNames = map[ReservationState]string{
	ReservationPending:     "pending",
	ReservationUnreachable: "unreachable",
	ReservationWaiting:     "waiting",
	ReservationAssigned:    "assigned",
	ReservationInTransit:   "in_transit",
	ReservationCompleted:   "completed",
}

func (s ReservationState) String() string {
	if n, ok := reservationStateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("ReservationState(%d)", int(s))
}

// MarshalJSON encodes the state by name.
func (s ReservationState) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// ReservationStates lists every state in lifecycle order.
func ReservationStates() []ReservationState {
	return []ReservationState{ReservationPending, ReservationUnreachable, ReservationWaiting,
		ReservationAssigned, ReservationInTransit, ReservationCompleted}
}

// Reservation is a ride request. TaxiID references the serving taxi by ID
// only; the taxi registry owns the taxi.
type Reservation struct {
	ID      string           `json:"id"`
	RiderID string           `json:"rider_id"`
	Pickup  Location         `json:"pickup"`
	Dropoff Location         `json:"dropoff"`
	Depart  float64          `json:"depart"`
	Route   Route            `json:"route"`
	State   ReservationState `json:"state"`
	TaxiID  string           `json:"taxi_id,omitempty"`

	CreatedAt    float64 `json:"created_at"`
	WaitingSince float64 `json:"waiting_since"`
	PickedUpAt   float64 `json:"picked_up_at"`
	// Resumed is set once a trip restarted mid-way after the carrying taxi
	// ran out of battery.
	Resumed bool `json:"resumed"`
}

// Due reports whether a pending reservation should start waiting at now.
func (r *Reservation) Due(now float64) bool {
	return r.State == ReservationPending && r.Depart <= now
}

// Activate moves a due reservation into the waiting pool.
func (r *Reservation) Activate(now float64) {
	r.State = ReservationWaiting
	r.WaitingSince = now
}

// Assign hands the reservation to a taxi.
func (r *Reservation) Assign(taxiID string) error {
	if r.State != ReservationWaiting {
		return fmt.Errorf("reservation %s: assign from %s", r.ID, r.State)
	}
	r.State = ReservationAssigned
	r.TaxiID = taxiID
	return nil
}

// Board marks the rider as picked up.
func (r *Reservation) Board(now float64) error {
	if r.State != ReservationAssigned {
		return fmt.Errorf("reservation %s: board from %s", r.ID, r.State)
	}
	r.State = ReservationInTransit
	r.PickedUpAt = now
	return nil
}

// Complete finishes the trip.
func (r *Reservation) Complete() error {
	if r.State != ReservationInTransit {
		return fmt.Errorf("reservation %s: complete from %s", r.ID, r.State)
	}
	r.State = ReservationCompleted
	r.TaxiID = ""
	return nil
}

// Release returns an assigned reservation to the waiting pool.
func (r *Reservation) Release() {
	r.State = ReservationWaiting
	r.TaxiID = ""
}

// MarkUnreachable flags a waiting reservation that no taxi can reach. It is
// reinitialized on the next tick.
func (r *Reservation) MarkUnreachable() {
	r.State = ReservationUnreachable
	r.TaxiID = ""
}

// Resume restarts an interrupted trip from origin with the same destination.
func (r *Reservation) Resume(origin Location, route Route, now float64) {
	r.Pickup = origin
	r.Route = route
	r.Depart = now
	r.WaitingSince = now
	r.State = ReservationWaiting
	r.TaxiID = ""
	r.Resumed = true
}

// Reinit replaces the trip endpoints of an unreachable reservation and puts
// it back into pending with depart time now.
func (r *Reservation) Reinit(pickup, dropoff Location, route Route, now float64) {
	r.Pickup = pickup
	r.Dropoff = dropoff
	r.Route = route
	r.Depart = now
	r.State = ReservationPending
	r.TaxiID = ""
}
