package sim

// EventKind names an engine event.
type EventKind string

const (
	EventReservationAssigned    EventKind = "reservation_assigned"
	EventPickedUp               EventKind = "picked_up"
	EventTripCompleted          EventKind = "trip_completed"
	EventReservationReset       EventKind = "reservation_reset"
	EventReservationUnreachable EventKind = "reservation_unreachable"
	EventReservationReinit      EventKind = "reservation_reinit"
	EventTaxiOutOfCommission    EventKind = "taxi_out_of_commission"
	EventTaxiReinstated         EventKind = "taxi_reinstated"
	EventChargingStarted        EventKind = "charging_started"
	EventChargeCompleted        EventKind = "charge_completed"
	EventChargingAborted        EventKind = "charging_aborted"
	EventCommandApplied         EventKind = "command_applied"
	EventReport                 EventKind = "report"
)

// Event is published on the engine bus after each state change.
type Event struct {
	Kind          EventKind `json:"kind"`
	Tick          int       `json:"tick"`
	SimTime       float64   `json:"sim_time"`
	TaxiID        string    `json:"taxi_id,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
	ChargerID     string    `json:"charger_id,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
}

func (e *Engine) publish(ev Event) {
	ev.Tick = e.tick
	ev.SimTime = e.now
	transitions.WithLabelValues(string(ev.Kind)).Inc()
	e.bus.Publish(ev)
}
