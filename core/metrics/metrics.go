package metrics

import "time"

// TickEvent summarizes the fleet at a reporting tick.
type TickEvent struct {
	Tick                int
	SimTime             float64
	TaxisByState        map[string]int
	ReservationsByState map[string]int
	ActiveChargers      int
	Demand              float64
	TODRate             float64
	Price               float64
	QueueDepth          int
	Time                time.Time
}

// MetricsSink records periodic fleet summaries.
type MetricsSink interface {
	RecordTick(ev TickEvent) error
}

// TripEvent is emitted when a rider is dropped off.
type TripEvent struct {
	TaxiID        string
	ReservationID string
	Distance      float64
	Earnings      float64
	Wait          float64
	SimTime       float64
	Time          time.Time
}

// TripRecorder records completed trips.
type TripRecorder interface {
	RecordTrip(ev TripEvent) error
}

// EnergyEvent is a charging trip or a tow.
type EnergyEvent struct {
	TaxiID  string
	Kind    string
	Energy  float64
	Cost    float64
	SimTime float64
	Time    time.Time
}

// EnergyRecorder records charging and towing costs.
type EnergyRecorder interface {
	RecordEnergy(ev EnergyEvent) error
}

// TaxiSnapshot is the periodic per-taxi energy output.
type TaxiSnapshot struct {
	TaxiID     string
	State      string
	BatteryPct float64
	DistanceKm float64
	EnergyKWh  float64
	SimTime    float64
	Time       time.Time
}

// TaxiSnapshotRecorder records per-taxi snapshots.
type TaxiSnapshotRecorder interface {
	RecordTaxiSnapshots(s []TaxiSnapshot) error
}

// CommandEvent records how a structural command was applied.
type CommandEvent struct {
	ID        string
	Kind      string
	Requested int
	Applied   int
	Time      time.Time
}

// CommandRecorder records command results.
type CommandRecorder interface {
	RecordCommand(ev CommandEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(TickEvent) error               { return nil }
func (NopSink) RecordTrip(TripEvent) error               { return nil }
func (NopSink) RecordEnergy(EnergyEvent) error           { return nil }
func (NopSink) RecordTaxiSnapshots([]TaxiSnapshot) error { return nil }
func (NopSink) RecordCommand(CommandEvent) error         { return nil }
