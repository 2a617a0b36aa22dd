package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTick forwards the summary to all sinks, returning the first error encountered.
func (m *MultiSink) RecordTick(ev TickEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTick(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordTrip forwards trips to sinks implementing TripRecorder.
func (m *MultiSink) RecordTrip(ev TripEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TripRecorder); ok {
			if err := rec.RecordTrip(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordEnergy forwards charging and tow costs.
func (m *MultiSink) RecordEnergy(ev EnergyEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(EnergyRecorder); ok {
			if err := rec.RecordEnergy(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTaxiSnapshots forwards per-taxi snapshots.
func (m *MultiSink) RecordTaxiSnapshots(snaps []TaxiSnapshot) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TaxiSnapshotRecorder); ok {
			if err := rec.RecordTaxiSnapshots(snaps); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCommand forwards command results.
func (m *MultiSink) RecordCommand(ev CommandEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CommandRecorder); ok {
			if err := rec.RecordCommand(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
