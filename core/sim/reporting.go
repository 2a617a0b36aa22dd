package sim

import (
	"context"
	"time"

	"github.com/kilianp07/robotaxi/core/metrics"
	"github.com/kilianp07/robotaxi/core/model"
	"github.com/kilianp07/robotaxi/core/report"
	"github.com/kilianp07/robotaxi/core/triplog"
)

// logRecord buffers a trip log record stamped with the current time and
// pricing context. Buffers are flushed on every report and at teardown.
func (e *Engine) logRecord(r triplog.Record) {
	r.Timestamp = time.Now()
	r.SimTime = e.now
	if r.Demand == 0 {
		r.Demand = e.pricing.Demand()
	}
	if r.TODRate == 0 {
		r.TODRate = e.pricing.TODRate()
	}
	e.pending = append(e.pending, r)
}

func (e *Engine) flushTripLog(ctx context.Context) error {
	if len(e.pending) == 0 {
		return nil
	}
	if err := e.tripLog.Append(ctx, e.pending...); err != nil {
		return err
	}
	e.pending = e.pending[:0]
	return nil
}

func (e *Engine) recordEnergy(taxiID, kind string, entry model.CostEntry, amount float64) {
	rec, ok := e.sink.(metrics.EnergyRecorder)
	if !ok {
		return
	}
	ev := metrics.EnergyEvent{TaxiID: taxiID, Kind: kind, Energy: entry.Energy, Cost: amount, SimTime: e.now, Time: time.Now()}
	if err := rec.RecordEnergy(ev); err != nil {
		e.log.Warnf("record energy: %v", err)
	}
}

// Snapshot builds a status snapshot of the current fleet. It must be called
// from the goroutine driving the engine.
func (e *Engine) Snapshot() report.Snapshot {
	return report.Build(report.Input{
		Fleet:          e.fleet,
		Pricing:        e.pricing,
		Tariff:         e.tariff,
		Tick:           e.tick,
		Now:            e.now,
		Threshold:      e.cfg.UnsatisfiedThreshold,
		Underfulfilled: e.underfulfilled,
		QueueDepth:     e.queue.Len(),
	})
}

// report publishes a snapshot, feeds the metrics sink with the fleet summary
// and per-taxi energy output, and flushes the trip log.
func (e *Engine) report(ctx context.Context) {
	snap := e.Snapshot()
	e.reports.Set(snap)

	tick := metrics.TickEvent{
		Tick:                snap.Tick,
		SimTime:             snap.SimTime,
		TaxisByState:        snap.Taxis,
		ReservationsByState: snap.Reservations,
		ActiveChargers:      snap.Chargers.Active,
		Demand:              snap.Pricing.Demand,
		TODRate:             snap.Pricing.TODRate,
		Price:               snap.Pricing.Price,
		QueueDepth:          snap.QueueDepth,
		Time:                snap.Time,
	}
	if err := e.sink.RecordTick(tick); err != nil {
		e.log.Warnf("record tick: %v", err)
	}
	if rec, ok := e.sink.(metrics.TaxiSnapshotRecorder); ok {
		out := make([]metrics.TaxiSnapshot, 0, len(snap.TaxiStatus))
		for _, t := range snap.TaxiStatus {
			out = append(out, metrics.TaxiSnapshot{
				TaxiID:     t.ID,
				State:      t.State,
				BatteryPct: t.BatteryPct,
				DistanceKm: t.DistanceKm,
				EnergyKWh:  t.EnergyKWh,
				SimTime:    snap.SimTime,
				Time:       snap.Time,
			})
		}
		if err := rec.RecordTaxiSnapshots(out); err != nil {
			e.log.Warnf("record taxi snapshots: %v", err)
		}
	}
	for _, t := range snap.TaxiStatus {
		e.log.Debugw("taxi energy", map[string]any{
			"taxi":        t.ID,
			"state":       t.State,
			"battery_pct": t.BatteryPct,
			"energy_kwh":  t.EnergyKWh,
			"distance_km": t.DistanceKm,
		})
	}
	if err := e.flushTripLog(ctx); err != nil {
		e.log.Warnf("flush trip log: %v", err)
	}
	e.log.Infow("status", map[string]any{
		"tick":        snap.Tick,
		"sim_time":    snap.SimTime,
		"taxis":       snap.Taxis,
		"waiting":     snap.Reservations[model.ReservationWaiting.String()],
		"completed":   snap.Completed,
		"wait_p50":    snap.Wait.P50,
		"unsatisfied": snap.Unsatisfied,
		"profit":      snap.Economics.Total.Profit,
	})
	e.publish(Event{Kind: EventReport, Amount: snap.Economics.Total.Profit})
}
