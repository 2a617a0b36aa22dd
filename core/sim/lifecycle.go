package sim

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/robotaxi/core/charging"
	"github.com/kilianp07/robotaxi/core/dispatch"
	"github.com/kilianp07/robotaxi/core/metrics"
	"github.com/kilianp07/robotaxi/core/model"
	"github.com/kilianp07/robotaxi/core/oracle"
	"github.com/kilianp07/robotaxi/core/triplog"
)

// reinitUnreachable gives every unreachable reservation a fresh feasible
// trip and sends it back to pending. Each reinit discounts one reservation
// from the live demand counter; the reservation counts again when it
// reactivates.
func (e *Engine) reinitUnreachable(ctx context.Context) error {
	for _, r := range e.fleet.ReservationsIn(model.ReservationUnreachable) {
		pickup, dropoff, rt, err := e.randomTrip(ctx)
		if err != nil {
			if ferr := e.check("reinit", err); ferr != nil {
				return ferr
			}
			continue
		}
		r.Reinit(pickup, dropoff, rt, e.now)
		e.pricing.DiscountReservation()
		e.publish(Event{Kind: EventReservationReinit, ReservationID: r.ID})
	}
	return nil
}

func (e *Engine) activateDue(context.Context) error {
	for _, r := range e.fleet.ReservationsIn(model.ReservationPending) {
		if !r.Due(e.now) {
			continue
		}
		r.Activate(e.now)
		e.pricing.RecordReservation()
	}
	return nil
}

func (e *Engine) updatePricing(context.Context) error {
	if e.pricing.Update(e.now) {
		in := e.pricing.Interval()
		e.log.Infow("pricing interval started", map[string]any{
			"interval": in.Name,
			"demand":   e.pricing.Demand(),
			"tod_rate": e.pricing.TODRate(),
			"price":    e.pricing.Price(),
		})
	}
	return nil
}

// accountEnergy charges every moving taxi for the distance driven since the
// last tick and retires those whose battery ran out.
func (e *Engine) accountEnergy(ctx context.Context) error {
	for _, t := range e.fleet.Taxis.Sorted() {
		if t.State == model.TaxiOutOfCommission {
			continue
		}
		odo, err := e.oracle.Odometer(t.ID)
		if err != nil {
			if ferr := e.check("energy", err); ferr != nil {
				return ferr
			}
			continue
		}
		delta := odo - t.Odometer
		t.Odometer = odo
		if delta <= 0 {
			continue
		}
		t.Distance += delta
		drawn, err := t.Battery.Consume(delta / 1000 * e.cfg.ConsumptionPerKm)
		t.Energy += drawn
		if errors.Is(err, model.ErrBatteryExhausted) {
			if err := e.exhaust(ctx, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// exhaust resets the reservation held by an empty taxi and tows the taxi.
// A rider in transit restarts from the breakdown point towards the same
// dropoff; a rider not yet picked up goes back to waiting.
func (e *Engine) exhaust(ctx context.Context, t *model.Taxi) error {
	if err := e.oracle.Halt(t.ID); err != nil {
		if ferr := e.check("tow", err); ferr != nil {
			return ferr
		}
	}
	if t.ReservationID != "" {
		if err := e.resetReservation(ctx, t); err != nil {
			return err
		}
	}
	energy := t.Battery.Capacity - t.Battery.Level
	entry := model.NewCostEntry(energy, e.pricing.Price(), e.now)
	t.Ledger.Tows = append(t.Ledger.Tows, entry)
	t.Retire(model.OutTowed, e.now+e.cfg.Cooldown)

	amount := e.tariff.TowFee + entry.EnergyCost
	e.logRecord(triplog.Record{Kind: triplog.KindTow, TaxiID: t.ID, Energy: energy, Amount: amount})
	e.recordEnergy(t.ID, "tow", entry, amount)
	e.publish(Event{Kind: EventTaxiOutOfCommission, TaxiID: t.ID, Detail: string(model.OutTowed), Amount: amount})
	return nil
}

func (e *Engine) resetReservation(ctx context.Context, t *model.Taxi) error {
	r, err := e.fleet.Reservations.Get(t.ReservationID)
	if err != nil {
		return e.check("tow", err)
	}
	switch r.State {
	case model.ReservationInTransit:
		pos, err := e.oracle.Position(t.ID)
		if err != nil {
			return e.check("tow", err)
		}
		rt, err := e.oracle.FindRoute(ctx, pos, r.Dropoff)
		if err != nil {
			return e.check("tow", err)
		}
		r.Resume(pos, rt, e.now)
	case model.ReservationAssigned:
		r.Release()
	default:
		return nil
	}
	e.publish(Event{Kind: EventReservationReset, ReservationID: r.ID, TaxiID: t.ID})
	return nil
}

func (e *Engine) returnFromCooldown(context.Context) error {
	for _, t := range e.fleet.TaxisIn(model.TaxiOutOfCommission) {
		if t.ReturnAt > e.now {
			continue
		}
		t.Reinstate()
		e.publish(Event{Kind: EventTaxiReinstated, TaxiID: t.ID})
	}
	return nil
}

// runCharging diverts idle taxis chosen by the charging policy to their
// nearest active charger. A taxi with no reachable charger stays available.
func (e *Engine) runCharging(ctx context.Context) error {
	active := e.fleet.Chargers.Active()
	if len(active) == 0 {
		return nil
	}
	cctx := charging.Context{Now: e.now, Price: e.pricing.Price()}
	for _, t := range e.fleet.TaxisIn(model.TaxiIdle) {
		if !e.charging.ShouldCharge(t, cctx) {
			continue
		}
		pos, err := e.oracle.Position(t.ID)
		if err != nil {
			if ferr := e.check("charging", err); ferr != nil {
				return ferr
			}
			continue
		}
		ch, rt, err := charging.Nearest(ctx, e.oracle, pos, active)
		if err != nil {
			if ferr := e.check("charging", err); ferr != nil {
				return ferr
			}
			continue
		}
		if ch == nil {
			continue
		}
		if err := e.oracle.Drive(t.ID, rt, ch.Location); err != nil {
			if ferr := e.check("charging", err); ferr != nil {
				return ferr
			}
			continue
		}
		t.SendToCharger(ch.ID, ch.Location)
		e.publish(Event{Kind: EventChargingStarted, TaxiID: t.ID, ChargerID: ch.ID})
	}
	return nil
}

// runDispatch matches available taxis to waiting reservations when the
// policy is due, then applies the unreachable and stranded verdicts.
func (e *Engine) runDispatch(ctx context.Context) error {
	if !e.dispatcher.Due(e.tick) {
		return nil
	}
	var taxis []dispatch.Unit
	for _, t := range e.fleet.TaxisIn(model.TaxiIdle) {
		pos, err := e.oracle.Position(t.ID)
		if err != nil {
			if ferr := e.check("dispatch", err); ferr != nil {
				return ferr
			}
			continue
		}
		taxis = append(taxis, dispatch.Unit{ID: t.ID, At: pos})
	}
	var waiting []dispatch.Unit
	for _, r := range e.fleet.ReservationsIn(model.ReservationWaiting) {
		waiting = append(waiting, dispatch.Unit{ID: r.ID, At: r.Pickup})
	}
	out, err := dispatch.Run(ctx, e.dispatcher, e.oracle, taxis, waiting)
	if err != nil {
		return e.check("dispatch", err)
	}

	for _, id := range out.Unreachable {
		r, err := e.fleet.Reservations.Get(id)
		if err != nil {
			continue
		}
		r.MarkUnreachable()
		e.publish(Event{Kind: EventReservationUnreachable, ReservationID: id})
	}
	for _, id := range out.Stranded {
		t, err := e.fleet.Taxis.Get(id)
		if err != nil {
			continue
		}
		if err := e.oracle.Halt(id); err != nil {
			if ferr := e.check("dispatch", err); ferr != nil {
				return ferr
			}
		}
		t.Retire(model.OutStranded, e.now+e.cfg.Cooldown)
		e.logRecord(triplog.Record{Kind: triplog.KindStranded, TaxiID: id})
		e.publish(Event{Kind: EventTaxiOutOfCommission, TaxiID: id, Detail: string(model.OutStranded)})
	}
	for _, m := range out.Matches {
		t, terr := e.fleet.Taxis.Get(m.TaxiID)
		r, rerr := e.fleet.Reservations.Get(m.ReservationID)
		if terr != nil || rerr != nil {
			continue
		}
		if err := e.oracle.Drive(t.ID, m.Route, r.Pickup); err != nil {
			if ferr := e.check("dispatch", err); ferr != nil {
				return ferr
			}
			continue
		}
		if err := r.Assign(t.ID); err != nil {
			_ = e.check("dispatch", err)
			continue
		}
		t.Dispatch(r.ID, r.Pickup)
		e.publish(Event{Kind: EventReservationAssigned, TaxiID: t.ID, ReservationID: r.ID, Amount: m.Route.Length})
	}
	return nil
}

// handleArrivals detects pickups, drop-offs and charger arrivals of taxis
// that stopped at their destination.
func (e *Engine) handleArrivals(ctx context.Context) error {
	for _, t := range e.fleet.Taxis.Sorted() {
		switch t.State {
		case model.TaxiEnRouteToPickup, model.TaxiTransporting, model.TaxiEnRouteToCharge:
		default:
			continue
		}
		arrived, err := e.oracle.Arrived(t.ID)
		if err == nil && !arrived {
			continue
		}
		var pos model.Location
		if err == nil {
			pos, err = e.oracle.Position(t.ID)
		}
		if err != nil {
			if ferr := e.check("arrivals", err); ferr != nil {
				return ferr
			}
			continue
		}
		switch t.State {
		case model.TaxiEnRouteToPickup:
			err = e.pickup(ctx, t, pos)
		case model.TaxiTransporting:
			e.dropoff(t, pos)
		case model.TaxiEnRouteToCharge:
			err = e.recharge(ctx, t, pos)
		}
		if ferr := e.check("arrivals", err); ferr != nil {
			return ferr
		}
	}
	return nil
}

func (e *Engine) pickup(ctx context.Context, t *model.Taxi, pos model.Location) error {
	r, err := e.fleet.Reservations.Get(t.ReservationID)
	if err != nil {
		t.Free()
		return err
	}
	if !pos.Reached(r.Pickup) {
		return nil
	}
	rt, err := e.oracle.FindRoute(ctx, pos, r.Dropoff)
	if err != nil {
		return err
	}
	if !rt.Feasible() {
		r.MarkUnreachable()
		t.Free()
		e.publish(Event{Kind: EventReservationUnreachable, ReservationID: r.ID, TaxiID: t.ID})
		return nil
	}
	if err := e.oracle.Drive(t.ID, rt, r.Dropoff); err != nil {
		if !errors.Is(err, oracle.ErrOracleUnavailable) {
			r.Release()
			t.Free()
		}
		return err
	}
	if err := r.Board(e.now); err != nil {
		return err
	}
	if !r.Resumed {
		e.fleet.RecordWait(e.now - r.WaitingSince)
	}
	r.Route = rt
	t.Board(r.Dropoff)
	e.publish(Event{Kind: EventPickedUp, TaxiID: t.ID, ReservationID: r.ID})
	return nil
}

func (e *Engine) dropoff(t *model.Taxi, pos model.Location) {
	r, err := e.fleet.Reservations.Get(t.ReservationID)
	if err != nil {
		t.Free()
		return
	}
	if !pos.Reached(r.Dropoff) {
		return
	}
	trip := model.TripRecord{
		ReservationID: r.ID,
		Distance:      r.Route.Length,
		Demand:        e.pricing.Demand(),
		TODRate:       e.pricing.TODRate(),
		At:            e.now,
	}
	t.Ledger.Trips = append(t.Ledger.Trips, trip)
	earnings := e.tariff.TripEarnings(trip)
	wait := r.PickedUpAt - r.WaitingSince
	if err := r.Complete(); err != nil {
		_ = e.check("arrivals", err)
	}
	e.fleet.Reservations.Delete(r.ID)
	e.fleet.Completed++
	t.Free()

	e.logRecord(triplog.Record{
		Kind:          triplog.KindTrip,
		TaxiID:        t.ID,
		ReservationID: r.ID,
		Distance:      trip.Distance,
		Amount:        earnings,
		Demand:        trip.Demand,
		TODRate:       trip.TODRate,
	})
	if rec, ok := e.sink.(metrics.TripRecorder); ok {
		ev := metrics.TripEvent{TaxiID: t.ID, ReservationID: r.ID, Distance: trip.Distance, Earnings: earnings, Wait: wait, SimTime: e.now, Time: time.Now()}
		if err := rec.RecordTrip(ev); err != nil {
			e.log.Warnf("record trip: %v", err)
		}
	}
	e.publish(Event{Kind: EventTripCompleted, TaxiID: t.ID, ReservationID: r.ID, Amount: earnings})
}

// recharge refills a taxi that reached its charger. A charger deactivated
// while the taxi was on its way no longer serves it: the taxi heads to the
// nearest active charger instead, or goes back to idle when none is left.
func (e *Engine) recharge(ctx context.Context, t *model.Taxi, pos model.Location) error {
	ch, err := e.fleet.Chargers.Get(t.ChargerID)
	if err != nil {
		t.Free()
		return nil
	}
	if !ch.Active {
		return e.redirectCharging(ctx, t, pos, ch.ID)
	}
	if !charging.Arrived(pos, ch) {
		return nil
	}
	entry := charging.Recharge(t, e.pricing.Price(), e.now)
	t.Free()
	amount := e.tariff.ChargeFee + entry.EnergyCost
	e.logRecord(triplog.Record{Kind: triplog.KindCharge, TaxiID: t.ID, Energy: entry.Energy, Amount: amount})
	e.recordEnergy(t.ID, "charge", entry, amount)
	e.publish(Event{Kind: EventChargeCompleted, TaxiID: t.ID, ChargerID: ch.ID, Amount: amount})
	return nil
}

func (e *Engine) redirectCharging(ctx context.Context, t *model.Taxi, pos model.Location, closed string) error {
	ch, rt, err := charging.Nearest(ctx, e.oracle, pos, e.fleet.Chargers.Active())
	if err != nil {
		return err
	}
	if ch == nil {
		t.Free()
		e.publish(Event{Kind: EventChargingAborted, TaxiID: t.ID, ChargerID: closed})
		return nil
	}
	if err := e.oracle.Drive(t.ID, rt, ch.Location); err != nil {
		if !errors.Is(err, oracle.ErrOracleUnavailable) {
			t.Free()
		}
		return err
	}
	t.SendToCharger(ch.ID, ch.Location)
	e.publish(Event{Kind: EventChargingStarted, TaxiID: t.ID, ChargerID: ch.ID, Detail: "redirected from " + closed})
	return nil
}

// refreshWandering gives idle taxis that reached their wander target a new
// random reachable destination.
func (e *Engine) refreshWandering(ctx context.Context) error {
	for _, t := range e.fleet.TaxisIn(model.TaxiIdle) {
		arrived, err := e.oracle.Arrived(t.ID)
		if err != nil {
			if ferr := e.check("wander", err); ferr != nil {
				return ferr
			}
			continue
		}
		if !arrived {
			continue
		}
		if err := e.wander(ctx, t); err != nil {
			if ferr := e.check("wander", err); ferr != nil {
				return ferr
			}
		}
	}
	return nil
}

func (e *Engine) wander(ctx context.Context, t *model.Taxi) error {
	pos, err := e.oracle.Position(t.ID)
	if err != nil {
		return err
	}
	for i := 0; i < e.cfg.SpawnAttempts; i++ {
		dest, err := e.randomLocation()
		if err != nil {
			return err
		}
		if dest.Edge == pos.Edge {
			continue
		}
		rt, err := e.oracle.FindRoute(ctx, pos, dest)
		if err != nil {
			return err
		}
		if !rt.Feasible() {
			continue
		}
		if err := e.oracle.Drive(t.ID, rt, dest); err != nil {
			return err
		}
		t.Destination = dest
		return nil
	}
	return nil
}
