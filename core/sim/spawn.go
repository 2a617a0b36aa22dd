package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/robotaxi/core/model"
)

// ErrNoFeasibleTrip is returned when no reachable pickup and dropoff pair
// was found within the configured attempts.
var ErrNoFeasibleTrip = errors.New("no feasible trip found")

func (e *Engine) randomLocation() (model.Location, error) {
	at := e.locations[e.rng.Intn(len(e.locations))]
	length, err := e.oracle.LaneLength(at.Edge)
	if err != nil {
		return model.Location{}, fmt.Errorf("lane %s: %w", at.Edge, err)
	}
	at.Offset = e.rng.Float64() * length
	return at, nil
}

// randomTrip draws pickup and dropoff pairs on distinct edges until the
// oracle confirms a route between them.
func (e *Engine) randomTrip(ctx context.Context) (model.Location, model.Location, model.Route, error) {
	for i := 0; i < e.cfg.SpawnAttempts; i++ {
		pickup, err := e.randomLocation()
		if err != nil {
			return model.Location{}, model.Location{}, model.Route{}, err
		}
		dropoff, err := e.randomLocation()
		if err != nil {
			return model.Location{}, model.Location{}, model.Route{}, err
		}
		if pickup.Edge == dropoff.Edge {
			continue
		}
		rt, err := e.oracle.FindRoute(ctx, pickup, dropoff)
		if err != nil {
			return model.Location{}, model.Location{}, model.Route{}, err
		}
		if rt.Feasible() {
			return pickup, dropoff, rt, nil
		}
	}
	return model.Location{}, model.Location{}, model.Route{}, ErrNoFeasibleTrip
}

// newReservation registers a pending reservation departing at depart.
func (e *Engine) newReservation(ctx context.Context, depart float64) (*model.Reservation, error) {
	pickup, dropoff, rt, err := e.randomTrip(ctx)
	if err != nil {
		return nil, err
	}
	id, rider := e.fleet.NextReservationID()
	r := &model.Reservation{
		ID:        id,
		RiderID:   rider,
		Pickup:    pickup,
		Dropoff:   dropoff,
		Depart:    depart,
		Route:     rt,
		State:     model.ReservationPending,
		CreatedAt: e.now,
	}
	e.fleet.Reservations.Put(id, r)
	return r, nil
}

// spawnTaxi inserts an idle taxi with a full battery at a random location.
func (e *Engine) spawnTaxi() (*model.Taxi, error) {
	at, err := e.randomLocation()
	if err != nil {
		return nil, err
	}
	id := e.fleet.NextTaxiID()
	if err := e.oracle.Spawn(id, at); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", id, err)
	}
	t := &model.Taxi{ID: id, State: model.TaxiIdle, Battery: model.NewBattery(e.cfg.BatteryCapacity)}
	e.fleet.Taxis.Put(id, t)
	return t, nil
}
