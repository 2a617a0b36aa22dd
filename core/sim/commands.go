package sim

import (
	"context"
	"time"

	"github.com/kilianp07/robotaxi/core/command"
	"github.com/kilianp07/robotaxi/core/metrics"
	"github.com/kilianp07/robotaxi/core/model"
)

// applyCommands drains the queue. Commands are fulfilled as far as eligible
// entities allow; a shortfall is counted, never returned.
func (e *Engine) applyCommands(ctx context.Context) error {
	envs := e.queue.Drain()
	e.lastResults = e.lastResults[:0]
	for _, env := range envs {
		applied, err := e.apply(ctx, env.Command)
		if err != nil {
			return err
		}
		res := command.Result{ID: env.ID, Kind: env.Command.Kind(), Requested: env.Command.Requested(), Applied: applied}
		e.lastResults = append(e.lastResults, res)
		if res.Underfulfilled() > 0 {
			e.underfulfilled++
			e.log.Warnf("command %s %s: applied %d of %d", res.ID, res.Kind, res.Applied, res.Requested)
		} else {
			e.log.Debugf("command %s %s: applied %d", res.ID, res.Kind, res.Applied)
		}
		if rec, ok := e.sink.(metrics.CommandRecorder); ok {
			ev := metrics.CommandEvent{ID: res.ID, Kind: string(res.Kind), Requested: res.Requested, Applied: res.Applied, Time: time.Now()}
			if err := rec.RecordCommand(ev); err != nil {
				e.log.Warnf("record command: %v", err)
			}
		}
		e.publish(Event{Kind: EventCommandApplied, Detail: string(res.Kind), Amount: float64(res.Applied)})
	}
	return nil
}

func (e *Engine) apply(ctx context.Context, cmd command.Command) (int, error) {
	switch c := cmd.(type) {
	case command.AddReservations:
		return e.repeat(c.Count, func() (bool, error) {
			_, err := e.newReservation(ctx, e.now)
			return err == nil, e.check("add_reservation", err)
		})
	case command.RemoveReservations:
		applied := 0
		for _, r := range e.fleet.ReservationsIn(model.ReservationWaiting) {
			if applied == c.Count {
				break
			}
			e.fleet.Reservations.Delete(r.ID)
			applied++
		}
		return applied, nil
	case command.AddTaxis:
		return e.repeat(c.Count, func() (bool, error) {
			_, err := e.spawnTaxi()
			return err == nil, e.check("add_taxi", err)
		})
	case command.RemoveTaxis:
		applied := 0
		for _, t := range e.fleet.Taxis.Filter(func(t *model.Taxi) bool { return t.Removable() }) {
			if applied == c.Count {
				break
			}
			if err := e.oracle.Remove(t.ID); err != nil {
				if ferr := e.check("remove_taxi", err); ferr != nil {
					return applied, ferr
				}
				continue
			}
			e.fleet.RemoveTaxi(t.ID)
			applied++
		}
		return applied, nil
	case command.AddChargers:
		return e.repeat(c.Count, func() (bool, error) {
			at, err := e.randomLocation()
			if err != nil {
				return false, e.check("add_charger", err)
			}
			e.fleet.Chargers.Add(at)
			return true, nil
		})
	case command.RemoveChargers:
		applied := 0
		for applied < c.Count {
			if _, ok := e.fleet.Chargers.DeactivateLatest(); !ok {
				break
			}
			applied++
		}
		return applied, nil
	}
	return 0, nil
}

// repeat calls add n times and counts successes.
func (e *Engine) repeat(n int, add func() (bool, error)) (int, error) {
	applied := 0
	for i := 0; i < n; i++ {
		ok, err := add()
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}
