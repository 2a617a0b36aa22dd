package roadnet

import (
	"context"
	"fmt"

	"github.com/kilianp07/robotaxi/core/model"
	"github.com/kilianp07/robotaxi/core/oracle"
)

// AdvanceClock moves time forward and drives every moving vehicle step
// seconds along its route at the network speed.
func (n *Network) AdvanceClock(ctx context.Context, step float64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", oracle.ErrOracleUnavailable, err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return n.unavailable()
	}
	if step <= 0 {
		return fmt.Errorf("step must be positive")
	}
	n.now += step
	for _, v := range n.vehicles {
		if v.driving {
			n.move(v, n.speed*step)
		}
	}
	return nil
}

func (n *Network) move(v *vehicle, budget float64) {
	last := len(v.edges) - 1
	for budget > 0 {
		target := n.roads[v.edges[v.idx]].Length
		if v.idx == last {
			target = v.dest.Offset
		}
		d := target - v.at.Offset
		if d < 0 {
			d = 0
		}
		if budget < d {
			v.at.Offset += budget
			v.odometer += budget
			return
		}
		v.at.Offset = target
		v.odometer += d
		budget -= d
		if v.idx == last {
			v.driving = false
			return
		}
		v.idx++
		v.at = model.Location{Edge: v.edges[v.idx]}
	}
}

func (n *Network) vehicle(id string) (*vehicle, error) {
	if n.closed {
		return nil, n.unavailable()
	}
	v, ok := n.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrUnknownVehicle)
	}
	return v, nil
}

// Spawn inserts a stationary vehicle.
func (n *Network) Spawn(id string, at model.Location) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return n.unavailable()
	}
	if _, ok := n.roads[at.Edge]; !ok {
		return fmt.Errorf("spawn %s: unknown edge %s", id, at.Edge)
	}
	if _, dup := n.vehicles[id]; dup {
		return fmt.Errorf("spawn %s: already present", id)
	}
	n.vehicles[id] = &vehicle{at: at}
	return nil
}

// Remove deletes a vehicle from the world.
func (n *Network) Remove(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.vehicle(id); err != nil {
		return err
	}
	delete(n.vehicles, id)
	return nil
}

// Drive sets a new route. The route must start on the vehicle's edge.
func (n *Network) Drive(id string, route model.Route, dest model.Location) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, err := n.vehicle(id)
	if err != nil {
		return err
	}
	if !route.Feasible() {
		return fmt.Errorf("drive %s: empty route", id)
	}
	if route.Edges[0] != v.at.Edge {
		return fmt.Errorf("drive %s: route starts on %s, vehicle on %s", id, route.Edges[0], v.at.Edge)
	}
	if route.Edges[len(route.Edges)-1] != dest.Edge {
		return fmt.Errorf("drive %s: route does not end on %s", id, dest.Edge)
	}
	v.edges = append([]string(nil), route.Edges...)
	v.idx = 0
	v.dest = dest
	v.driving = true
	return nil
}

// Halt stops a vehicle where it is.
func (n *Network) Halt(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, err := n.vehicle(id)
	if err != nil {
		return err
	}
	v.driving = false
	return nil
}

// Position returns the vehicle location.
func (n *Network) Position(id string) (model.Location, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, err := n.vehicle(id)
	if err != nil {
		return model.Location{}, err
	}
	return v.at, nil
}

// Odometer returns the cumulative distance driven in meters.
func (n *Network) Odometer(id string) (float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, err := n.vehicle(id)
	if err != nil {
		return 0, err
	}
	return v.odometer, nil
}

// Arrived reports whether the vehicle is stationary.
func (n *Network) Arrived(id string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, err := n.vehicle(id)
	if err != nil {
		return false, err
	}
	return !v.driving, nil
}
