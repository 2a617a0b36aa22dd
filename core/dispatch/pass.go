package dispatch

import (
	"context"
	"fmt"

	"github.com/kilianp07/robotaxi/core/model"
	"github.com/kilianp07/robotaxi/core/oracle"
)

// Unit is a participant of a dispatch pass: a taxi at its position or a
// reservation at its pickup.
type Unit struct {
	ID string
	At model.Location
}

// Match pairs a taxi with a reservation and the route between them.
type Match struct {
	TaxiID        string
	ReservationID string
	Route         model.Route
}

type pair struct{ taxi, res string }

// Pass is one dispatch evaluation. Routes between taxis and pickups are
// queried lazily and cached for the lifetime of the pass.
type Pass struct {
	router oracle.Router
	cache  map[pair]model.Route

	// Taxis and Reservations are the candidates left after the pre-pass,
	// ascending by id.
	Taxis        []Unit
	Reservations []Unit
	// Unreachable lists reservations no available taxi can reach.
	Unreachable []string
	// Stranded lists taxis that reach none of the remaining reservations.
	Stranded []string

	Queries int
	Steals  int
}

// Route returns the cached route from taxi t to the pickup of r.
func (p *Pass) Route(ctx context.Context, t, r Unit) (model.Route, error) {
	k := pair{t.ID, r.ID}
	if rt, ok := p.cache[k]; ok {
		return rt, nil
	}
	rt, err := p.router.FindRoute(ctx, t.At, r.At)
	if err != nil {
		return model.Route{}, fmt.Errorf("route %s -> %s: %w", t.ID, r.ID, err)
	}
	p.Queries++
	p.cache[k] = rt
	return rt, nil
}

// Prepare builds a pass and runs the reachability pre-pass. Inputs must be
// sorted by id. With no taxis or no reservations nothing is classified, and
// taxis are only stranded when at least one reservation stayed reachable.
func Prepare(ctx context.Context, router oracle.Router, taxis, reservations []Unit) (*Pass, error) {
	p := &Pass{router: router, cache: make(map[pair]model.Route)}
	if len(taxis) == 0 || len(reservations) == 0 {
		return p, nil
	}
	for _, r := range reservations {
		reachable := false
		for _, t := range taxis {
			rt, err := p.Route(ctx, t, r)
			if err != nil {
				return nil, err
			}
			if rt.Feasible() {
				reachable = true
				break
			}
		}
		if reachable {
			p.Reservations = append(p.Reservations, r)
		} else {
			p.Unreachable = append(p.Unreachable, r.ID)
		}
	}
	if len(p.Reservations) == 0 {
		p.Taxis = taxis
		return p, nil
	}
	for _, t := range taxis {
		reachesAny := false
		for _, r := range p.Reservations {
			rt, err := p.Route(ctx, t, r)
			if err != nil {
				return nil, err
			}
			if rt.Feasible() {
				reachesAny = true
				break
			}
		}
		if reachesAny {
			p.Taxis = append(p.Taxis, t)
		} else {
			p.Stranded = append(p.Stranded, t.ID)
		}
	}
	return p, nil
}

// nearest returns the index of the shortest feasible counterpart accepted by
// keep. Ties resolve to the lowest index, which is the lowest id.
func nearest(ctx context.Context, p *Pass, from Unit, fromIsTaxi bool, others []Unit, keep func(Unit, model.Route) bool) (int, model.Route, error) {
	best := -1
	var bestRoute model.Route
	for j, o := range others {
		t, r := from, o
		if !fromIsTaxi {
			t, r = o, from
		}
		rt, err := p.Route(ctx, t, r)
		if err != nil {
			return -1, model.Route{}, err
		}
		if !rt.Feasible() || !keep(o, rt) {
			continue
		}
		if best < 0 || rt.Length < bestRoute.Length {
			best, bestRoute = j, rt
		}
	}
	return best, bestRoute, nil
}
