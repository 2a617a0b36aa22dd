package dispatch

import (
	"context"
	"math/rand"

	"github.com/kilianp07/robotaxi/core/model"
)

// Batched runs every Interval ticks so the backlog can grow between passes.
// The smaller side of the market drives the matching; a driver may steal a
// counterpart from a claimant with a longer route, which sends the loser
// back to the pool.
type Batched struct {
	Interval int
	rng      *rand.Rand
}

// NewBatched returns a batched dispatcher running every interval ticks.
func NewBatched(interval int, rng *rand.Rand) *Batched {
	return &Batched{Interval: interval, rng: rng}
}

func (b *Batched) Name() string { return PolicyBatched }

func (b *Batched) Due(tick int) bool {
	if b.Interval <= 1 {
		return true
	}
	return tick%b.Interval == 0
}

type claim struct {
	driver int
	route  model.Route
}

func (b *Batched) Match(ctx context.Context, p *Pass) ([]Match, error) {
	taxisDrive := len(p.Taxis) <= len(p.Reservations)
	drivers, others := p.Taxis, p.Reservations
	if !taxisDrive {
		drivers, others = p.Reservations, p.Taxis
	}
	pool := make([]int, len(drivers))
	for i := range pool {
		pool[i] = i
	}
	claims := make(map[string]claim, len(others))
	for len(pool) > 0 {
		k := b.rng.Intn(len(pool))
		d := pool[k]
		pool = append(pool[:k], pool[k+1:]...)

		j, rt, err := nearest(ctx, p, drivers[d], taxisDrive, others, func(o Unit, rt model.Route) bool {
			c, held := claims[o.ID]
			return !held || rt.Length < c.route.Length
		})
		if err != nil {
			return nil, err
		}
		if j < 0 {
			continue
		}
		o := others[j]
		if prev, held := claims[o.ID]; held {
			pool = append(pool, prev.driver)
			p.Steals++
		}
		claims[o.ID] = claim{driver: d, route: rt}
	}
	out := make([]Match, 0, len(claims))
	for _, o := range others {
		c, ok := claims[o.ID]
		if !ok {
			continue
		}
		m := Match{Route: c.route}
		if taxisDrive {
			m.TaxiID, m.ReservationID = drivers[c.driver].ID, o.ID
		} else {
			m.TaxiID, m.ReservationID = o.ID, drivers[c.driver].ID
		}
		out = append(out, m)
	}
	return out, nil
}
