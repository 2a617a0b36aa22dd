package dispatch

import (
	"context"
	"math/rand"

	"github.com/kilianp07/robotaxi/core/model"
)

// Baseline runs every tick. Taxis are visited in random order and each
// greedily takes its nearest unclaimed reservation.
type Baseline struct {
	rng *rand.Rand
}

// NewBaseline returns a baseline dispatcher.
func NewBaseline(rng *rand.Rand) *Baseline { return &Baseline{rng: rng} }

func (b *Baseline) Name() string { return PolicyBaseline }

func (b *Baseline) Due(int) bool { return true }

func (b *Baseline) Match(ctx context.Context, p *Pass) ([]Match, error) {
	claimed := make(map[string]bool, len(p.Reservations))
	var out []Match
	for _, i := range b.rng.Perm(len(p.Taxis)) {
		t := p.Taxis[i]
		j, rt, err := nearest(ctx, p, t, true, p.Reservations, func(r Unit, _ model.Route) bool {
			return !claimed[r.ID]
		})
		if err != nil {
			return nil, err
		}
		if j < 0 {
			continue
		}
		r := p.Reservations[j]
		claimed[r.ID] = true
		out = append(out, Match{TaxiID: t.ID, ReservationID: r.ID, Route: rt})
	}
	return out, nil
}
