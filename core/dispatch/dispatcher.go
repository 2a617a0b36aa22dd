// Package dispatch matches available taxis to waiting reservations.
package dispatch

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/kilianp07/robotaxi/core/fleet"
	"github.com/kilianp07/robotaxi/core/oracle"
)

// Dispatcher is a matching policy.
type Dispatcher interface {
	Name() string
	// Due reports whether a pass should run on this tick.
	Due(tick int) bool
	// Match assigns candidates of a prepared pass.
	Match(ctx context.Context, p *Pass) ([]Match, error)
}

// New returns the dispatcher configured by cfg. Random choices draw from rng.
func New(cfg Config, rng *rand.Rand) (Dispatcher, error) {
	switch cfg.Policy {
	case PolicyBaseline, "":
		return &Baseline{rng: rng}, nil
	case PolicyBatched:
		return &Batched{Interval: cfg.BatchInterval, rng: rng}, nil
	default:
		return nil, fmt.Errorf("unknown dispatch policy %q", cfg.Policy)
	}
}

// Outcome is the result of one dispatch evaluation.
type Outcome struct {
	Matches     []Match
	Unreachable []string
	Stranded    []string
	Queries     int
	Steals      int
}

// Run prepares a pass and matches it, recording metrics.
func Run(ctx context.Context, d Dispatcher, router oracle.Router, taxis, reservations []Unit) (Outcome, error) {
	start := time.Now()
	p, err := Prepare(ctx, router, taxis, reservations)
	if err != nil {
		return Outcome{}, err
	}
	matches, err := d.Match(ctx, p)
	if err != nil {
		return Outcome{}, err
	}
	sort.Slice(matches, func(i, j int) bool { return fleet.LessID(matches[i].TaxiID, matches[j].TaxiID) })
	observe(d.Name(), time.Since(start), p, len(matches))
	return Outcome{
		Matches:     matches,
		Unreachable: p.Unreachable,
		Stranded:    p.Stranded,
		Queries:     p.Queries,
		Steals:      p.Steals,
	}, nil
}
