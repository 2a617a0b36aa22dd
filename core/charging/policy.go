// Package charging decides when idle taxis divert to a charger and which
// charger they use.
package charging

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/kilianp07/robotaxi/core/logger"
	"github.com/kilianp07/robotaxi/core/model"
	"github.com/kilianp07/robotaxi/core/oracle"
	"github.com/kilianp07/robotaxi/core/prediction"
)

// Context carries the time-dependent inputs of a decision.
type Context struct {
	Now   float64
	Price float64
}

// Policy decides whether a taxi should charge now.
type Policy interface {
	Name() string
	ShouldCharge(t *model.Taxi, c Context) bool
}

// New returns the policy configured by cfg.
func New(cfg Config, rng *rand.Rand, pred prediction.PricePredictor, log logger.Logger) (Policy, error) {
	switch cfg.Policy {
	case PolicyBaseline, "":
		return &Baseline{Min: cfg.RandomMin, Max: cfg.RandomMax, rng: rng}, nil
	case PolicyForecast:
		if pred == nil {
			return nil, fmt.Errorf("forecast policy needs a price predictor")
		}
		return &Forecast{Hard: cfg.Hard, Soft: cfg.Soft, Horizon: cfg.Horizon, Step: cfg.Step, Predictor: pred, log: log}, nil
	default:
		return nil, fmt.Errorf("unknown charging policy %q", cfg.Policy)
	}
}

// Baseline draws a fresh threshold in [Min, Max] percent on every evaluation.
type Baseline struct {
	Min, Max float64
	rng      *rand.Rand
}

// NewBaseline returns a random threshold policy.
func NewBaseline(low, high float64, rng *rand.Rand) *Baseline {
	return &Baseline{Min: low, Max: high, rng: rng}
}

func (b *Baseline) Name() string { return PolicyBaseline }

func (b *Baseline) ShouldCharge(t *model.Taxi, _ Context) bool {
	threshold := b.Min + b.rng.Float64()*(b.Max-b.Min)
	return t.Battery.Percent() < threshold
}

// Forecast always charges below Hard. Between Hard and Soft it charges when
// most forecast prices are above the current one.
type Forecast struct {
	Hard, Soft float64
	Horizon    int
	Step       float64
	Predictor  prediction.PricePredictor
	log        logger.Logger
}

func (f *Forecast) Name() string { return PolicyForecast }

func (f *Forecast) ShouldCharge(t *model.Taxi, c Context) bool {
	soc := t.Battery.Percent()
	if soc < f.Hard {
		return true
	}
	if soc >= f.Soft {
		return false
	}
	points, err := f.Predictor.Forecast(c.Now, f.Step, f.Horizon)
	if err != nil || len(points) == 0 {
		if f.log != nil {
			f.log.Warnf("price forecast unavailable for %s, deferring: %v", t.ID, err)
		}
		return false
	}
	higher := 0
	for _, p := range points {
		if p > c.Price {
			higher++
		}
	}
	return higher*2 > len(points)
}

// Nearest returns the active charger with the shortest feasible route from
// from. Chargers are visited in order and only a strictly shorter route
// replaces the current best. A nil charger means none is reachable.
func Nearest(ctx context.Context, router oracle.Router, from model.Location, chargers []*model.Charger) (*model.Charger, model.Route, error) {
	var best *model.Charger
	var bestRoute model.Route
	for _, ch := range chargers {
		if !ch.Active {
			continue
		}
		rt, err := router.FindRoute(ctx, from, ch.Location)
		if err != nil {
			return nil, model.Route{}, fmt.Errorf("route to charger %s: %w", ch.ID, err)
		}
		if !rt.Feasible() {
			continue
		}
		if best == nil || rt.Length < bestRoute.Length {
			best, bestRoute = ch, rt
		}
	}
	return best, bestRoute, nil
}

// Arrived reports whether a taxi at pos is at or past the charger placement.
func Arrived(pos model.Location, ch *model.Charger) bool {
	return pos.Reached(ch.Location)
}

// Recharge fills the battery and returns the ledger entry priced at price.
// Fixed fees are applied by the tariff when totals are computed.
func Recharge(t *model.Taxi, price, now float64) model.CostEntry {
	added := t.Battery.Refill()
	e := model.NewCostEntry(added, price, now)
	t.Ledger.Charges = append(t.Ledger.Charges, e)
	return e
}
