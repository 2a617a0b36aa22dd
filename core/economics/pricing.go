package economics

import (
	"math/rand"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Pricing is the process-wide time-indexed pricing context. One demand,
// tod rate and electricity price triple is sampled when an interval begins;
// the demand is then scaled by recent reservation volume.
type Pricing struct {
	cfg      Config
	schedule *Schedule
	rng      *rand.Rand

	slot    Slot
	started bool

	baseDemand float64
	demand     float64
	todRate    float64
	price      float64

	count  int
	window []float64
}

// NewPricing builds a pricing context drawing samples from rng.
func NewPricing(cfg Config, rng *rand.Rand) *Pricing {
	return &Pricing{cfg: cfg, schedule: NewSchedule(cfg), rng: rng}
}

// Schedule exposes the day partition.
func (p *Pricing) Schedule() *Schedule { return p.schedule }

// Update refreshes the parameters for time now and reports whether a new
// interval began.
func (p *Pricing) Update(now float64) bool {
	slot := p.schedule.SlotAt(now)
	if p.started && slot == p.slot {
		return false
	}
	ratio := 1.0
	if p.started {
		completed := float64(p.count)
		p.window = append(p.window, completed)
		if len(p.window) > p.cfg.WindowSize {
			p.window = p.window[len(p.window)-p.cfg.WindowSize:]
		}
		if avg := stat.Mean(p.window, nil); avg > 0 {
			ratio = completed / avg
		}
	}
	in := p.schedule.intervals[slot.Index]
	p.baseDemand = p.uniform(in.DemandMin, in.DemandMax)
	p.price = p.uniform(in.PriceMin, in.PriceMax)
	p.todRate = p.cfg.TODRates[in.TOD]
	p.demand = p.clamp(p.baseDemand * ratio)
	p.count = 0
	p.slot = slot
	p.started = true
	return true
}

func (p *Pricing) uniform(low, high float64) float64 {
	if high <= low {
		return low
	}
	return low + p.rng.Float64()*(high-low)
}

func (p *Pricing) clamp(v float64) float64 {
	return lo.Clamp(v, p.cfg.DemandMin, p.cfg.DemandMax)
}

// RecordReservation counts a newly created reservation in the current interval.
func (p *Pricing) RecordReservation() { p.count++ }

// DiscountReservation removes one count, used when an unreachable reservation
// is reinitialized. The count never drops below zero.
func (p *Pricing) DiscountReservation() {
	if p.count > 0 {
		p.count--
	}
}

// Demand returns the live demand multiplier.
func (p *Pricing) Demand() float64 { return p.demand }

// TODRate returns the time-of-day rate.
func (p *Pricing) TODRate() float64 { return p.todRate }

// Price returns the electricity unit price of the current interval.
func (p *Pricing) Price() float64 { return p.price }

// Interval returns the current interval.
func (p *Pricing) Interval() Interval { return p.schedule.intervals[p.slot.Index] }

// Count returns the reservations counted in the current interval.
func (p *Pricing) Count() int { return p.count }
