// Package demand spreads the initial reservation batch across the simulated
// day following the configured demand profile.
package demand

import (
	"math/rand"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/robotaxi/core/economics"
)

var departures = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "demand_generated_depart_hour",
	Help:    "Hour of day of generated reservation departures",
	Buckets: prometheus.LinearBuckets(0, 1, 24),
})

func init() {
	prometheus.MustRegister(departures)
}

// Generator draws depart times. Each interval receives a share of the batch
// proportional to its length times its mean base demand.
type Generator struct {
	schedule *economics.Schedule
	rand     *rand.Rand
	weights  []float64
	total    float64
}

// New creates a Generator over schedule drawing from rng.
func New(schedule *economics.Schedule, rng *rand.Rand) *Generator {
	g := &Generator{schedule: schedule, rand: rng}
	for i, iv := range schedule.Intervals() {
		start, end := schedule.Span(i)
		w := (end - start) * (iv.DemandMin + iv.DemandMax) / 2
		if w < 0 {
			w = 0
		}
		g.weights = append(g.weights, w)
		g.total += w
	}
	return g
}

// Weights returns the relative weight of every interval.
func (g *Generator) Weights() []float64 {
	return append([]float64(nil), g.weights...)
}

// DepartTimes returns n depart times in ascending order, offset by from.
func (g *Generator) DepartTimes(n int, from float64) []float64 {
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		idx := g.pick()
		start, end := g.schedule.Span(idx)
		t := start + g.rand.Float64()*(end-start)
		departures.Observe(t / g.schedule.DayLength() * 24)
		out = append(out, from+t)
	}
	sort.Float64s(out)
	return out
}

func (g *Generator) pick() int {
	if g.total <= 0 {
		return g.rand.Intn(len(g.weights))
	}
	x := g.rand.Float64() * g.total
	for i, w := range g.weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(g.weights) - 1
}
