package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	passLatency  *prometheus.HistogramVec
	matchesTotal *prometheus.CounterVec
	stealsTotal  *prometheus.CounterVec
	unreachTotal *prometheus.CounterVec
	strandTotal  *prometheus.CounterVec
	queriesTotal *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_pass_duration_seconds",
			Help:    "Duration of a dispatch pass including route queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"policy"},
	)
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, []string{"policy"})
	}
	return lat,
		counter("dispatch_matches_total", "Taxi to reservation assignments"),
		counter("dispatch_steals_total", "Reservations reassigned to a closer taxi during a batched pass"),
		counter("dispatch_unreachable_total", "Reservations no available taxi could reach"),
		counter("dispatch_stranded_total", "Taxis unable to reach any pending reservation"),
		counter("dispatch_route_queries_total", "Route queries issued to the mobility oracle")
}

func init() {
	passLatency, matchesTotal, stealsTotal, unreachTotal, strandTotal, queriesTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(passLatency, matchesTotal, stealsTotal, unreachTotal, strandTotal, queriesTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	passLatency, matchesTotal, stealsTotal, unreachTotal, strandTotal, queriesTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func observe(policy string, d time.Duration, p *Pass, matches int) {
	passLatency.WithLabelValues(policy).Observe(d.Seconds())
	matchesTotal.WithLabelValues(policy).Add(float64(matches))
	stealsTotal.WithLabelValues(policy).Add(float64(p.Steals))
	unreachTotal.WithLabelValues(policy).Add(float64(len(p.Unreachable)))
	strandTotal.WithLabelValues(policy).Add(float64(len(p.Stranded)))
	queriesTotal.WithLabelValues(policy).Add(float64(p.Queries))
}
