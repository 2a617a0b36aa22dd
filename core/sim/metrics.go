package sim

import "github.com/prometheus/client_golang/prometheus"

var (
	ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Ticks executed by the engine",
	})
	tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Wall-clock duration of one tick",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
	localizedErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_localized_errors_total",
		Help: "Per-entity failures absorbed inside a tick",
	}, []string{"phase"})
	transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_transitions_total",
		Help: "Lifecycle transitions applied by the engine",
	}, []string{"event"})
)

func init() {
	prometheus.MustRegister(ticksTotal, tickDuration, localizedErrors, transitions)
}
