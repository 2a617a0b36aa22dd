package metrics

import (
	coremetrics "github.com/kilianp07/robotaxi/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes fleet summaries and lifecycle counters as Prometheus metrics.
type PromSink struct {
	taxis        *prometheus.GaugeVec
	reservations *prometheus.GaugeVec
	chargers     prometheus.Gauge
	price        prometheus.Gauge
	demand       prometheus.Gauge
	simTime      prometheus.Gauge
	trips        prometheus.Counter
	earnings     prometheus.Counter
	wait         prometheus.Histogram
	energy       *prometheus.CounterVec
	energyCost   *prometheus.CounterVec
	commands     *prometheus.CounterVec
	underfilled  *prometheus.CounterVec
	battery      *prometheus.GaugeVec
}

// NewPromSink registers fleet metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		taxis: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleet_taxis",
			Help: "Number of taxis per lifecycle state",
		}, []string{"state"}),
		reservations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleet_reservations",
			Help: "Number of reservations per lifecycle state",
		}, []string{"state"}),
		chargers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_active_chargers",
			Help: "Number of active charging stations",
		}),
		price: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_energy_price",
			Help: "Current electricity price per kWh",
		}),
		demand: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_energy_demand",
			Help: "Current demand factor of the pricing model",
		}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_sim_time_seconds",
			Help: "Current simulation time",
		}),
		trips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_trips_completed_total",
			Help: "Total number of completed trips",
		}),
		earnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_earnings_total",
			Help: "Total fare revenue",
		}),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleet_wait_seconds",
			Help:    "Rider wait time between reservation and pickup",
			Buckets: []float64{60, 120, 300, 600, 900, 1800, 3600},
		}),
		energy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_energy_kwh_total",
			Help: "Energy bought for charging and towing",
		}, []string{"kind"}),
		energyCost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_energy_cost_total",
			Help: "Money spent on charging and towing",
		}, []string{"kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_commands_total",
			Help: "Structural commands applied",
		}, []string{"kind"}),
		underfilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_commands_underfulfilled_total",
			Help: "Commands that applied fewer changes than requested",
		}, []string{"kind"}),
		battery: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleet_taxi_battery_percent",
			Help: "Battery level of each taxi",
		}, []string{"taxi_id"}),
	}

	var err error
	if s.taxis, err = register(reg, s.taxis); err != nil {
		return nil, err
	}
	if s.reservations, err = register(reg, s.reservations); err != nil {
		return nil, err
	}
	if s.chargers, err = register(reg, s.chargers); err != nil {
		return nil, err
	}
	if s.price, err = register(reg, s.price); err != nil {
		return nil, err
	}
	if s.demand, err = register(reg, s.demand); err != nil {
		return nil, err
	}
	if s.simTime, err = register(reg, s.simTime); err != nil {
		return nil, err
	}
	if s.trips, err = register(reg, s.trips); err != nil {
		return nil, err
	}
	if s.earnings, err = register(reg, s.earnings); err != nil {
		return nil, err
	}
	if s.wait, err = register(reg, s.wait); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, s.energy); err != nil {
		return nil, err
	}
	if s.energyCost, err = register(reg, s.energyCost); err != nil {
		return nil, err
	}
	if s.commands, err = register(reg, s.commands); err != nil {
		return nil, err
	}
	if s.underfilled, err = register(reg, s.underfilled); err != nil {
		return nil, err
	}
	if s.battery, err = register(reg, s.battery); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when a sink is created twice.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTick updates the state gauges.
func (s *PromSink) RecordTick(ev coremetrics.TickEvent) error {
	for state, n := range ev.TaxisByState {
		s.taxis.WithLabelValues(state).Set(float64(n))
	}
	for state, n := range ev.ReservationsByState {
		s.reservations.WithLabelValues(state).Set(float64(n))
	}
	s.chargers.Set(float64(ev.ActiveChargers))
	s.price.Set(ev.Price)
	s.demand.Set(ev.Demand)
	s.simTime.Set(ev.SimTime)
	return nil
}

// RecordTrip counts a completed trip.
func (s *PromSink) RecordTrip(ev coremetrics.TripEvent) error {
	s.trips.Inc()
	s.earnings.Add(ev.Earnings)
	s.wait.Observe(ev.Wait)
	return nil
}

// RecordEnergy accumulates charging and tow costs.
func (s *PromSink) RecordEnergy(ev coremetrics.EnergyEvent) error {
	s.energy.WithLabelValues(ev.Kind).Add(ev.Energy)
	s.energyCost.WithLabelValues(ev.Kind).Add(ev.Cost)
	return nil
}

// RecordTaxiSnapshots sets the per-taxi battery gauge.
func (s *PromSink) RecordTaxiSnapshots(snaps []coremetrics.TaxiSnapshot) error {
	for _, t := range snaps {
		s.battery.WithLabelValues(t.TaxiID).Set(t.BatteryPct)
	}
	return nil
}

// RecordCommand counts applied and underfulfilled commands.
func (s *PromSink) RecordCommand(ev coremetrics.CommandEvent) error {
	s.commands.WithLabelValues(ev.Kind).Inc()
	if ev.Applied < ev.Requested {
		s.underfilled.WithLabelValues(ev.Kind).Inc()
	}
	return nil
}
