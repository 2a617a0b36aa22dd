// Package sim runs the fleet tick loop. One goroutine owns all fleet state;
// external producers only push commands onto the queue.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/kilianp07/robotaxi/core/charging"
	"github.com/kilianp07/robotaxi/core/command"
	"github.com/kilianp07/robotaxi/core/demand"
	"github.com/kilianp07/robotaxi/core/dispatch"
	"github.com/kilianp07/robotaxi/core/economics"
	"github.com/kilianp07/robotaxi/core/fleet"
	"github.com/kilianp07/robotaxi/core/logger"
	"github.com/kilianp07/robotaxi/core/metrics"
	"github.com/kilianp07/robotaxi/core/model"
	"github.com/kilianp07/robotaxi/core/monitoring"
	"github.com/kilianp07/robotaxi/core/oracle"
	"github.com/kilianp07/robotaxi/core/report"
	"github.com/kilianp07/robotaxi/core/triplog"
	"github.com/kilianp07/robotaxi/internal/eventbus"
)

// Deps are the collaborators of an Engine. Oracle, Dispatcher, Charging and
// Pricing are required; the rest default to no-op implementations.
type Deps struct {
	Oracle     oracle.Oracle
	Dispatcher dispatch.Dispatcher
	Charging   charging.Policy
	Pricing    *economics.Pricing
	Tariff     economics.Tariff

	Queue   *command.Queue
	Sink    metrics.MetricsSink
	TripLog triplog.Store
	Bus     *eventbus.Bus[Event]
	Reports *report.Store
	Monitor monitoring.Monitor
	Logger  logger.Logger

	// ChargerSites are used, in order, for the initial chargers before
	// random placement.
	ChargerSites []model.Location
}

// Engine is the simulation clock and lifecycle reconciler.
type Engine struct {
	cfg Config

	oracle     oracle.Oracle
	dispatcher dispatch.Dispatcher
	charging   charging.Policy
	pricing    *economics.Pricing
	tariff     economics.Tariff
	queue      *command.Queue
	sink       metrics.MetricsSink
	tripLog    triplog.Store
	bus        *eventbus.Bus[Event]
	reports    *report.Store
	monitor    monitoring.Monitor
	log        logger.Logger
	sites      []model.Location

	fleet     *fleet.Fleet
	rng       *rand.Rand
	locations []model.Location

	tick           int
	now            float64
	ready          bool
	underfulfilled int
	lastResults    []command.Result
	pending        []triplog.Record
}

// New validates cfg and wires the engine.
func New(cfg Config, d Deps) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d.Oracle == nil || d.Dispatcher == nil || d.Charging == nil || d.Pricing == nil {
		return nil, errors.New("sim: oracle, dispatcher, charging policy and pricing are required")
	}
	e := &Engine{
		cfg:        cfg,
		oracle:     d.Oracle,
		dispatcher: d.Dispatcher,
		charging:   d.Charging,
		pricing:    d.Pricing,
		tariff:     d.Tariff,
		queue:      d.Queue,
		sink:       d.Sink,
		tripLog:    d.TripLog,
		bus:        d.Bus,
		reports:    d.Reports,
		monitor:    d.Monitor,
		log:        d.Logger,
		sites:      d.ChargerSites,
		fleet:      fleet.New(),
		rng:        rand.New(rand.NewSource(cfg.Seed)),
	}
	if e.queue == nil {
		e.queue = command.NewQueue()
	}
	if e.sink == nil {
		e.sink = metrics.NopSink{}
	}
	if e.tripLog == nil {
		e.tripLog = triplog.NopStore{}
	}
	if e.bus == nil {
		e.bus = eventbus.New[Event]()
	}
	if e.reports == nil {
		e.reports = report.NewStore()
	}
	if e.monitor == nil {
		e.monitor = monitoring.NopMonitor{}
	}
	if e.log == nil {
		e.log = nopLogger{}
	}
	return e, nil
}

// Queue returns the command queue fed by external producers.
func (e *Engine) Queue() *command.Queue { return e.queue }

// Reports returns the snapshot store.
func (e *Engine) Reports() *report.Store { return e.reports }

// Bus returns the engine event bus.
func (e *Engine) Bus() *eventbus.Bus[Event] { return e.bus }

// Tick returns the number of completed ticks.
func (e *Engine) Tick() int { return e.tick }

// Now returns the simulated time of the last tick.
func (e *Engine) Now() float64 { return e.now }

// LastResults returns the command results of the last tick.
func (e *Engine) LastResults() []command.Result { return e.lastResults }

// Init populates the world: chargers, taxis and the initial reservation batch
// whose depart times follow the demand profile of the day.
func (e *Engine) Init(ctx context.Context) error {
	if e.ready {
		return nil
	}
	locs, err := e.oracle.ValidLocations()
	if err != nil {
		return fmt.Errorf("valid locations: %w", err)
	}
	if len(locs) == 0 {
		return errors.New("sim: oracle exposes no spawnable location")
	}
	e.locations = locs
	e.now = e.oracle.CurrentTime()
	e.pricing.Update(e.now)

	for i := 0; i < e.cfg.NumChargers; i++ {
		var at model.Location
		if i < len(e.sites) {
			at = e.sites[i]
		} else if at, err = e.randomLocation(); err != nil {
			return err
		}
		e.fleet.Chargers.Add(at)
	}
	for i := 0; i < e.cfg.NumTaxis; i++ {
		if _, err := e.spawnTaxi(); err != nil {
			if ferr := e.check("init", err); ferr != nil {
				return ferr
			}
		}
	}
	gen := demand.New(e.pricing.Schedule(), e.rng)
	for _, depart := range gen.DepartTimes(e.cfg.NumReservations, e.now) {
		if _, err := e.newReservation(ctx, depart); err != nil {
			if ferr := e.check("init", err); ferr != nil {
				return ferr
			}
		}
	}
	e.ready = true
	e.log.Infow("fleet initialized", map[string]any{
		"taxis":        e.fleet.Taxis.Len(),
		"reservations": e.fleet.Reservations.Len(),
		"chargers":     e.fleet.Chargers.Len(),
		"dispatch":     e.dispatcher.Name(),
		"charging":     e.charging.Name(),
	})
	e.report(ctx)
	return nil
}

// Step runs one tick in the fixed phase order. Only an oracle outage is
// returned; every other failure is absorbed where it happens.
func (e *Engine) Step(ctx context.Context) error {
	if !e.ready {
		if err := e.Init(ctx); err != nil {
			return err
		}
	}
	start := time.Now()
	defer func() { tickDuration.Observe(time.Since(start).Seconds()) }()

	if err := e.applyCommands(ctx); err != nil {
		return err
	}
	if err := e.oracle.AdvanceClock(ctx, e.cfg.StepLength); err != nil {
		return fmt.Errorf("advance clock: %w", err)
	}
	e.now = e.oracle.CurrentTime()

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"reinit", e.reinitUnreachable},
		{"activate", e.activateDue},
		{"pricing", e.updatePricing},
		{"energy", e.accountEnergy},
		{"cooldown", e.returnFromCooldown},
		{"charging", e.runCharging},
		{"dispatch", e.runDispatch},
		{"arrivals", e.handleArrivals},
		{"wander", e.refreshWandering},
	}
	for _, p := range phases {
		if err := p.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	if e.tick%e.cfg.ReportEvery == 0 {
		e.report(ctx)
	}
	e.tick++
	ticksTotal.Inc()
	return nil
}

// Run drives Step until ctx is canceled, the configured duration elapses or
// the oracle becomes unavailable. Cancellation is observed between ticks
// only. Teardown always runs.
func (e *Engine) Run(ctx context.Context) (err error) {
	defer e.monitor.Recover()
	tickCtx := context.WithoutCancel(ctx)
	defer func() {
		if terr := e.Close(tickCtx); err == nil {
			err = terr
		}
	}()
	if err := e.Init(tickCtx); err != nil {
		return monitoring.Report(e.monitor, "engine", err)
	}

	var throttle <-chan time.Time
	if e.cfg.TickInterval > 0 {
		ticker := time.NewTicker(e.cfg.TickInterval)
		defer ticker.Stop()
		throttle = ticker.C
	}
	for {
		if ctx.Err() != nil {
			e.log.Infof("stop requested at tick %d", e.tick)
			return nil
		}
		if e.cfg.Duration > 0 && e.now >= e.cfg.Duration {
			e.log.Infof("duration reached at tick %d (t=%.0fs)", e.tick, e.now)
			return nil
		}
		if err := e.Step(tickCtx); err != nil {
			e.log.Errorf("tick %d aborted: %v", e.tick, err)
			return monitoring.Report(e.monitor, "engine", err)
		}
		if throttle != nil {
			select {
			case <-ctx.Done():
			case <-throttle:
			}
		}
	}
}

// Close publishes a final report, flushes the trip log and releases the
// oracle. Run calls it on exit; callers driving Step directly call it once
// done.
func (e *Engine) Close(ctx context.Context) error {
	e.report(ctx)
	var errs []error
	if err := e.flushTripLog(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush trip log: %w", err))
	}
	if err := e.oracle.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close oracle: %w", err))
	}
	e.bus.Close()
	e.monitor.Flush(2 * time.Second)
	return errors.Join(errs...)
}

// check separates fatal oracle outages from per-entity failures, which are
// logged and counted.
func (e *Engine) check(phase string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, oracle.ErrOracleUnavailable) {
		return err
	}
	localizedErrors.WithLabelValues(phase).Inc()
	e.log.Warnf("%s: %v", phase, err)
	return nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Infow(string, map[string]any)  {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
