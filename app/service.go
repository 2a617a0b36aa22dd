package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/robotaxi/api"
	"github.com/kilianp07/robotaxi/config"
	coremetrics "github.com/kilianp07/robotaxi/core/metrics"
	coremon "github.com/kilianp07/robotaxi/core/monitoring"
	coremqtt "github.com/kilianp07/robotaxi/core/mqtt"
	"github.com/kilianp07/robotaxi/core/sim"
	"github.com/kilianp07/robotaxi/core/triplog"
	"github.com/kilianp07/robotaxi/infra/logger"
	"github.com/kilianp07/robotaxi/infra/metrics"
	"github.com/kilianp07/robotaxi/infra/monitoring"
	"github.com/kilianp07/robotaxi/infra/mqtt"
	"github.com/kilianp07/robotaxi/internal/eventbus"
)

// busBuffer is the per-subscriber event capacity of the service bus.
const busBuffer = 1024

// Service runs the engine behind its HTTP and MQTT front ends.
type Service struct {
	Engine *sim.Engine

	cfg       *config.Config
	trips     triplog.Store
	monitor   coremon.Monitor
	client    *mqtt.PahoClient
	publisher coremqtt.StatusPublisher
	log       logger.Logger
}

// Sections extracts the engine configuration from cfg.
func Sections(cfg *config.Config) EngineSections {
	return EngineSections{
		Simulation: cfg.Simulation,
		Network:    cfg.Network,
		Dispatch:   cfg.Dispatch,
		Charging:   cfg.Charging,
		Economics:  cfg.Economics,
	}
}

// New creates a Service from the configuration. The MQTT bridge is only
// connected when a broker is configured.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Log); err != nil {
		return nil, err
	}
	logg := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	trips, err := triplog.Open(cfg.TripLog)
	if err != nil {
		return nil, fmt.Errorf("trip log: %w", err)
	}

	e, err := BuildEngine(Sections(cfg), sim.Deps{
		Sink:    sink,
		TripLog: trips,
		Bus:     eventbus.NewWithBuffer[sim.Event](busBuffer),
		Monitor: mon,
		Logger:  logger.New("engine"),
	})
	if err != nil {
		_ = trips.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	svc := &Service{Engine: e, cfg: cfg, trips: trips, monitor: mon, log: logg}
	if cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT, e.Queue(), mon)
		if err != nil {
			_ = trips.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.client = client
		svc.publisher = client
	}
	return svc, nil
}

// Run starts the front ends and drives the engine until ctx is canceled,
// the configured duration elapses or the engine fails. Front ends are
// stopped once the engine returns.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	// Subscribe before the engine starts so the first report is seen.
	reports := s.Engine.Bus().Subscribe()
	engineDone := make(chan struct{})
	g.Go(func() error {
		s.publishStatus(reports, engineDone)
		return nil
	})
	if s.cfg.Metrics.PrometheusAddr != "" {
		g.Go(func() error {
			if err := metrics.StartPromServer(gctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				return fmt.Errorf("prom server: %w", err)
			}
			return nil
		})
	}
	if s.cfg.HTTP.Addr != "" {
		mux := api.NewMux(api.Routes{
			Queue:   s.Engine.Queue(),
			Reports: s.Engine.Reports(),
			Trips:   s.trips,
			Bus:     s.Engine.Bus(),
			Token:   s.cfg.HTTP.Token,
			Metrics: s.cfg.Metrics.PrometheusAddr == "",
			Log:     logger.New("api"),
		})
		g.Go(func() error { return api.Serve(gctx, s.cfg.HTTP.Addr, mux) })
	}
	g.Go(func() error {
		defer cancel()
		defer close(engineDone)
		return s.Engine.Run(gctx)
	})
	return g.Wait()
}

// publishStatus forwards the latest snapshot after every engine report. It
// returns once the bus is closed, or once the engine stopped and the
// buffered events are drained.
func (s *Service) publishStatus(events <-chan sim.Event, done <-chan struct{}) {
	defer s.Engine.Bus().Unsubscribe(events)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.forward(ev)
		case <-done:
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					s.forward(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) forward(ev sim.Event) {
	if ev.Kind != sim.EventReport || s.publisher == nil {
		return
	}
	snap, ok := s.Engine.Reports().Latest()
	if !ok {
		return
	}
	if err := s.publisher.PublishStatus(snap); err != nil {
		s.log.Warnf("status publish: %v", err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.client != nil {
		s.client.Disconnect()
	}
	s.monitor.Flush(0)
	return s.trips.Close()
}
