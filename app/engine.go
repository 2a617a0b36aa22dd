package app

import (
	"fmt"
	"math/rand"

	"github.com/kilianp07/robotaxi/core/charging"
	"github.com/kilianp07/robotaxi/core/dispatch"
	"github.com/kilianp07/robotaxi/core/economics"
	"github.com/kilianp07/robotaxi/core/model"
	"github.com/kilianp07/robotaxi/core/prediction"
	"github.com/kilianp07/robotaxi/core/sim"
	"github.com/kilianp07/robotaxi/infra/logger"
	"github.com/kilianp07/robotaxi/infra/roadnet"
)

// EngineSections are the configuration sections that shape a simulation.
// The service config and scenario files both carry them.
type EngineSections struct {
	Simulation sim.Config       `json:"simulation"`
	Network    roadnet.Config   `json:"network"`
	Dispatch   dispatch.Config  `json:"dispatch"`
	Charging   charging.Config  `json:"charging"`
	Economics  economics.Config `json:"economics"`
}

// SetDefaults fills every section.
func (s *EngineSections) SetDefaults() {
	s.Simulation.SetDefaults()
	s.Network.SetDefaults()
	s.Dispatch.SetDefaults()
	s.Charging.SetDefaults()
	s.Economics.SetDefaults()
}

// Validate checks every section.
func (s EngineSections) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"simulation", s.Simulation.Validate},
		{"network", s.Network.Validate},
		{"dispatch", s.Dispatch.Validate},
		{"charging", s.Charging.Validate},
		{"economics", s.Economics.Validate},
	}
	for _, c := range checks {
		if err := c.fn(); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

// BuildEngine opens the road network and wires the policies selected by s
// into a new engine. Oracle, policies and pricing in d are overwritten; the
// remaining dependencies are passed through.
func BuildEngine(s EngineSections, d sim.Deps) (*sim.Engine, error) {
	s.SetDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	log := d.Logger
	if log == nil {
		log = logger.NopLogger{}
	}
	net, err := roadnet.Open(s.Network)
	if err != nil {
		return nil, fmt.Errorf("road network: %w", err)
	}
	seed := s.Simulation.Seed
	pricing := economics.NewPricing(s.Economics, rand.New(rand.NewSource(seed+1)))
	disp, err := dispatch.New(s.Dispatch, rand.New(rand.NewSource(seed+2)))
	if err != nil {
		return nil, err
	}
	pred := prediction.NewScheduleForecaster(pricing.Schedule(), seed+3)
	pol, err := charging.New(s.Charging, rand.New(rand.NewSource(seed+4)), pred, log)
	if err != nil {
		return nil, err
	}
	if s.Network.ChargerSites != "" {
		sites, err := roadnet.LoadChargerSites(s.Network.ChargerSites)
		if err != nil {
			return nil, err
		}
		d.ChargerSites = knownSites(net, sites, log)
	}

	d.Oracle = net
	d.Dispatcher = disp
	d.Charging = pol
	d.Pricing = pricing
	d.Tariff = s.Economics.Tariff
	e, err := sim.New(s.Simulation, d)
	if err != nil {
		_ = net.Close()
		return nil, err
	}
	return e, nil
}

// knownSites drops placements on edges the network does not have.
func knownSites(net *roadnet.Network, sites []model.Location, log logger.Logger) []model.Location {
	out := sites[:0]
	for _, s := range sites {
		if _, err := net.LaneLength(s.Edge); err != nil {
			log.Warnf("charger site %s skipped: %v", s, err)
			continue
		}
		out = append(out, s)
	}
	return out
}
