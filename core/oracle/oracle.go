// Package oracle defines the contract of the mobility oracle: the external
// collaborator that owns the road network, route computation and vehicle
// motion. The engine only queries it.
package oracle

import (
	"context"
	"errors"

	"github.com/kilianp07/robotaxi/core/model"
)

// ErrOracleUnavailable is the only fatal error of a simulation run. Every
// oracle call returns it (wrapped) when the connection is gone.
var ErrOracleUnavailable = errors.New("mobility oracle unavailable")

// Router answers route feasibility queries. An empty route means no path
// exists, which is a normal outcome and not an error.
type Router interface {
	FindRoute(ctx context.Context, from, to model.Location) (model.Route, error)
}

// Topology exposes spawnable locations and lane lengths.
type Topology interface {
	ValidLocations() ([]model.Location, error)
	LaneLength(edge string) (float64, error)
}

// Clock is the oracle's world clock in simulated seconds.
type Clock interface {
	AdvanceClock(ctx context.Context, step float64) error
	CurrentTime() float64
}

// Vehicles moves fleet vehicles along their routes.
type Vehicles interface {
	Spawn(id string, at model.Location) error
	Remove(id string) error
	Drive(id string, route model.Route, dest model.Location) error
	Halt(id string) error
	Position(id string) (model.Location, error)
	Odometer(id string) (float64, error)
	Arrived(id string) (bool, error)
}

// Oracle is the full mobility oracle.
type Oracle interface {
	Router
	Topology
	Clock
	Vehicles
	Close() error
}
