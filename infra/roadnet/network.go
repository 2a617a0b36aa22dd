// Package roadnet is an in-process mobility oracle backed by a directed road
// graph. Junctions are graph nodes and roads are weighted edges; routes are
// shortest paths over road length.
package roadnet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kilianp07/robotaxi/core/model"
	"github.com/kilianp07/robotaxi/core/oracle"
)

// ErrUnknownVehicle is returned for vehicle operations on an unknown id.
var ErrUnknownVehicle = errors.New("unknown vehicle")

// DefaultSpeed is the cruising speed in m/s used when none is configured.
const DefaultSpeed = 13.9

// Road is a directed edge of the network.
type Road struct {
	ID     string  `yaml:"id" json:"id"`
	From   string  `yaml:"from" json:"from"`
	To     string  `yaml:"to" json:"to"`
	Length float64 `yaml:"length" json:"length"`
}

// Network implements oracle.Oracle.
type Network struct {
	g         *simple.WeightedDirectedGraph
	roads     map[string]Road
	roadIDs   []string
	junctions map[string]int64
	between   map[[2]int64]string
	speed     float64

	mu       sync.Mutex
	trees    map[int64]path.Shortest
	vehicles map[string]*vehicle
	now      float64
	closed   bool
}

type vehicle struct {
	at       model.Location
	edges    []string
	idx      int
	dest     model.Location
	odometer float64
	driving  bool
}

var _ oracle.Oracle = (*Network)(nil)

// New builds a network from roads. Speed is the vehicle speed in m/s.
func New(roads []Road, speed float64) (*Network, error) {
	if len(roads) == 0 {
		return nil, fmt.Errorf("network has no roads")
	}
	if speed <= 0 {
		speed = DefaultSpeed
	}
	n := &Network{
		g:         simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		roads:     make(map[string]Road, len(roads)),
		junctions: make(map[string]int64),
		between:   make(map[[2]int64]string),
		speed:     speed,
		trees:     make(map[int64]path.Shortest),
		vehicles:  make(map[string]*vehicle),
	}
	var names []string
	seen := map[string]bool{}
	for _, r := range roads {
		for _, j := range []string{r.From, r.To} {
			if !seen[j] {
				seen[j] = true
				names = append(names, j)
			}
		}
	}
	sort.Strings(names)
	for i, j := range names {
		n.junctions[j] = int64(i)
		n.g.AddNode(simple.Node(int64(i)))
	}
	for _, r := range roads {
		if r.ID == "" {
			return nil, fmt.Errorf("road without id")
		}
		if _, dup := n.roads[r.ID]; dup {
			return nil, fmt.Errorf("duplicate road %s", r.ID)
		}
		if r.Length <= 0 {
			return nil, fmt.Errorf("road %s: length must be positive", r.ID)
		}
		if r.From == r.To {
			return nil, fmt.Errorf("road %s: self loop", r.ID)
		}
		n.roads[r.ID] = r
		n.roadIDs = append(n.roadIDs, r.ID)
		key := [2]int64{n.junctions[r.From], n.junctions[r.To]}
		if prev, ok := n.between[key]; ok && n.roads[prev].Length <= r.Length {
			continue
		}
		n.between[key] = r.ID
		n.g.SetWeightedEdge(n.g.NewWeightedEdge(simple.Node(key[0]), simple.Node(key[1]), r.Length))
	}
	sort.Strings(n.roadIDs)
	return n, nil
}

func (n *Network) unavailable() error {
	return fmt.Errorf("%w: network closed", oracle.ErrOracleUnavailable)
}

// FindRoute returns the shortest route from one location to another. Unknown
// edges and disconnected locations yield an empty route.
func (n *Network) FindRoute(ctx context.Context, from, to model.Location) (model.Route, error) {
	if err := ctx.Err(); err != nil {
		return model.Route{}, fmt.Errorf("%w: %v", oracle.ErrOracleUnavailable, err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return model.Route{}, n.unavailable()
	}
	return n.route(from, to), nil
}

func (n *Network) route(from, to model.Location) model.Route {
	a, okA := n.roads[from.Edge]
	b, okB := n.roads[to.Edge]
	if !okA || !okB {
		return model.Route{}
	}
	if a.ID == b.ID && to.Offset >= from.Offset {
		return model.Route{Edges: []string{a.ID}, Length: to.Offset - from.Offset}
	}
	src, dst := n.junctions[a.To], n.junctions[b.From]
	edges := []string{a.ID}
	var middle float64
	if src != dst {
		tree, ok := n.trees[src]
		if !ok {
			tree = path.DijkstraFrom(simple.Node(src), n.g)
			n.trees[src] = tree
		}
		nodes, w := tree.To(dst)
		if len(nodes) == 0 || math.IsInf(w, 1) {
			return model.Route{}
		}
		for i := 1; i < len(nodes); i++ {
			edges = append(edges, n.between[[2]int64{nodes[i-1].ID(), nodes[i].ID()}])
		}
		middle = w
	}
	edges = append(edges, b.ID)
	return model.Route{Edges: edges, Length: (a.Length - from.Offset) + middle + to.Offset}
}

// ValidLocations lists the start of every road in id order.
func (n *Network) ValidLocations() ([]model.Location, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, n.unavailable()
	}
	out := make([]model.Location, 0, len(n.roadIDs))
	for _, id := range n.roadIDs {
		out = append(out, model.Location{Edge: id})
	}
	return out, nil
}

// LaneLength returns the length of a road.
func (n *Network) LaneLength(edge string) (float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return 0, n.unavailable()
	}
	r, ok := n.roads[edge]
	if !ok {
		return 0, fmt.Errorf("unknown edge %s", edge)
	}
	return r.Length, nil
}

// CurrentTime returns the simulated time in seconds.
func (n *Network) CurrentTime() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.now
}

// Close disconnects the oracle; every later call fails as unavailable.
func (n *Network) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}
