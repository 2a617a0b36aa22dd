package model

import "fmt"

// Location is a position on the road network: an edge and a longitudinal
// offset in meters from the start of that edge.
type Location struct {
	Edge   string  `json:"edge"`
	Offset float64 `json:"offset"`
}

func (l Location) String() string { return fmt.Sprintf("%s@%.1f", l.Edge, l.Offset) }

// Reached reports whether a vehicle at l has reached target: same edge and at
// or past the target offset.
func (l Location) Reached(target Location) bool {
	return l.Edge == target.Edge && l.Offset >= target.Offset
}

// Route is an edge sequence with its total length in meters. An empty edge
// list means no route exists.
type Route struct {
	Edges  []string `json:"edges"`
	Length float64  `json:"length"`
}

// Feasible reports whether the route can be driven.
func (r Route) Feasible() bool { return len(r.Edges) > 0 }
