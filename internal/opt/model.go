package opt

import (
	"time"

	"gasroute/internal/model"
)

// Node is one delivery to place. Index 0 of the internal cost matrix is the
// depot; node i lives at matrix index i+1.
type Node struct {
	ID         string
	Loc        model.GeoPoint
	Quantity   int
	Window     model.TimeWindow
	ServiceSec int
	Priority   int
}

// Resource is a vehicle paired with the driver who will run its route.
type Resource struct {
	VehicleID  string
	DriverID   string
	Capacity   int
	ShiftStart time.Time
	ShiftEnd   time.Time
}

// Weights shape the objective. UnassignedPenalty is expressed in the same
// unit as distance cost so that serving one more order beats any detour
// shorter than the penalty.
type Weights struct {
	Distance          float64 `yaml:"distance"`
	DriveTime         float64 `yaml:"driveTime"`
	UnassignedPenalty float64 `yaml:"unassignedPenalty"`
}

// DefaultWeights prefer serving orders over pure distance minimization.
func DefaultWeights() Weights {
	return Weights{Distance: 1, DriveTime: 0.5, UnassignedPenalty: 10000}
}

// Problem is a fully built CVRPTW instance with a precomputed cost matrix.
type Problem struct {
	Depot     model.GeoPoint
	Nodes     []Node
	Resources []Resource
	SpeedKph  float64
	Weights   Weights

	dist [][]float64 // [n+1][n+1], 0 = depot
}

// NewProblem precomputes pairwise travel costs with the supplied distance
// function. Callers must pass at least one resource.
func NewProblem(depot model.GeoPoint, nodes []Node, resources []Resource, df DistanceFunc, speedKph float64, w Weights) *Problem {
	if speedKph <= 0 {
		speedKph = 40
	}
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	n := len(nodes)
	pts := make([]model.GeoPoint, n+1)
	pts[0] = depot
	for i, nd := range nodes {
		pts[i+1] = nd.Loc
	}
	dist := make([][]float64, n+1)
	for i := range dist {
		dist[i] = make([]float64, n+1)
		for j := range dist[i] {
			if i != j {
				dist[i][j] = df(pts[i], pts[j])
			}
		}
	}
	return &Problem{Depot: depot, Nodes: nodes, Resources: resources, SpeedKph: speedKph, Weights: w, dist: dist}
}

// Dist returns meters between matrix indices (0 = depot).
func (p *Problem) Dist(i, j int) float64 { return p.dist[i][j] }

func (p *Problem) travelSec(i, j int) float64 {
	return p.dist[i][j] / (p.SpeedKph / 3.6)
}

// Solution assigns node indices to resource routes; order within a route is
// visit order. Unassigned holds the nodes no route could take.
type Solution struct {
	Routes     [][]int
	Unassigned []int
	Objective  float64
}

// Clone deep-copies a solution so candidate moves never alias the incumbent.
func (s Solution) Clone() Solution {
	out := Solution{Objective: s.Objective}
	out.Routes = make([][]int, len(s.Routes))
	for i, r := range s.Routes {
		out.Routes[i] = append([]int(nil), r...)
	}
	out.Unassigned = append([]int(nil), s.Unassigned...)
	return out
}

// Timing is the simulated execution of one route.
type Timing struct {
	Arrivals   []time.Time
	Departures []time.Time
	DistM      float64
	DriveSec   float64
	Load       int
	End        time.Time // back at depot
}

// Simulate propagates a full schedule along the route: depart the depot at
// shift start, wait out early arrivals, fail on a missed window end, on
// capacity overflow, or when the depot return would exceed the shift.
func (p *Problem) Simulate(order []int, r Resource) (Timing, bool) {
	tm := Timing{
		Arrivals:   make([]time.Time, len(order)),
		Departures: make([]time.Time, len(order)),
	}
	t := r.ShiftStart
	prev := 0 // depot
	for k, ni := range order {
		nd := p.Nodes[ni]
		tm.Load += nd.Quantity
		if r.Capacity > 0 && tm.Load > r.Capacity {
			return tm, false
		}
		d := p.dist[prev][ni+1]
		drive := p.travelSec(prev, ni+1)
		tm.DistM += d
		tm.DriveSec += drive
		t = t.Add(time.Duration(drive * float64(time.Second)))
		if t.Before(nd.Window.Start) {
			t = nd.Window.Start
		}
		if !nd.Window.End.IsZero() && t.After(nd.Window.End) {
			return tm, false
		}
		tm.Arrivals[k] = t
		t = t.Add(time.Duration(nd.ServiceSec) * time.Second)
		tm.Departures[k] = t
		prev = ni + 1
	}
	if len(order) > 0 {
		d := p.dist[prev][0]
		drive := p.travelSec(prev, 0)
		tm.DistM += d
		tm.DriveSec += drive
		t = t.Add(time.Duration(drive * float64(time.Second)))
	}
	tm.End = t
	if !r.ShiftEnd.IsZero() && t.After(r.ShiftEnd) {
		return tm, false
	}
	return tm, true
}

// Evaluate recomputes the objective of a solution in place and returns it.
// Routes are assumed feasible; the caller keeps them that way.
func (p *Problem) Evaluate(s *Solution) float64 {
	total := 0.0
	for ri, order := range s.Routes {
		tm, _ := p.Simulate(order, p.Resources[ri])
		total += p.Weights.Distance*tm.DistM + p.Weights.DriveTime*tm.DriveSec
	}
	total += p.Weights.UnassignedPenalty * float64(len(s.Unassigned))
	s.Objective = total
	return total
}

// emptySolution parks every node in the unassigned set.
func (p *Problem) emptySolution() Solution {
	s := Solution{Routes: make([][]int, len(p.Resources))}
	for i := range s.Routes {
		s.Routes[i] = []int{}
	}
	for i := range p.Nodes {
		s.Unassigned = append(s.Unassigned, i)
	}
	p.Evaluate(&s)
	return s
}
