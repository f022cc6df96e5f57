package opt

import (
	"testing"
	"time"

	"gasroute/internal/model"
)

// Synthetic problems use Euclidean coordinates in meters (Lat = x, Lng = y)
// so travel times are easy to reason about: at 40 km/h, 1000 m is 90 s.

func at(h, m int) time.Time {
	return time.Date(2025, 6, 1, h, m, 0, 0, time.UTC)
}

func testResource(n string, capacity int) Resource {
	return Resource{
		VehicleID:  "veh-" + n,
		DriverID:   "drv-" + n,
		Capacity:   capacity,
		ShiftStart: at(8, 0),
		ShiftEnd:   at(18, 0),
	}
}

func testNode(id string, x float64, qty int, wStart, wEnd time.Time) Node {
	return Node{
		ID:       id,
		Loc:      model.GeoPoint{Lat: x},
		Quantity: qty,
		Window:   model.TimeWindow{Start: wStart, End: wEnd},
	}
}

func checkExactlyOnce(t *testing.T, p *Problem, sol Solution) {
	t.Helper()
	seen := map[int]int{}
	for _, rt := range sol.Routes {
		for _, ni := range rt {
			seen[ni]++
		}
	}
	for _, ni := range sol.Unassigned {
		seen[ni]++
	}
	for i := range p.Nodes {
		if seen[i] != 1 {
			t.Fatalf("node %d appears %d times, want exactly once", i, seen[i])
		}
	}
}

func checkCapacity(t *testing.T, p *Problem, sol Solution) {
	t.Helper()
	for ri, rt := range sol.Routes {
		load := 0
		for _, ni := range rt {
			load += p.Nodes[ni].Quantity
		}
		if c := p.Resources[ri].Capacity; c > 0 && load > c {
			t.Fatalf("route %d load %d exceeds capacity %d", ri, load, c)
		}
	}
}

func TestGreedyCapacityBound(t *testing.T) {
	// One vehicle of capacity 10, three orders of 4 units each: only two fit.
	nodes := []Node{
		testNode("o1", 1000, 4, at(8, 0), at(18, 0)),
		testNode("o2", 2000, 4, at(8, 0), at(18, 0)),
		testNode("o3", 3000, 4, at(8, 0), at(18, 0)),
	}
	p := NewProblem(model.GeoPoint{}, nodes, []Resource{testResource("a", 10)}, Euclidean, 40, DefaultWeights())

	res := GreedyStrategy{}.Solve(p, time.Second)
	if len(res.Solution.Unassigned) != 1 {
		t.Fatalf("unassigned = %v, want exactly one", res.Solution.Unassigned)
	}
	if res.Status != model.SolvePartial {
		t.Fatalf("status = %s, want partial", res.Status)
	}
	checkExactlyOnce(t, p, res.Solution)
	checkCapacity(t, p, res.Solution)
}

func TestGreedyDisjointWindows(t *testing.T) {
	// Two resources, two orders with disjoint windows: everything is served.
	nodes := []Node{
		testNode("early", 2000, 3, at(8, 0), at(10, 0)),
		testNode("late", 5000, 3, at(14, 0), at(15, 0)),
	}
	resources := []Resource{testResource("a", 10), testResource("b", 10)}
	p := NewProblem(model.GeoPoint{}, nodes, resources, Euclidean, 40, DefaultWeights())

	res := GreedyStrategy{}.Solve(p, time.Second)
	if len(res.Solution.Unassigned) != 0 {
		t.Fatalf("unassigned = %v, want none", res.Solution.Unassigned)
	}
	if res.Status != model.SolveOptimal {
		t.Fatalf("status = %s, want optimal", res.Status)
	}
	checkExactlyOnce(t, p, res.Solution)
}

func TestGreedyCompetingWindows(t *testing.T) {
	// One vehicle, two orders far apart sharing one narrow window. The drive
	// between them blows the window, so only one can be served.
	nodes := []Node{
		testNode("north", 10000, 2, at(10, 0), at(10, 10)),
		testNode("south", -10000, 2, at(10, 0), at(10, 10)),
	}
	nodes[0].ServiceSec = 600
	nodes[1].ServiceSec = 600
	p := NewProblem(model.GeoPoint{}, nodes, []Resource{testResource("a", 10)}, Euclidean, 40, DefaultWeights())

	res := GreedyStrategy{}.Solve(p, time.Second)
	if len(res.Solution.Unassigned) != 1 {
		t.Fatalf("unassigned = %v, want exactly one", res.Solution.Unassigned)
	}
	if res.Status != model.SolvePartial {
		t.Fatalf("status = %s, want partial", res.Status)
	}
}

func TestLocalSearchNeverWorseThanGreedy(t *testing.T) {
	nodes := []Node{}
	xs := []float64{900, -1200, 3400, 7800, -5600, 2100, -300, 4500, -8100, 6600, 1500, -2700}
	for i, x := range xs {
		nodes = append(nodes, Node{
			ID:       string(rune('a' + i)),
			Loc:      model.GeoPoint{Lat: x, Lng: float64(i * 400)},
			Quantity: 1 + i%3,
			Window:   model.TimeWindow{Start: at(8, 0), End: at(18, 0)},
		})
	}
	resources := []Resource{testResource("a", 8), testResource("b", 8), testResource("c", 8)}
	p := NewProblem(model.GeoPoint{}, nodes, resources, Euclidean, 40, DefaultWeights())

	base := GreedyStrategy{}.Solve(p, time.Second)
	ls := &LocalSearchStrategy{Seed: 42}
	improved := ls.Solve(p, 300*time.Millisecond)

	if improved.Solution.Objective > base.Solution.Objective+1e-6 {
		t.Fatalf("local search objective %.2f worse than greedy %.2f",
			improved.Solution.Objective, base.Solution.Objective)
	}
	checkExactlyOnce(t, p, improved.Solution)
	checkCapacity(t, p, improved.Solution)
}

func TestLocalSearchBudgetMonotone(t *testing.T) {
	// Same seed, bigger budget: only strict improvements are accepted, so a
	// longer run can never end worse.
	nodes := []Node{}
	xs := []float64{1200, -3300, 5100, -700, 8800, 2500, -4600, 6200, 300, -9100}
	for i, x := range xs {
		nodes = append(nodes, Node{
			ID:       string(rune('a' + i)),
			Loc:      model.GeoPoint{Lat: x, Lng: float64((i % 4) * 1000)},
			Quantity: 2,
			Window:   model.TimeWindow{Start: at(8, 0), End: at(18, 0)},
		})
	}
	resources := []Resource{testResource("a", 10), testResource("b", 10)}
	p := NewProblem(model.GeoPoint{}, nodes, resources, Euclidean, 40, DefaultWeights())

	short := (&LocalSearchStrategy{Seed: 7}).Solve(p, 30*time.Millisecond)
	long := (&LocalSearchStrategy{Seed: 7}).Solve(p, 300*time.Millisecond)
	if long.Solution.Objective > short.Solution.Objective+1e-6 {
		t.Fatalf("longer budget objective %.2f worse than shorter %.2f",
			long.Solution.Objective, short.Solution.Objective)
	}
}

func TestSolveInfeasibleFleet(t *testing.T) {
	// Every order exceeds the vehicle: nothing can be placed.
	nodes := []Node{
		testNode("o1", 1000, 50, at(8, 0), at(18, 0)),
		testNode("o2", 2000, 50, at(8, 0), at(18, 0)),
	}
	p := NewProblem(model.GeoPoint{}, nodes, []Resource{testResource("a", 10)}, Euclidean, 40, DefaultWeights())

	res := (&LocalSearchStrategy{Seed: 1}).Solve(p, 50*time.Millisecond)
	if res.Status != model.SolveInfeasible {
		t.Fatalf("status = %s, want infeasible", res.Status)
	}
	if len(res.Solution.Unassigned) != 2 {
		t.Fatalf("unassigned = %d, want 2", len(res.Solution.Unassigned))
	}
}

func TestForName(t *testing.T) {
	if _, err := ForName("greedy", 0); err != nil {
		t.Fatalf("greedy: %v", err)
	}
	if _, err := ForName("", 0); err != nil {
		t.Fatalf("default: %v", err)
	}
	if _, err := ForName("simulated_annealing", 0); err == nil {
		t.Fatal("unknown strategy accepted")
	}
}

func TestSimulateWaitsForWindowStart(t *testing.T) {
	nodes := []Node{testNode("o1", 1000, 1, at(12, 0), at(13, 0))}
	p := NewProblem(model.GeoPoint{}, nodes, []Resource{testResource("a", 10)}, Euclidean, 40, DefaultWeights())

	tm, ok := p.Simulate([]int{0}, p.Resources[0])
	if !ok {
		t.Fatal("route should be feasible")
	}
	if !tm.Arrivals[0].Equal(at(12, 0)) {
		t.Fatalf("arrival = %s, want exactly window start", tm.Arrivals[0])
	}
}

func TestSimulateShiftOverrun(t *testing.T) {
	// 60 km out and back at 40 km/h is 3 h of driving; a one-hour shift
	// cannot absorb it.
	nodes := []Node{testNode("o1", 60000, 1, at(8, 0), at(18, 0))}
	r := Resource{VehicleID: "veh", DriverID: "drv", Capacity: 10, ShiftStart: at(8, 0), ShiftEnd: at(9, 0)}
	p := NewProblem(model.GeoPoint{}, nodes, []Resource{r}, Euclidean, 40, DefaultWeights())

	if _, ok := p.Simulate([]int{0}, r); ok {
		t.Fatal("route should overrun the shift")
	}
}
