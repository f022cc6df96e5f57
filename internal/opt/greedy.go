package opt

import "math"

// greedyConstruct builds an initial feasible solution by cheapest feasible
// insertion. Nodes are visited in the order they appear in the problem, which
// the builder has already sorted by priority, window start, and ID, so high
// priority orders claim route positions first. A node with no feasible
// position in any route stays unassigned.
func greedyConstruct(p *Problem) Solution {
	sol := Solution{Routes: make([][]int, len(p.Resources))}
	for i := range sol.Routes {
		sol.Routes[i] = []int{}
	}
	for ni := range p.Nodes {
		ri, pos, _, ok := cheapestInsertion(p, &sol, ni)
		if !ok {
			sol.Unassigned = append(sol.Unassigned, ni)
			continue
		}
		sol.Routes[ri] = insertAt(sol.Routes[ri], pos, ni)
	}
	p.Evaluate(&sol)
	return sol
}

// cheapestInsertion scans every position of every route for the lowest
// weighted cost increase that keeps the route feasible, returning that
// increase alongside the position. Ties keep the first candidate found, so
// results are stable for a fixed node order.
func cheapestInsertion(p *Problem, sol *Solution, ni int) (ri, pos int, delta float64, ok bool) {
	bestCost := math.MaxFloat64
	bestRoute, bestPos := -1, -1
	for r := range sol.Routes {
		res := p.Resources[r]
		base := routeCost(p, sol.Routes[r], res)
		for at := 0; at <= len(sol.Routes[r]); at++ {
			cand := insertAt(append([]int(nil), sol.Routes[r]...), at, ni)
			tm, feasible := p.Simulate(cand, res)
			if !feasible {
				continue
			}
			delta := p.Weights.Distance*tm.DistM + p.Weights.DriveTime*tm.DriveSec - base
			if delta < bestCost {
				bestCost = delta
				bestRoute, bestPos = r, at
			}
		}
	}
	if bestRoute < 0 {
		return 0, 0, 0, false
	}
	return bestRoute, bestPos, bestCost, true
}

func routeCost(p *Problem, order []int, r Resource) float64 {
	tm, _ := p.Simulate(order, r)
	return p.Weights.Distance*tm.DistM + p.Weights.DriveTime*tm.DriveSec
}

func insertAt(order []int, pos, ni int) []int {
	order = append(order, 0)
	copy(order[pos+1:], order[pos:])
	order[pos] = ni
	return order
}

func removeAt(order []int, pos int) []int {
	return append(order[:pos], order[pos+1:]...)
}
