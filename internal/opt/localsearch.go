package opt

import (
	"math/rand"
	"time"
)

const improveEps = 1e-6

// move is one candidate change in the local-search arena. Kinds:
// relocate (pull a stop out and reinsert elsewhere), swap (exchange two
// stops across routes), reverse (2-opt segment reversal inside a route).
type move struct {
	kind   int
	ra, ia int
	rb, ib int
}

const (
	moveRelocate = iota
	moveSwap
	moveReverse
)

// localSearch improves a solution until the deadline or until no improving
// move exists. Only strictly improving moves are accepted, so the incumbent
// objective is monotone non-increasing and the best-so-far solution is
// always what comes back. The deadline is honored cooperatively between
// candidate evaluations, never mid-simulation.
func localSearch(p *Problem, sol Solution, deadline time.Time, rng *rand.Rand) (out Solution, iterations int, converged bool) {
	for {
		if !time.Now().Before(deadline) {
			break
		}
		iterations++
		improved := false
		if tryInsertUnassigned(p, &sol) {
			improved = true
		}
		if applyImprovingMove(p, &sol, deadline, rng) {
			improved = true
		}
		if !improved {
			converged = true
			break
		}
	}
	p.Evaluate(&sol)
	return sol, iterations, converged
}

// tryInsertUnassigned re-attempts cheapest feasible insertion for every
// unassigned node. Earlier moves can free capacity or window slack, so this
// runs at the top of every iteration. An insertion is only taken when its
// detour cost stays below the unassigned penalty, the same strict-improvement
// bar evalMove applies.
func tryInsertUnassigned(p *Problem, sol *Solution) bool {
	inserted := false
	remaining := sol.Unassigned[:0]
	for _, ni := range sol.Unassigned {
		ri, pos, delta, ok := cheapestInsertion(p, sol, ni)
		if !ok || delta+improveEps >= p.Weights.UnassignedPenalty {
			remaining = append(remaining, ni)
			continue
		}
		sol.Routes[ri] = insertAt(sol.Routes[ri], pos, ni)
		inserted = true
	}
	sol.Unassigned = remaining
	if inserted {
		p.Evaluate(sol)
	}
	return inserted
}

// applyImprovingMove scans a bounded arena of candidate moves in seeded
// random order and applies the first strict improvement it finds.
func applyImprovingMove(p *Problem, sol *Solution, deadline time.Time, rng *rand.Rand) bool {
	arena := buildArena(sol)
	rng.Shuffle(len(arena), func(i, j int) { arena[i], arena[j] = arena[j], arena[i] })
	for k, mv := range arena {
		// deadline check between evaluations keeps the cap hard
		if k%64 == 0 && !time.Now().Before(deadline) {
			return false
		}
		if cand, ok := evalMove(p, sol, mv); ok {
			*sol = cand
			return true
		}
	}
	return false
}

func buildArena(sol *Solution) []move {
	arena := []move{}
	for ra := range sol.Routes {
		for ia := range sol.Routes[ra] {
			for rb := range sol.Routes {
				for ib := 0; ib <= len(sol.Routes[rb]); ib++ {
					if ra == rb && (ib == ia || ib == ia+1) {
						continue
					}
					arena = append(arena, move{kind: moveRelocate, ra: ra, ia: ia, rb: rb, ib: ib})
				}
			}
			for rb := ra + 1; rb < len(sol.Routes); rb++ {
				for ib := range sol.Routes[rb] {
					arena = append(arena, move{kind: moveSwap, ra: ra, ia: ia, rb: rb, ib: ib})
				}
			}
			for ib := ia + 1; ib < len(sol.Routes[ra]); ib++ {
				arena = append(arena, move{kind: moveReverse, ra: ra, ia: ia, rb: ra, ib: ib})
			}
		}
	}
	return arena
}

// evalMove applies mv to a copy, checks feasibility of the touched routes,
// and returns the copy when the full objective strictly improves.
func evalMove(p *Problem, sol *Solution, mv move) (Solution, bool) {
	cand := sol.Clone()
	switch mv.kind {
	case moveRelocate:
		ni := cand.Routes[mv.ra][mv.ia]
		cand.Routes[mv.ra] = removeAt(cand.Routes[mv.ra], mv.ia)
		ib := mv.ib
		if mv.ra == mv.rb && ib > mv.ia {
			ib--
		}
		cand.Routes[mv.rb] = insertAt(cand.Routes[mv.rb], ib, ni)
	case moveSwap:
		cand.Routes[mv.ra][mv.ia], cand.Routes[mv.rb][mv.ib] = cand.Routes[mv.rb][mv.ib], cand.Routes[mv.ra][mv.ia]
	case moveReverse:
		r := cand.Routes[mv.ra]
		for a, b := mv.ia, mv.ib; a < b; a, b = a+1, b-1 {
			r[a], r[b] = r[b], r[a]
		}
	}
	if _, ok := p.Simulate(cand.Routes[mv.ra], p.Resources[mv.ra]); !ok {
		return Solution{}, false
	}
	if mv.rb != mv.ra {
		if _, ok := p.Simulate(cand.Routes[mv.rb], p.Resources[mv.rb]); !ok {
			return Solution{}, false
		}
	}
	if p.Evaluate(&cand)+improveEps < sol.Objective {
		return cand, true
	}
	return Solution{}, false
}
