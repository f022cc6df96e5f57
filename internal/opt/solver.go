package opt

import (
	"fmt"
	"math/rand"
	"time"

	"gasroute/internal/model"
)

// Strategy is a swappable solving algorithm. Implementations must honor the
// budget as a hard wall-clock cap and always return their best-so-far
// solution rather than failing on timeout.
type Strategy interface {
	Name() string
	Solve(p *Problem, budget time.Duration) Result
}

// Result carries the solution plus solver bookkeeping for SolverInfo.
type Result struct {
	Solution   Solution
	Status     string
	Iterations int
	Converged  bool
	Elapsed    time.Duration
	Seed       int64
}

// ForName returns the configured strategy. Known names: "greedy",
// "local_search".
func ForName(name string, seed int64) (Strategy, error) {
	switch name {
	case "", "local_search":
		return &LocalSearchStrategy{Seed: seed}, nil
	case "greedy":
		return GreedyStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown solver strategy: %s", name)
	}
}

// GreedyStrategy stops after the construction heuristic. Cheap and
// deterministic; the baseline the local search is measured against.
type GreedyStrategy struct{}

func (GreedyStrategy) Name() string { return "greedy" }

func (GreedyStrategy) Solve(p *Problem, budget time.Duration) Result {
	start := time.Now()
	sol := greedyConstruct(p)
	return Result{
		Solution:   sol,
		Status:     statusFor(p, sol, true),
		Iterations: 1,
		Converged:  true,
		Elapsed:    time.Since(start),
	}
}

// LocalSearchStrategy runs greedy construction then bounded improvement.
// A zero Seed falls back to the wall clock, matching ad-hoc runs; fixed
// seeds give reproducible move scans.
type LocalSearchStrategy struct {
	Seed int64
}

func (s *LocalSearchStrategy) Name() string { return "local_search" }

func (s *LocalSearchStrategy) Solve(p *Problem, budget time.Duration) Result {
	start := time.Now()
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	sol := greedyConstruct(p)
	deadline := start.Add(budget)
	sol, iters, converged := localSearch(p, sol, deadline, rng)
	return Result{
		Solution:   sol,
		Status:     statusFor(p, sol, converged),
		Iterations: iters,
		Converged:  converged,
		Elapsed:    time.Since(start),
		Seed:       seed,
	}
}

// statusFor maps a solution onto the solver status taxonomy: infeasible only
// when nothing could be placed, partial when some orders were left behind,
// optimal when everything is placed and the search converged.
func statusFor(p *Problem, sol Solution, converged bool) string {
	placed := 0
	for _, r := range sol.Routes {
		placed += len(r)
	}
	switch {
	case len(p.Nodes) > 0 && placed == 0:
		return model.SolveInfeasible
	case len(sol.Unassigned) > 0:
		return model.SolvePartial
	case converged:
		return model.SolveOptimal
	default:
		return model.SolveFeasible
	}
}
