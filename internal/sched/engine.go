package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gasroute/internal/metrics"
	"gasroute/internal/model"
	"gasroute/internal/opt"
	"gasroute/internal/store"
)

// Options tune the engine; zero values fall back to sane defaults.
type Options struct {
	Depot     model.GeoPoint
	Distance  opt.DistanceFunc
	SpeedKph  float64
	Weights   opt.Weights
	Algorithm string
	Seed      int64
	Budget    time.Duration
	Log       zerolog.Logger
}

// Engine drives the scheduling pipeline: collect → build → solve →
// conflict-gate → apply → metrics. Proposals are kept in memory until the
// applier commits them; only committed schedules reach the store.
type Engine struct {
	st     store.Store
	locker DateLocker
	opts   Options
	log    zerolog.Logger

	mu        sync.Mutex
	proposals map[string]model.Schedule // date -> latest proposal
}

func New(st store.Store, locker DateLocker, opts Options) *Engine {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if opts.Distance == nil {
		opts.Distance = opt.Haversine
	}
	if opts.SpeedKph <= 0 {
		opts.SpeedKph = 40
	}
	if opts.Weights == (opt.Weights{}) {
		opts.Weights = opt.DefaultWeights()
	}
	if opts.Budget <= 0 {
		opts.Budget = 2 * time.Second
	}
	return &Engine{st: st, locker: locker, opts: opts, log: opts.Log, proposals: map[string]model.Schedule{}}
}

// scheduleContext carries the pipeline state for one date through the
// stages; nothing scheduling-related lives in process-wide variables.
type scheduleContext struct {
	date     string
	orders   []model.DeliveryOrder
	vehicles []model.Vehicle
	drivers  []model.Driver
	mdl      *Model
	result   opt.Result
}

// Generate runs aggregation, model build, and the solver for one date under
// the per-date advisory lock, returning a transient proposal. budget <= 0
// uses the configured default; algorithm/seed of zero values fall back to
// configuration.
func (e *Engine) Generate(ctx context.Context, date string, budget time.Duration, algorithm string, seed int64) (model.Schedule, error) {
	release, err := e.locker.Acquire(ctx, date)
	if err != nil {
		return model.Schedule{}, err
	}
	defer release()
	return e.generateLocked(ctx, date, budget, algorithm, seed)
}

func (e *Engine) generateLocked(ctx context.Context, date string, budget time.Duration, algorithm string, seed int64) (model.Schedule, error) {
	if budget <= 0 {
		budget = e.opts.Budget
	}
	if algorithm == "" {
		algorithm = e.opts.Algorithm
	}
	if seed == 0 {
		seed = e.opts.Seed
	}
	sc := &scheduleContext{date: date}

	var err error
	sc.orders, err = CollectOrders(ctx, e.st, date)
	if err != nil {
		return model.Schedule{}, err
	}
	from, to, err := DayBounds(date)
	if err != nil {
		return model.Schedule{}, err
	}
	if sc.vehicles, err = e.st.AvailableVehicles(ctx); err != nil {
		return model.Schedule{}, err
	}
	if sc.drivers, err = e.st.AvailableDrivers(ctx, from, to); err != nil {
		return model.Schedule{}, err
	}

	sc.mdl, err = BuildModel(sc.orders, sc.vehicles, sc.drivers, e.opts.Depot, e.opts.Distance, e.opts.SpeedKph, e.opts.Weights)
	if err != nil {
		return model.Schedule{}, err
	}

	strat, err := opt.ForName(algorithm, seed)
	if err != nil {
		return model.Schedule{}, err
	}
	sc.result = strat.Solve(sc.mdl.Problem, budget)

	sched := e.assemble(sc, strat.Name())
	metrics.SolveRuns.WithLabelValues(strat.Name(), sched.Solver.Status).Inc()
	metrics.SolveDuration.Observe(sc.result.Elapsed.Seconds())
	e.log.Info().
		Str("date", date).
		Str("algorithm", strat.Name()).
		Str("status", sched.Solver.Status).
		Int("routes", len(sched.Routes)).
		Int("unassigned", len(sched.Unassigned)).
		Float64("objective", sched.Solver.Objective).
		Dur("elapsed", sc.result.Elapsed).
		Msg("schedule generated")

	e.mu.Lock()
	e.proposals[date] = sched
	e.mu.Unlock()
	return sched, nil
}

// assemble translates a solver result back into domain routes with concrete
// arrival times.
func (e *Engine) assemble(sc *scheduleContext, algorithm string) model.Schedule {
	p := sc.mdl.Problem
	sched := model.Schedule{
		ID:        uuid.New().String(),
		Date:      sc.date,
		Depot:     e.opts.Depot,
		Routes:    []model.Route{},
		CreatedAt: time.Now().UTC(),
		Solver: model.SolverInfo{
			Status:      sc.result.Status,
			Algorithm:   algorithm,
			Objective:   sc.result.Solution.Objective,
			Iterations:  sc.result.Iterations,
			TimeSpentMs: int(sc.result.Elapsed.Milliseconds()),
			Seed:        sc.result.Seed,
		},
	}
	sched.Unassigned = append(sched.Unassigned, sc.mdl.Infeasible...)
	for _, ni := range sc.result.Solution.Unassigned {
		sched.Unassigned = append(sched.Unassigned, model.UnassignedOrder{
			OrderID: sc.mdl.Solvable[ni].ID,
			Reason:  "no feasible insertion within capacity, time windows, and shifts",
		})
	}
	if sched.Unassigned == nil {
		sched.Unassigned = []model.UnassignedOrder{}
	}

	for ri, order := range sc.result.Solution.Routes {
		if len(order) == 0 {
			continue
		}
		res := p.Resources[ri]
		tm, _ := p.Simulate(order, res)
		rt := model.Route{
			ID:        uuid.New().String(),
			VehicleID: res.VehicleID,
			DriverID:  res.DriverID,
			Capacity:  res.Capacity,
			Load:      tm.Load,
			DistanceM: tm.DistM,
			DriveSec:  int(tm.DriveSec),
			Start:     res.ShiftStart,
			End:       tm.End,
			Feasible:  true,
		}
		for k, ni := range order {
			o := sc.mdl.Solvable[ni]
			rt.Stops = append(rt.Stops, model.Stop{
				Seq:       k + 1,
				OrderID:   o.ID,
				Location:  o.Location,
				Quantity:  o.Quantity,
				Window:    o.Window,
				Arrival:   tm.Arrivals[k],
				Departure: tm.Departures[k],
			})
		}
		sched.Routes = append(sched.Routes, rt)
	}

	// The solver status only covers the nodes it saw; orders the builder
	// flagged as infeasible count against the schedule too.
	placed := 0
	for _, rt := range sched.Routes {
		placed += len(rt.Stops)
	}
	switch {
	case placed == 0 && len(sched.Unassigned) > 0:
		sched.Solver.Status = model.SolveInfeasible
	case len(sched.Unassigned) > 0:
		sched.Solver.Status = model.SolvePartial
	}
	return sched
}

// Apply commits a proposal. The conflict gate runs first: fatal conflicts
// always block; warnings block unless acknowledge is set. The store commit
// is all-or-nothing; concurrent modifications surface as
// CommitConflictError so the caller re-fetches and re-solves.
func (e *Engine) Apply(ctx context.Context, sched model.Schedule, acknowledge bool) (model.CommitResult, error) {
	release, err := e.locker.Acquire(ctx, sched.Date)
	if err != nil {
		return model.CommitResult{}, err
	}
	defer release()

	conflicts := DetectConflicts(sched)
	if fatal := FatalConflicts(conflicts); len(fatal) > 0 {
		return model.CommitResult{}, &ConflictGateError{Conflicts: fatal, Fatal: true}
	}
	if len(conflicts) > 0 && !acknowledge {
		return model.CommitResult{}, &ConflictGateError{Conflicts: conflicts}
	}

	res, err := e.st.ApplySchedule(ctx, sched)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return model.CommitResult{}, &CommitConflictError{Date: sched.Date, Err: err}
		}
		return model.CommitResult{}, err
	}
	e.log.Info().Str("date", sched.Date).Int("orders", res.OrdersScheduled).Int("routes", res.RoutesCreated).Msg("schedule committed")

	e.mu.Lock()
	delete(e.proposals, sched.Date)
	e.mu.Unlock()
	return res, nil
}

// Schedule returns the committed schedule for a date, falling back to the
// latest in-memory proposal.
func (e *Engine) Schedule(ctx context.Context, date string) (model.Schedule, error) {
	s, err := e.st.GetSchedule(ctx, date)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.Schedule{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.proposals[date]; ok {
		return p, nil
	}
	return model.Schedule{}, store.ErrNotFound
}

// Conflicts re-runs the detector over the committed or proposed schedule.
func (e *Engine) Conflicts(ctx context.Context, date string) ([]model.Conflict, error) {
	s, err := e.Schedule(ctx, date)
	if err != nil {
		return nil, err
	}
	return DetectConflicts(s), nil
}

// Metrics aggregates the committed or proposed schedule for a date.
func (e *Engine) Metrics(ctx context.Context, date string) (model.ScheduleMetrics, error) {
	s, err := e.Schedule(ctx, date)
	if err != nil {
		return model.ScheduleMetrics{}, err
	}
	return ComputeMetrics(s), nil
}
