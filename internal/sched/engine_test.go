package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gasroute/internal/model"
	"gasroute/internal/opt"
	"gasroute/internal/store"
)

const testDate = "2025-06-01"

func at(h, m int) time.Time {
	return time.Date(2025, 6, 1, h, m, 0, 0, time.UTC)
}

func seedStore(t *testing.T, st *store.Memory, orders int) {
	t.Helper()
	ctx := context.Background()
	ins := []model.OrderIn{}
	for i := 0; i < orders; i++ {
		ins = append(ins, model.OrderIn{
			ClientID: "client",
			Location: model.GeoPoint{Lat: float64(1000 * (i + 1))},
			Quantity: 2,
			Window:   model.TimeWindow{Start: at(8, 0), End: at(18, 0)},
		})
	}
	if _, err := st.CreateOrders(ctx, ins); err != nil {
		t.Fatalf("seed orders: %v", err)
	}
	if _, err := st.CreateVehicles(ctx, []model.VehicleIn{{Capacity: 20}}); err != nil {
		t.Fatalf("seed vehicles: %v", err)
	}
	if _, err := st.CreateDrivers(ctx, []model.DriverIn{{ShiftStart: at(8, 0), ShiftEnd: at(18, 0)}}); err != nil {
		t.Fatalf("seed drivers: %v", err)
	}
}

func testEngine(st store.Store, locker DateLocker) *Engine {
	return New(st, locker, Options{
		Distance:  opt.Euclidean,
		Algorithm: "greedy",
		Budget:    200 * time.Millisecond,
		Log:       zerolog.Nop(),
	})
}

func TestGenerateApplyRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedStore(t, st, 3)
	eng := testEngine(st, nil)

	sched, err := eng.Generate(ctx, testDate, 0, "", 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(sched.Routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(sched.Routes))
	}
	if len(sched.Unassigned) != 0 {
		t.Fatalf("unassigned = %v, want none", sched.Unassigned)
	}
	if sched.Committed {
		t.Fatal("proposal must not be marked committed")
	}

	res, err := eng.Apply(ctx, sched, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.OrdersScheduled != 3 || res.RoutesCreated != 1 {
		t.Fatalf("commit result = %+v", res)
	}

	got, err := eng.Schedule(ctx, testDate)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if !got.Committed {
		t.Fatal("stored schedule should be committed")
	}
}

func TestGenerateExcludesScheduledOrders(t *testing.T) {
	// After an apply, the orders are no longer pending: a re-run for the same
	// date sees no demand instead of double-booking.
	ctx := context.Background()
	st := store.NewMemory()
	seedStore(t, st, 2)
	eng := testEngine(st, nil)

	sched, err := eng.Generate(ctx, testDate, 0, "", 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := eng.Apply(ctx, sched, false); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := eng.Generate(ctx, testDate, 0, "", 0); !errors.Is(err, ErrNoDemand) {
		t.Fatalf("regenerate err = %v, want ErrNoDemand", err)
	}
}

func TestApplyTwiceIsCommitConflict(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedStore(t, st, 2)
	eng := testEngine(st, nil)

	sched, err := eng.Generate(ctx, testDate, 0, "", 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := eng.Apply(ctx, sched, false); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	_, err = eng.Apply(ctx, sched, false)
	var conflict *CommitConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("second apply err = %v, want CommitConflictError", err)
	}
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("conflict should wrap ErrVersionConflict, got %v", err)
	}
}

func TestGenerateDeterministicForFixedInput(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedStore(t, st, 4)
	eng := testEngine(st, nil)

	a, err := eng.Generate(ctx, testDate, 0, "greedy", 0)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	b, err := eng.Generate(ctx, testDate, 0, "greedy", 0)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if a.Solver.Objective != b.Solver.Objective {
		t.Fatalf("objectives differ: %.2f vs %.2f", a.Solver.Objective, b.Solver.Objective)
	}
	if len(a.Routes) != len(b.Routes) {
		t.Fatalf("route counts differ: %d vs %d", len(a.Routes), len(b.Routes))
	}
	for ri := range a.Routes {
		if len(a.Routes[ri].Stops) != len(b.Routes[ri].Stops) {
			t.Fatalf("route %d stop counts differ", ri)
		}
		for si := range a.Routes[ri].Stops {
			if a.Routes[ri].Stops[si].OrderID != b.Routes[ri].Stops[si].OrderID {
				t.Fatalf("route %d stop %d differs", ri, si)
			}
		}
	}
}

func TestGenerateAllOversizedIsInfeasible(t *testing.T) {
	// Every order exceeds the whole fleet: the builder flags them all, the
	// solver sees zero nodes, and the schedule must still report infeasible.
	ctx := context.Background()
	st := store.NewMemory()
	if _, err := st.CreateOrders(ctx, []model.OrderIn{
		{ClientID: "c1", Quantity: 50, Window: model.TimeWindow{Start: at(8, 0), End: at(18, 0)}},
		{ClientID: "c2", Quantity: 50, Window: model.TimeWindow{Start: at(8, 0), End: at(18, 0)}},
	}); err != nil {
		t.Fatalf("seed orders: %v", err)
	}
	if _, err := st.CreateVehicles(ctx, []model.VehicleIn{{Capacity: 10}}); err != nil {
		t.Fatalf("seed vehicles: %v", err)
	}
	if _, err := st.CreateDrivers(ctx, []model.DriverIn{{ShiftStart: at(8, 0), ShiftEnd: at(18, 0)}}); err != nil {
		t.Fatalf("seed drivers: %v", err)
	}
	eng := testEngine(st, nil)

	sched, err := eng.Generate(ctx, testDate, 0, "", 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if sched.Solver.Status != model.SolveInfeasible {
		t.Fatalf("status = %s, want infeasible", sched.Solver.Status)
	}
	if len(sched.Routes) != 0 || len(sched.Unassigned) != 2 {
		t.Fatalf("routes = %d, unassigned = %d", len(sched.Routes), len(sched.Unassigned))
	}
}

func TestGenerateOversizedOrderMakesPartial(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedStore(t, st, 2)
	if _, err := st.CreateOrders(ctx, []model.OrderIn{
		{ClientID: "huge", Quantity: 99, Window: model.TimeWindow{Start: at(8, 0), End: at(18, 0)}},
	}); err != nil {
		t.Fatalf("seed oversized: %v", err)
	}
	eng := testEngine(st, nil)

	sched, err := eng.Generate(ctx, testDate, 0, "", 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if sched.Solver.Status != model.SolvePartial {
		t.Fatalf("status = %s, want partial", sched.Solver.Status)
	}
	if len(sched.Unassigned) != 1 || sched.Unassigned[0].Reason == "" {
		t.Fatalf("unassigned = %+v", sched.Unassigned)
	}
}

func TestGenerateNoDemand(t *testing.T) {
	st := store.NewMemory()
	eng := testEngine(st, nil)
	if _, err := eng.Generate(context.Background(), testDate, 0, "", 0); !errors.Is(err, ErrNoDemand) {
		t.Fatalf("err = %v, want ErrNoDemand", err)
	}
}

func TestGenerateBlockedByDateLock(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedStore(t, st, 1)
	locker := NewMemoryLocker()
	eng := testEngine(st, locker)

	release, err := locker.Acquire(ctx, testDate)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := eng.Generate(ctx, testDate, 0, "", 0); !errors.Is(err, ErrScheduleInFlight) {
		t.Fatalf("err = %v, want ErrScheduleInFlight", err)
	}
	release()

	// other dates are unaffected while one is held
	release2, err := locker.Acquire(ctx, "2025-06-02")
	if err != nil {
		t.Fatalf("acquire other date: %v", err)
	}
	release2()
}

func TestEngineMetricsAndConflicts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedStore(t, st, 3)
	eng := testEngine(st, nil)

	if _, err := eng.Generate(ctx, testDate, 0, "", 0); err != nil {
		t.Fatalf("generate: %v", err)
	}
	m, err := eng.Metrics(ctx, testDate)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.StopCount != 3 || m.RouteCount != 1 {
		t.Fatalf("metrics = %+v", m)
	}
	conflicts, err := eng.Conflicts(ctx, testDate)
	if err != nil {
		t.Fatalf("conflicts: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("conflicts = %+v, want none", conflicts)
	}
}

func TestEngineScheduleNotFound(t *testing.T) {
	eng := testEngine(store.NewMemory(), nil)
	if _, err := eng.Schedule(context.Background(), "2030-01-01"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
