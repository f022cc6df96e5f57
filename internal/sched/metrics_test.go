package sched

import (
	"testing"

	"gasroute/internal/model"
)

func TestComputeMetricsEmptySchedule(t *testing.T) {
	m := ComputeMetrics(model.Schedule{Date: testDate})
	if m.RouteCount != 0 || m.StopCount != 0 || m.TotalDistanceM != 0 || m.AvgLoadFactor != 0 {
		t.Fatalf("metrics = %+v, want zeros", m)
	}
	if m.Date != testDate {
		t.Fatalf("date = %s", m.Date)
	}
}

func TestComputeMetricsAggregates(t *testing.T) {
	s := model.Schedule{
		Date: testDate,
		Routes: []model.Route{
			{
				DriverID: "drv-1", Capacity: 10, Load: 5,
				DistanceM: 12000, DriveSec: 1800,
				Stops: []model.Stop{{OrderID: "o1"}, {OrderID: "o2"}},
			},
			{
				DriverID: "drv-2", Capacity: 10, Load: 10,
				DistanceM: 8000, DriveSec: 1200,
				Stops: []model.Stop{{OrderID: "o3"}},
			},
		},
		Unassigned: []model.UnassignedOrder{{OrderID: "o4"}},
	}
	m := ComputeMetrics(s)
	if m.RouteCount != 2 || m.StopCount != 3 || m.UnassignedCount != 1 {
		t.Fatalf("counts = %+v", m)
	}
	if m.TotalDistanceM != 20000 || m.TotalDriveSec != 3000 {
		t.Fatalf("totals = %+v", m)
	}
	if m.AvgLoadFactor != 0.75 {
		t.Fatalf("avg load factor = %f, want 0.75", m.AvgLoadFactor)
	}
	if m.StopsPerDriver["drv-1"] != 2 || m.StopsPerDriver["drv-2"] != 1 {
		t.Fatalf("stops per driver = %+v", m.StopsPerDriver)
	}
}
