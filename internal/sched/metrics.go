package sched

import "gasroute/internal/model"

// ComputeMetrics aggregates a committed or proposed schedule. Pure and
// total: an empty schedule yields all-zero metrics, never an error.
func ComputeMetrics(s model.Schedule) model.ScheduleMetrics {
	m := model.ScheduleMetrics{
		Date:            s.Date,
		UnassignedCount: len(s.Unassigned),
		StopsPerDriver:  map[string]int{},
	}
	loadFactorSum := 0.0
	loadFactorN := 0
	for _, rt := range s.Routes {
		m.RouteCount++
		m.StopCount += len(rt.Stops)
		m.TotalDistanceM += rt.DistanceM
		m.TotalDriveSec += rt.DriveSec
		if rt.DriverID != "" {
			m.StopsPerDriver[rt.DriverID] += len(rt.Stops)
		}
		if rt.Capacity > 0 {
			loadFactorSum += float64(rt.Load) / float64(rt.Capacity)
			loadFactorN++
		}
	}
	if loadFactorN > 0 {
		m.AvgLoadFactor = loadFactorSum / float64(loadFactorN)
	}
	return m
}
