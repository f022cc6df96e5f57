package sched

import (
	"fmt"
	"sort"

	"gasroute/internal/model"
)

// DetectConflicts inspects a proposed or committed schedule for invariant
// violations. Pure and idempotent: same schedule in, same conflict list out,
// in a stable order. Time-window checks sort each route's stops by arrival;
// resource collision checks are pairwise over routes, which stay few (one
// per vehicle per day).
func DetectConflicts(s model.Schedule) []model.Conflict {
	conflicts := []model.Conflict{}

	for _, rt := range s.Routes {
		// re-check capacity from the stops, not the route's Load field
		load := 0
		for _, st := range rt.Stops {
			load += st.Quantity
		}
		if rt.Capacity > 0 && load > rt.Capacity {
			conflicts = append(conflicts, model.Conflict{
				Type:      model.ConflictCapacityExceeded,
				Severity:  model.SeverityError,
				RouteID:   rt.ID,
				VehicleID: rt.VehicleID,
				Detail:    fmt.Sprintf("load %d exceeds capacity %d", load, rt.Capacity),
			})
		}

		stops := append([]model.Stop(nil), rt.Stops...)
		sort.Slice(stops, func(i, j int) bool { return stops[i].Arrival.Before(stops[j].Arrival) })
		for _, st := range stops {
			switch {
			case !st.Window.End.IsZero() && st.Arrival.After(st.Window.End):
				conflicts = append(conflicts, model.Conflict{
					Type:     model.ConflictTimeWindow,
					Severity: model.SeverityError,
					RouteID:  rt.ID,
					OrderID:  st.OrderID,
					Detail:   fmt.Sprintf("arrival %s after window end %s", st.Arrival.Format("15:04"), st.Window.End.Format("15:04")),
				})
			case st.Arrival.Before(st.Window.Start):
				// early arrival is soft: the driver waits
				conflicts = append(conflicts, model.Conflict{
					Type:     model.ConflictTimeWindow,
					Severity: model.SeverityWarning,
					RouteID:  rt.ID,
					OrderID:  st.OrderID,
					Detail:   fmt.Sprintf("arrival %s before window start %s", st.Arrival.Format("15:04"), st.Window.Start.Format("15:04")),
				})
			}
		}
	}

	for i := 0; i < len(s.Routes); i++ {
		for j := i + 1; j < len(s.Routes); j++ {
			a, b := s.Routes[i], s.Routes[j]
			if !routesOverlap(a, b) {
				continue
			}
			if a.DriverID != "" && a.DriverID == b.DriverID {
				conflicts = append(conflicts, model.Conflict{
					Type:     model.ConflictDriverDoubleBooked,
					Severity: model.SeverityError,
					RouteID:  a.ID,
					OtherID:  b.ID,
					DriverID: a.DriverID,
				})
			}
			if a.VehicleID != "" && a.VehicleID == b.VehicleID {
				conflicts = append(conflicts, model.Conflict{
					Type:      model.ConflictVehicleDoubleBooked,
					Severity:  model.SeverityError,
					RouteID:   a.ID,
					OtherID:   b.ID,
					VehicleID: a.VehicleID,
				})
			}
		}
	}
	return conflicts
}

func routesOverlap(a, b model.Route) bool {
	if a.Start.IsZero() || b.Start.IsZero() {
		return true // no span information, assume collision
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// FatalConflicts filters to the conflicts that always block an apply.
func FatalConflicts(conflicts []model.Conflict) []model.Conflict {
	out := []model.Conflict{}
	for _, c := range conflicts {
		if c.Severity == model.SeverityError {
			out = append(out, c)
		}
	}
	return out
}
