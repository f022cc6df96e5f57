package sched

import (
	"sort"

	"gasroute/internal/model"
	"gasroute/internal/opt"
)

// defaultServiceSec is the fixed unload/handover time per stop.
const defaultServiceSec = 600

// Model is a solvable problem plus the bookkeeping needed to translate a
// solver solution back into domain terms. Solvable[i] corresponds to
// Problem.Nodes[i].
type Model struct {
	Problem    *opt.Problem
	Solvable   []model.DeliveryOrder
	Infeasible []model.UnassignedOrder
}

// BuildModel converts orders, vehicles, and drivers into an optimization
// problem. Vehicles and drivers are paired by ascending ID; the pair count
// caps the route count. Orders too large for every vehicle are flagged
// individually and reported back, not silently dropped.
func BuildModel(orders []model.DeliveryOrder, vehicles []model.Vehicle, drivers []model.Driver,
	depot model.GeoPoint, df opt.DistanceFunc, speedKph float64, w opt.Weights) (*Model, error) {

	usable := make([]model.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Status != model.VehicleAvailable {
			continue
		}
		if v.Capacity <= 0 {
			return nil, &ValidationError{Entity: "vehicle", ID: v.ID, Reason: "capacity must be positive"}
		}
		usable = append(usable, v)
	}
	roster := make([]model.Driver, 0, len(drivers))
	for _, d := range drivers {
		if d.Status != model.DriverAvailable {
			continue
		}
		if !d.ShiftEnd.After(d.ShiftStart) {
			return nil, &ValidationError{Entity: "driver", ID: d.ID, Reason: "shift window is empty"}
		}
		roster = append(roster, d)
	}
	if len(usable) == 0 {
		return nil, &ModelBuildError{Reason: "no available vehicles"}
	}
	if len(roster) == 0 {
		return nil, &ModelBuildError{Reason: "no available drivers"}
	}

	sort.Slice(usable, func(i, j int) bool { return usable[i].ID < usable[j].ID })
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })
	pairs := len(usable)
	if len(roster) < pairs {
		pairs = len(roster)
	}
	resources := make([]opt.Resource, pairs)
	maxCap := 0
	for i := 0; i < pairs; i++ {
		resources[i] = opt.Resource{
			VehicleID:  usable[i].ID,
			DriverID:   roster[i].ID,
			Capacity:   usable[i].Capacity,
			ShiftStart: roster[i].ShiftStart,
			ShiftEnd:   roster[i].ShiftEnd,
		}
		if usable[i].Capacity > maxCap {
			maxCap = usable[i].Capacity
		}
	}

	m := &Model{}
	nodes := []opt.Node{}
	for _, o := range orders {
		if o.Quantity > maxCap {
			m.Infeasible = append(m.Infeasible, model.UnassignedOrder{
				OrderID: o.ID,
				Reason:  "quantity exceeds capacity of every available vehicle",
			})
			continue
		}
		nodes = append(nodes, opt.Node{
			ID:         o.ID,
			Loc:        o.Location,
			Quantity:   o.Quantity,
			Window:     o.Window,
			ServiceSec: defaultServiceSec,
			Priority:   o.Priority,
		})
		m.Solvable = append(m.Solvable, o)
	}

	if df == nil {
		df = opt.Haversine
	}
	m.Problem = opt.NewProblem(depot, nodes, resources, df, speedKph, w)
	return m, nil
}
