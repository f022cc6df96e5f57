package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gasroute/internal/model"
)

// Memory is a mutex-guarded in-memory store used when no DATABASE_URL is
// set, and by the package tests.
type Memory struct {
	mu        sync.Mutex
	orders    map[string]model.DeliveryOrder
	orderIDs  []string // insertion order, backs cursor pagination
	vehicles  map[string]model.Vehicle
	vehIDs    []string
	drivers   map[string]model.Driver
	drvIDs    []string
	schedules map[string]model.Schedule // date -> committed schedule
}

func NewMemory() *Memory {
	return &Memory{
		orders:    map[string]model.DeliveryOrder{},
		vehicles:  map[string]model.Vehicle{},
		drivers:   map[string]model.Driver{},
		schedules: map[string]model.Schedule{},
	}
}

func (m *Memory) CreateOrders(ctx context.Context, in []model.OrderIn) ([]model.DeliveryOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DeliveryOrder, 0, len(in))
	for _, o := range in {
		id := uuid.New().String()
		ord := model.DeliveryOrder{
			ID:       id,
			ClientID: o.ClientID,
			Location: o.Location,
			Quantity: o.Quantity,
			Window:   o.Window,
			Priority: o.Priority,
			Status:   model.OrderPending,
			Version:  1,
		}
		m.orders[id] = ord
		m.orderIDs = append(m.orderIDs, id)
		out = append(out, ord)
	}
	return out, nil
}

func (m *Memory) ListOrders(ctx context.Context, status, cursor string, limit int) ([]model.DeliveryOrder, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, id := range m.orderIDs {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.DeliveryOrder{}
	next := ""
	for i := start; i < len(m.orderIDs); i++ {
		o := m.orders[m.orderIDs[i]]
		if status != "" && o.Status != status {
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, o)
	}
	return out, next, nil
}

func (m *Memory) PendingOrders(ctx context.Context, from, to time.Time) ([]model.DeliveryOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	span := model.TimeWindow{Start: from, End: to}
	out := []model.DeliveryOrder{}
	for _, id := range m.orderIDs {
		o := m.orders[id]
		if o.Status == model.OrderPending && o.Window.Overlaps(span) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *Memory) CreateVehicles(ctx context.Context, in []model.VehicleIn) ([]model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Vehicle, 0, len(in))
	for _, v := range in {
		id := uuid.New().String()
		veh := model.Vehicle{ID: id, Capacity: v.Capacity, Status: model.VehicleAvailable, Version: 1}
		if v.Location != nil {
			veh.Location = *v.Location
		}
		m.vehicles[id] = veh
		m.vehIDs = append(m.vehIDs, id)
		out = append(out, veh)
	}
	return out, nil
}

func (m *Memory) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Vehicle, 0, len(m.vehIDs))
	for _, id := range m.vehIDs {
		out = append(out, m.vehicles[id])
	}
	return out, nil
}

func (m *Memory) AvailableVehicles(ctx context.Context) ([]model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Vehicle{}
	for _, id := range m.vehIDs {
		if v := m.vehicles[id]; v.Status == model.VehicleAvailable {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateDrivers(ctx context.Context, in []model.DriverIn) ([]model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Driver, 0, len(in))
	for _, d := range in {
		id := uuid.New().String()
		drv := model.Driver{ID: id, ShiftStart: d.ShiftStart, ShiftEnd: d.ShiftEnd, Status: model.DriverAvailable, Version: 1}
		m.drivers[id] = drv
		m.drvIDs = append(m.drvIDs, id)
		out = append(out, drv)
	}
	return out, nil
}

func (m *Memory) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Driver, 0, len(m.drvIDs))
	for _, id := range m.drvIDs {
		out = append(out, m.drivers[id])
	}
	return out, nil
}

func (m *Memory) AvailableDrivers(ctx context.Context, from, to time.Time) ([]model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	span := model.TimeWindow{Start: from, End: to}
	out := []model.Driver{}
	for _, id := range m.drvIDs {
		d := m.drivers[id]
		shift := model.TimeWindow{Start: d.ShiftStart, End: d.ShiftEnd}
		if d.Status == model.DriverAvailable && shift.Overlaps(span) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetSchedule(ctx context.Context, date string) (model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[date]
	if !ok {
		return model.Schedule{}, ErrNotFound
	}
	return s, nil
}

// ApplySchedule validates every target entity under the lock before touching
// anything, so a conflict leaves the store exactly as it was.
func (m *Memory) ApplySchedule(ctx context.Context, sched model.Schedule) (model.CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// phase 1: optimistic checks, no writes
	for _, rt := range sched.Routes {
		v, ok := m.vehicles[rt.VehicleID]
		if !ok {
			return model.CommitResult{}, ErrNotFound
		}
		if v.Status != model.VehicleAvailable {
			return model.CommitResult{}, ErrVersionConflict
		}
		d, ok := m.drivers[rt.DriverID]
		if !ok {
			return model.CommitResult{}, ErrNotFound
		}
		if d.Status != model.DriverAvailable {
			return model.CommitResult{}, ErrVersionConflict
		}
		for _, st := range rt.Stops {
			o, ok := m.orders[st.OrderID]
			if !ok {
				return model.CommitResult{}, ErrNotFound
			}
			if o.Status != model.OrderPending {
				return model.CommitResult{}, ErrVersionConflict
			}
		}
	}

	// phase 2: commit
	scheduled := 0
	for _, rt := range sched.Routes {
		v := m.vehicles[rt.VehicleID]
		v.Status = model.VehicleInUse
		v.Version++
		m.vehicles[rt.VehicleID] = v

		d := m.drivers[rt.DriverID]
		d.Status = model.DriverAssigned
		d.Version++
		m.drivers[rt.DriverID] = d

		for _, st := range rt.Stops {
			o := m.orders[st.OrderID]
			o.Status = model.OrderScheduled
			o.RouteID = rt.ID
			o.DriverID = rt.DriverID
			o.VehicleID = rt.VehicleID
			o.Version++
			m.orders[st.OrderID] = o
			scheduled++
		}
	}
	sched.Committed = true
	m.schedules[sched.Date] = sched
	return model.CommitResult{
		ScheduleID:      sched.ID,
		Date:            sched.Date,
		RoutesCreated:   len(sched.Routes),
		OrdersScheduled: scheduled,
		CommittedAt:     time.Now().UTC(),
	}, nil
}
