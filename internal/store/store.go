package store

import (
	"context"
	"errors"
	"time"

	"gasroute/internal/model"
)

// Store is the persistence interface used by the scheduling engine and the
// API server. Orders, vehicles, and drivers arrive pre-validated from the
// admin layer; the engine only ever mutates them through ApplySchedule.
type Store interface {
	// Orders
	CreateOrders(ctx context.Context, orders []model.OrderIn) ([]model.DeliveryOrder, error)
	ListOrders(ctx context.Context, status, cursor string, limit int) ([]model.DeliveryOrder, string, error)
	// PendingOrders returns pending orders whose requested window intersects
	// [from, to).
	PendingOrders(ctx context.Context, from, to time.Time) ([]model.DeliveryOrder, error)

	// Vehicles
	CreateVehicles(ctx context.Context, vehicles []model.VehicleIn) ([]model.Vehicle, error)
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
	AvailableVehicles(ctx context.Context) ([]model.Vehicle, error)

	// Drivers
	CreateDrivers(ctx context.Context, drivers []model.DriverIn) ([]model.Driver, error)
	ListDrivers(ctx context.Context) ([]model.Driver, error)
	// AvailableDrivers returns available drivers whose shift intersects
	// [from, to).
	AvailableDrivers(ctx context.Context, from, to time.Time) ([]model.Driver, error)

	// Schedules
	GetSchedule(ctx context.Context, date string) (model.Schedule, error)
	// ApplySchedule commits a proposal: flips scheduled orders to
	// "scheduled" with their route/driver/vehicle references, marks the
	// assigned drivers and vehicles, and persists the schedule, all or
	// nothing. Returns ErrVersionConflict when any target entity was
	// modified since the schedule was computed.
	ApplySchedule(ctx context.Context, sched model.Schedule) (model.CommitResult, error)
}

var (
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict signals a failed optimistic status/version check.
	ErrVersionConflict = errors.New("concurrent modification detected")
)
