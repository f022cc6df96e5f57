package model

import "time"

// Core domain types shared by the scheduling engine, the store, and the API.

// Order lifecycle. Orders arrive pre-validated from the admin layer as
// "pending"; the engine moves them to "scheduled" when a plan commits.
const (
	OrderPending   = "pending"
	OrderScheduled = "scheduled"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

const (
	VehicleAvailable   = "available"
	VehicleInUse       = "in_use"
	VehicleMaintenance = "maintenance"
)

const (
	DriverAvailable = "available"
	DriverAssigned  = "assigned"
	DriverOffDuty   = "off_duty"
)

// Solver terminal statuses.
const (
	SolveOptimal    = "optimal"
	SolveFeasible   = "feasible"
	SolvePartial    = "partial"
	SolveInfeasible = "infeasible"
)

// Conflict types and severities.
const (
	ConflictDriverDoubleBooked  = "driver_double_booked"
	ConflictVehicleDoubleBooked = "vehicle_double_booked"
	ConflictTimeWindow          = "time_window_violation"
	ConflictCapacityExceeded    = "capacity_exceeded"

	SeverityError   = "error"
	SeverityWarning = "warning"
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TimeWindow is the requested delivery interval [Start, End].
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two windows share any span.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// DeliveryOrder is one cylinder delivery request. Version backs the
// optimistic concurrency check at apply time.
type DeliveryOrder struct {
	ID        string     `json:"id"`
	ClientID  string     `json:"clientId"`
	Location  GeoPoint   `json:"location"`
	Quantity  int        `json:"quantity"`
	Window    TimeWindow `json:"window"`
	Priority  int        `json:"priority"`
	Status    string     `json:"status"`
	RouteID   string     `json:"routeId,omitempty"`
	DriverID  string     `json:"driverId,omitempty"`
	VehicleID string     `json:"vehicleId,omitempty"`
	Version   int        `json:"version"`
}

type Vehicle struct {
	ID       string   `json:"id"`
	Capacity int      `json:"capacity"` // max cylinder units
	Location GeoPoint `json:"location"` // depot unless mid-shift
	Status   string   `json:"status"`
	Version  int      `json:"version"`
}

type Driver struct {
	ID         string    `json:"id"`
	ShiftStart time.Time `json:"shiftStart"`
	ShiftEnd   time.Time `json:"shiftEnd"`
	Status     string    `json:"status"`
	Version    int       `json:"version"`
}

// Stop is one delivery on a route. It carries copies of the order's window
// and quantity so conflict detection and metrics stay pure over a Schedule.
type Stop struct {
	Seq       int        `json:"seq"`
	OrderID   string     `json:"orderId"`
	Location  GeoPoint   `json:"location"`
	Quantity  int        `json:"quantity"`
	Window    TimeWindow `json:"window"`
	Arrival   time.Time  `json:"arrival"`
	Departure time.Time  `json:"departure"`
}

type Route struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicleId"`
	DriverID  string    `json:"driverId"`
	Capacity  int       `json:"capacity"`
	Stops     []Stop    `json:"stops"`
	Load      int       `json:"load"`
	DistanceM float64   `json:"distanceM"`
	DriveSec  int       `json:"driveSec"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Feasible  bool      `json:"feasible"`
}

// SolverInfo records how a schedule was produced.
type SolverInfo struct {
	Status      string  `json:"status"`
	Algorithm   string  `json:"algorithm"`
	Objective   float64 `json:"objective"`
	Iterations  int     `json:"iterations"`
	TimeSpentMs int     `json:"timeSpentMs"`
	Seed        int64   `json:"seed"`
}

// UnassignedOrder is an order the solver could not place, with the reason.
type UnassignedOrder struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// Schedule is a proposed or committed day plan. Until the applier commits it,
// it is a disposable, immutable proposal.
type Schedule struct {
	ID         string            `json:"id"`
	Date       string            `json:"date"` // YYYY-MM-DD
	Depot      GeoPoint          `json:"depot"`
	Routes     []Route           `json:"routes"`
	Unassigned []UnassignedOrder `json:"unassigned"`
	Solver     SolverInfo        `json:"solver"`
	Committed  bool              `json:"committed"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type Conflict struct {
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	RouteID   string `json:"routeId,omitempty"`
	OtherID   string `json:"otherRouteId,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
	DriverID  string `json:"driverId,omitempty"`
	VehicleID string `json:"vehicleId,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type ScheduleMetrics struct {
	Date            string         `json:"date"`
	TotalDistanceM  float64        `json:"totalDistanceM"`
	TotalDriveSec   int            `json:"totalDriveSec"`
	AvgLoadFactor   float64        `json:"avgLoadFactor"`
	RouteCount      int            `json:"routeCount"`
	StopCount       int            `json:"stopCount"`
	UnassignedCount int            `json:"unassignedCount"`
	StopsPerDriver  map[string]int `json:"stopsPerDriver"`
}

type CommitResult struct {
	ScheduleID      string    `json:"scheduleId"`
	Date            string    `json:"date"`
	RoutesCreated   int       `json:"routesCreated"`
	OrdersScheduled int       `json:"ordersScheduled"`
	CommittedAt     time.Time `json:"committedAt"`
}

// Seed inputs accepted from the admin layer (pre-validated upstream).
type OrderIn struct {
	ClientID string     `json:"clientId"`
	Location GeoPoint   `json:"location"`
	Quantity int        `json:"quantity"`
	Window   TimeWindow `json:"window"`
	Priority int        `json:"priority,omitempty"`
}

type VehicleIn struct {
	Capacity int       `json:"capacity"`
	Location *GeoPoint `json:"location,omitempty"`
}

type DriverIn struct {
	ShiftStart time.Time `json:"shiftStart"`
	ShiftEnd   time.Time `json:"shiftEnd"`
}
