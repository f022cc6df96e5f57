package sched

import (
	"errors"
	"fmt"

	"gasroute/internal/model"
)

var (
	// ErrNoDemand means there is nothing to schedule for the date. Callers
	// treat it as a normal empty outcome, not a hard failure.
	ErrNoDemand = errors.New("no eligible orders for date")

	// ErrScheduleInFlight means another generate/apply pipeline already
	// holds the advisory lock for the same date.
	ErrScheduleInFlight = errors.New("schedule operation already in flight for date")
)

// ModelBuildError is a structural failure: the fleet or roster cannot host
// any schedule at all.
type ModelBuildError struct {
	Reason string
}

func (e *ModelBuildError) Error() string { return "cannot build model: " + e.Reason }

// ValidationError identifies the exact entity with malformed data.
type ValidationError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %s: %s", e.Entity, e.ID, e.Reason)
}

// CommitConflictError means a target order/driver/vehicle changed between
// solve and apply. The caller must re-fetch and re-solve.
type CommitConflictError struct {
	Date string
	Err  error
}

func (e *CommitConflictError) Error() string {
	return fmt.Sprintf("schedule for %s conflicts with concurrent changes: %v", e.Date, e.Err)
}

func (e *CommitConflictError) Unwrap() error { return e.Err }

// ConflictGateError blocks an apply whose schedule still carries conflicts.
type ConflictGateError struct {
	Conflicts []model.Conflict
	Fatal     bool
}

func (e *ConflictGateError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("schedule has %d unresolved fatal conflict(s)", len(e.Conflicts))
	}
	return fmt.Sprintf("schedule has %d unacknowledged conflict(s)", len(e.Conflicts))
}
