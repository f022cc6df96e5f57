package sched

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gasroute/internal/model"
	"gasroute/internal/store"
)

// DayBounds returns the UTC [start, end) span of a YYYY-MM-DD date.
func DayBounds(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day, day.Add(24 * time.Hour), nil
}

// CollectOrders returns all pending orders whose requested window intersects
// the target date, sorted by priority descending, window start ascending,
// then order ID ascending so repeated runs see identical input. Read-only;
// returns ErrNoDemand when nothing is eligible.
func CollectOrders(ctx context.Context, st store.Store, date string) ([]model.DeliveryOrder, error) {
	from, to, err := DayBounds(date)
	if err != nil {
		return nil, err
	}
	orders, err := st.PendingOrders(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNoDemand
	}
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.Window.Start.Equal(b.Window.Start) {
			return a.Window.Start.Before(b.Window.Start)
		}
		return a.ID < b.ID
	})
	return orders, nil
}
