package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"gasroute/internal/model"
	"gasroute/internal/store"
)

func TestCollectOrdersOrdering(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	created, err := st.CreateOrders(ctx, []model.OrderIn{
		{ClientID: "c1", Quantity: 1, Priority: 0, Window: model.TimeWindow{Start: at(14, 0), End: at(16, 0)}},
		{ClientID: "c2", Quantity: 1, Priority: 5, Window: model.TimeWindow{Start: at(10, 0), End: at(12, 0)}},
		{ClientID: "c3", Quantity: 1, Priority: 0, Window: model.TimeWindow{Start: at(9, 0), End: at(11, 0)}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	orders, err := CollectOrders(ctx, st, testDate)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("got %d orders, want 3", len(orders))
	}
	// priority first, then earliest window start
	if orders[0].ID != created[1].ID {
		t.Fatalf("first = %s (priority %d), want the priority-5 order", orders[0].ID, orders[0].Priority)
	}
	if orders[1].ID != created[2].ID || orders[2].ID != created[0].ID {
		t.Fatalf("equal-priority orders not sorted by window start: %s, %s", orders[1].ID, orders[2].ID)
	}
}

func TestCollectOrdersSkipsOtherDates(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	_, err := st.CreateOrders(ctx, []model.OrderIn{
		{ClientID: "c1", Quantity: 1, Window: model.TimeWindow{
			Start: at(10, 0).AddDate(0, 0, 3),
			End:   at(12, 0).AddDate(0, 0, 3),
		}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CollectOrders(ctx, st, testDate); !errors.Is(err, ErrNoDemand) {
		t.Fatalf("err = %v, want ErrNoDemand", err)
	}
}

func TestCollectOrdersBadDate(t *testing.T) {
	if _, err := CollectOrders(context.Background(), store.NewMemory(), "June 1st"); err == nil {
		t.Fatal("malformed date accepted")
	}
}

func TestDayBounds(t *testing.T) {
	from, to, err := DayBounds(testDate)
	if err != nil {
		t.Fatalf("day bounds: %v", err)
	}
	if !from.Equal(at(0, 0)) {
		t.Fatalf("from = %s", from)
	}
	if to.Sub(from) != 24*time.Hour {
		t.Fatalf("span = %s", to.Sub(from))
	}
}
