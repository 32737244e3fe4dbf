package main

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func placed(h *fakeHost, tr *OrderTracker, req OrderRequest, at TimeOfDay) Order {
	o, err := h.PlaceOrder(req)
	if err != nil {
		panic(err)
	}
	o.PlacedAt = at
	tr.Register(o)
	return o
}

func TestOrderTrackerCompletionFiresOnce(t *testing.T) {
	h := newFakeHost()
	tr := NewOrderTracker(h, 15*time.Second, testLogger())
	var done []string
	tr.OnCompletelyFilled(func(o Order) { done = append(done, o.ID) })

	o := placed(h, tr, OrderRequest{Side: SideBuy, Type: TypeMarket, Symbol: "AA", Size: 100}, At(10, 0, 0))

	tr.OnFill(Fill{OrderID: o.ID, Size: 40})
	if len(done) != 0 || tr.Filled(o.ID) != 40 {
		t.Fatalf("partial fill: done=%v filled=%d", done, tr.Filled(o.ID))
	}
	tr.OnFill(Fill{OrderID: o.ID, Size: 60})
	if len(done) != 1 || done[0] != o.ID {
		t.Fatalf("completion not fired once: %v", done)
	}
	// late duplicate fill after retirement
	tr.OnFill(Fill{OrderID: o.ID, Size: 60})
	if len(done) != 1 {
		t.Fatalf("completion fired again: %v", done)
	}
	if _, ok := tr.Lookup(o.ID); ok {
		t.Fatalf("completed order still open")
	}
}

func TestOrderTrackerOverfillCompletes(t *testing.T) {
	h := newFakeHost()
	tr := NewOrderTracker(h, 0, testLogger())
	n := 0
	tr.OnCompletelyFilled(func(Order) { n++ })
	o := placed(h, tr, OrderRequest{Side: SideBuy, Type: TypeMarket, Symbol: "AA", Size: 100}, 0)
	tr.OnFill(Fill{OrderID: o.ID, Size: 150})
	if n != 1 {
		t.Fatalf("overfill should complete once, got %d", n)
	}
}

func TestOrderTrackerIgnoresUnknownAcks(t *testing.T) {
	h := newFakeHost()
	tr := NewOrderTracker(h, 0, testLogger())
	n := 0
	tr.OnCompletelyFilled(func(Order) { n++ })
	before := testutil.ToFloat64(mtxFills)

	tr.OnFill(Fill{OrderID: "ghost", Size: 100})
	tr.OnCancelAck("ghost")
	tr.OnSentAck(Order{ID: "ghost"})

	if n != 0 {
		t.Fatalf("unknown fill completed an order")
	}
	if got := testutil.ToFloat64(mtxFills) - before; got != 0 {
		t.Fatalf("unknown fill counted: %v", got)
	}
}

func TestOrderTrackerCancelAckRetires(t *testing.T) {
	h := newFakeHost()
	tr := NewOrderTracker(h, 0, testLogger())
	o := placed(h, tr, OrderRequest{Side: SideSell, Type: TypeLimit, Symbol: "AA", Size: 100, Price: px("500")}, 0)
	tr.OnCancelAck(o.ID)
	if len(tr.Open()) != 0 {
		t.Fatalf("cancelled order still open: %+v", tr.Open())
	}
	tr.OnCancelAck(o.ID) // duplicate is harmless
	// a retired id cannot come back
	tr.Register(o)
	if len(tr.Open()) != 0 {
		t.Fatalf("retired id was re-registered")
	}
}

func TestOrderTrackerDuplicateRegisterKeepsFirst(t *testing.T) {
	h := newFakeHost()
	tr := NewOrderTracker(h, 0, testLogger())
	o := placed(h, tr, OrderRequest{Side: SideBuy, Type: TypeMarket, Symbol: "AA", Size: 100}, At(10, 0, 0))
	dup := o
	dup.Size = 5
	dup.PlacedAt = At(11, 0, 0)
	tr.Register(dup)
	got, _ := tr.Lookup(o.ID)
	if got.Size != 100 || got.PlacedAt != At(10, 0, 0) {
		t.Fatalf("duplicate register overwrote the order: %+v", got)
	}
}

func TestSweepTimeoutsBoundary(t *testing.T) {
	placedAt := At(10, 0, 0)
	cases := []struct {
		name string
		now  TimeOfDay
		want int
	}{
		{"one second before", At(10, 0, 14), 0},
		{"just before", placedAt.Add(15*time.Second - time.Millisecond), 0},
		{"exactly at timeout", At(10, 0, 15), 1},
		{"after timeout", At(10, 0, 16), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newFakeHost()
			tr := NewOrderTracker(h, 15*time.Second, testLogger())
			placed(h, tr, OrderRequest{Side: SideSell, Type: TypeLimit, Symbol: "SPY", Size: 100, Price: px("500")}, placedAt)
			if got := tr.SweepTimeouts(tc.now); got != tc.want || len(h.cancels) != tc.want {
				t.Fatalf("sweep at %s: issued %d (host saw %d), want %d", tc.now, got, len(h.cancels), tc.want)
			}
		})
	}
}

func TestSweepTimeoutsCancelsOnce(t *testing.T) {
	h := newFakeHost()
	tr := NewOrderTracker(h, 15*time.Second, testLogger())
	o := placed(h, tr, OrderRequest{Side: SideSell, Type: TypeLimit, Symbol: "SPY", Size: 100, Price: px("500")}, At(10, 0, 0))
	before := testutil.ToFloat64(mtxOrderTimeouts)

	tr.SweepTimeouts(At(10, 0, 15))
	h.open[o.ID] = o // broker has not acked the cancel yet
	tr.SweepTimeouts(At(10, 0, 16))
	tr.SweepTimeouts(At(10, 0, 17))

	if len(h.cancels) != 1 {
		t.Fatalf("cancel requested %d times, want 1", len(h.cancels))
	}
	if got := testutil.ToFloat64(mtxOrderTimeouts) - before; got != 1 {
		t.Fatalf("timeouts counter moved by %v", got)
	}
	tr.OnCancelAck(o.ID)
	if len(tr.Open()) != 0 {
		t.Fatalf("ack did not retire the order")
	}
}

func TestSweepTimeoutsRetriesAfterHostError(t *testing.T) {
	h := newFakeHost()
	h.failCancel = errHostDown
	tr := NewOrderTracker(h, 15*time.Second, testLogger())
	placed(h, tr, OrderRequest{Side: SideSell, Type: TypeLimit, Symbol: "SPY", Size: 100, Price: px("500")}, At(10, 0, 0))
	before := testutil.ToFloat64(mtxHostErrors.WithLabelValues("cancel"))

	if n := tr.SweepTimeouts(At(10, 0, 15)); n != 0 {
		t.Fatalf("failed cancel counted as issued")
	}
	h.failCancel = nil
	if n := tr.SweepTimeouts(At(10, 0, 16)); n != 1 {
		t.Fatalf("sweep should retry after a host error, issued %d", n)
	}
	if got := testutil.ToFloat64(mtxHostErrors.WithLabelValues("cancel")) - before; got != 1 {
		t.Fatalf("host error counter moved by %v", got)
	}
}

func TestSweepTimeoutsUsesHostPlacedAtForUntracked(t *testing.T) {
	h := newFakeHost()
	tr := NewOrderTracker(h, 15*time.Second, testLogger())
	h.open["ext"] = Order{ID: "ext", Symbol: "GLD", Size: 100, PlacedAt: At(10, 0, 0)}
	if n := tr.SweepTimeouts(At(10, 0, 10)); n != 0 {
		t.Fatalf("young untracked order cancelled")
	}
	if n := tr.SweepTimeouts(At(10, 0, 15)); n != 1 {
		t.Fatalf("old untracked order not cancelled")
	}
}

func TestSweepTimeoutsDisabled(t *testing.T) {
	h := newFakeHost()
	tr := NewOrderTracker(h, 0, testLogger())
	placed(h, tr, OrderRequest{Side: SideSell, Type: TypeLimit, Symbol: "SPY", Size: 100, Price: px("500")}, 0)
	if n := tr.SweepTimeouts(At(23, 0, 0)); n != 0 {
		t.Fatalf("zero timeout should disable the sweep")
	}
}
