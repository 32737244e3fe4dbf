// FILE: orders.go
// Package main – Order lifecycle tracking.
//
// OrderTracker remembers every order a strategy placed (keyed by host id),
// accumulates partial fills, and fires the "completely filled" callbacks
// exactly once per order. SweepTimeouts asks the host to cancel orders that
// have been working longer than the configured timeout.
//
// Ages are measured in stream time (TimeOfDay of the events), not wall-clock,
// so a replay cancels exactly what the live run cancelled.

package main

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
)

type trackedOrder struct {
	Order
	Filled int64
}

// OrderTracker is owned by one strategy; dispatcher goroutine only.
type OrderTracker struct {
	host    Host
	timeout time.Duration
	log     zerolog.Logger

	open       map[string]*trackedOrder
	retired    map[string]struct{}
	cancelling map[string]struct{}
	onFilled   []func(Order)
}

// NewOrderTracker builds a tracker. timeout <= 0 disables SweepTimeouts.
func NewOrderTracker(host Host, timeout time.Duration, log zerolog.Logger) *OrderTracker {
	return &OrderTracker{
		host:       host,
		timeout:    timeout,
		log:        log.With().Str("component", "orders").Logger(),
		open:       make(map[string]*trackedOrder),
		retired:    make(map[string]struct{}),
		cancelling: make(map[string]struct{}),
	}
}

// OnCompletelyFilled registers fn to run once per order when its cumulative
// fills reach the requested size.
func (t *OrderTracker) OnCompletelyFilled(fn func(Order)) {
	t.onFilled = append(t.onFilled, fn)
}

// Register stores a freshly placed order.
func (t *OrderTracker) Register(o Order) {
	if _, ok := t.open[o.ID]; ok {
		t.log.Warn().Str("order_id", o.ID).Msg("order id registered twice; keeping the first")
		return
	}
	if _, ok := t.retired[o.ID]; ok {
		t.log.Warn().Str("order_id", o.ID).Msg("order id reused after retirement; ignored")
		return
	}
	t.open[o.ID] = &trackedOrder{Order: o}
}

// Lookup returns a tracked order that is still open.
func (t *OrderTracker) Lookup(id string) (Order, bool) {
	o, ok := t.open[id]
	if !ok {
		return Order{}, false
	}
	return o.Order, true
}

// Filled returns the cumulative filled size of an open order.
func (t *OrderTracker) Filled(id string) int64 {
	if o, ok := t.open[id]; ok {
		return o.Filled
	}
	return 0
}

// Open lists open orders by placement time, then id.
func (t *OrderTracker) Open() []Order {
	out := make([]Order, 0, len(t.open))
	for _, o := range t.open {
		out = append(out, o.Order)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlacedAt != out[j].PlacedAt {
			return out[i].PlacedAt < out[j].PlacedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// OnFill records one execution.
func (t *OrderTracker) OnFill(f Fill) {
	o, ok := t.open[f.OrderID]
	if !ok {
		t.log.Debug().Str("order_id", f.OrderID).Msg("fill for unknown or retired order ignored")
		return
	}
	mtxFills.Inc()
	o.Filled += f.Size
	if o.Filled < o.Size {
		return
	}
	t.retire(o.ID)
	mtxOrdersCompleted.Inc()
	for _, fn := range t.onFilled {
		fn(o.Order)
	}
}

// OnCancelAck retires a cancelled order. Unknown ids are ignored.
func (t *OrderTracker) OnCancelAck(id string) {
	delete(t.cancelling, id)
	if _, ok := t.open[id]; !ok {
		t.log.Debug().Str("order_id", id).Msg("cancel ack for unknown order ignored")
		return
	}
	t.retire(id)
}

// OnSentAck only confirms receipt.
func (t *OrderTracker) OnSentAck(o Order) {
	if _, ok := t.open[o.ID]; !ok {
		t.log.Debug().Str("order_id", o.ID).Msg("sent ack for untracked order")
	}
}

// SweepTimeouts asks the host to cancel every open order whose age reached
// the timeout at stream time now. Each order is asked at most once.
// It returns the number of cancel requests issued.
func (t *OrderTracker) SweepTimeouts(now TimeOfDay) int {
	if t.timeout <= 0 {
		return 0
	}
	n := 0
	for _, o := range t.host.OpenOrders() {
		if _, ok := t.cancelling[o.ID]; ok {
			continue
		}
		if _, ok := t.retired[o.ID]; ok {
			continue
		}
		placed := o.PlacedAt
		if rec, ok := t.open[o.ID]; ok {
			placed = rec.PlacedAt
		}
		if now < placed.Add(t.timeout) {
			continue
		}
		if err := t.host.CancelOrder(o.ID); err != nil {
			mtxHostErrors.WithLabelValues("cancel").Inc()
			t.log.Error().Err(err).Str("order_id", o.ID).Msg("timeout cancel failed")
			continue
		}
		t.cancelling[o.ID] = struct{}{}
		mtxOrderTimeouts.Inc()
		t.log.Info().
			Str("order_id", o.ID).
			Str("symbol", o.Symbol).
			Stringer("placed_at", placed).
			Stringer("now", now).
			Msg("order timed out; cancel requested")
		n++
	}
	return n
}

func (t *OrderTracker) retire(id string) {
	delete(t.open, id)
	t.retired[id] = struct{}{}
}
