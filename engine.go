// FILE: engine.go
// Package main – Shared strategy base: state, order tracking, placement.
//
// Every concrete strategy embeds *engine and overrides only the handlers it
// cares about. The base keeps:
//   • the per-symbol StateStore (ticks land here before any strategy logic)
//   • the OrderTracker (fills/cancels/sents are routed to it by default)
//   • place(): host call + stream-time stamp + registration + metrics
//   • invariant(): gate breaches panic in strict mode, log otherwise
//   • Snapshot()/saveSnapshot(): JSON state dump, written atomically
//
// All methods run on the dispatcher goroutine; nothing here takes a lock.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

type engine struct {
	name   string
	host   Host
	clock  *StreamClock
	states *StateStore
	orders *OrderTracker
	strict bool
	log    zerolog.Logger
}

func newEngine(name string, cfg Config, host Host, clock *StreamClock, log zerolog.Logger) *engine {
	l := log.With().Str("strategy", name).Logger()
	return &engine{
		name:   name,
		host:   host,
		clock:  clock,
		states: NewStateStore(),
		orders: NewOrderTracker(host, cfg.OrderTimeout(), l),
		strict: cfg.Strict,
		log:    l,
	}
}

func (e *engine) Name() string { return e.name }

// ---- default handlers ----

func (e *engine) OnTimer(now TimeOfDay)     {}
func (e *engine) OnTick(t Tick)             { e.states.ObserveTick(t) }
func (e *engine) OnImbalance(imb Imbalance) {}
func (e *engine) OnClose(bar OHLC)          {}
func (e *engine) OnFill(f Fill)             { e.orders.OnFill(f) }
func (e *engine) OnCancel(orderID string)   { e.orders.OnCancelAck(orderID) }
func (e *engine) OnSent(o Order)            { e.orders.OnSentAck(o) }

// State is a read-only view of one symbol's gates.
func (e *engine) State(sym string) SymbolState { return e.states.Lookup(sym) }

// place submits req, stamps the order with stream time and tracks it.
// Host errors are logged and counted, never propagated past the handler.
func (e *engine) place(req OrderRequest) (Order, error) {
	o, err := e.host.PlaceOrder(req)
	if err != nil {
		mtxHostErrors.WithLabelValues("place").Inc()
		e.log.Error().Err(err).
			Str("symbol", req.Symbol).
			Str("side", string(req.Side)).
			Str("type", string(req.Type)).
			Int64("size", req.Size).
			Msg("place order failed")
		return Order{}, fmt.Errorf("place %s %s %s: %w", req.Type, req.Side, req.Symbol, err)
	}
	o.PlacedAt = e.clock.Now()
	e.orders.Register(o)
	IncOrderPlaced(e.name, o.Side, o.Type)
	ev := e.log.Info().
		Str("order_id", o.ID).
		Str("symbol", o.Symbol).
		Str("side", string(o.Side)).
		Str("type", string(o.Type)).
		Int64("size", o.Size).
		Stringer("placed_at", o.PlacedAt)
	if o.Type == TypeLimit {
		ev = ev.Str("price", o.Price.String())
	}
	ev.Msg("order placed")
	return o, nil
}

// invariant reports a broken gating rule. It returns ok so call sites can
// bail out in non-strict mode.
func (e *engine) invariant(ok bool, sym, msg string) bool {
	if ok {
		return true
	}
	if e.strict {
		panic(fmt.Sprintf("invariant violated for %s: %s", sym, msg))
	}
	e.log.Error().Str("symbol", sym).Msg("invariant violated: " + msg)
	return false
}

// ---- state dump ----

// EngineSnapshot is the JSON shape of a state dump.
type EngineSnapshot struct {
	Strategy   string                 `json:"strategy"`
	Clock      TimeOfDay              `json:"clock"`
	Symbols    map[string]SymbolState `json:"symbols"`
	OpenOrders []Order                `json:"open_orders"`
	Scheduler  *SchedulerFlags        `json:"scheduler,omitempty"`
	TickCount  int64                  `json:"tick_count,omitempty"`
}

// Snapshotter is implemented by every strategy built on engine.
type Snapshotter interface {
	Snapshot() EngineSnapshot
}

func (e *engine) Snapshot() EngineSnapshot {
	return EngineSnapshot{
		Strategy:   e.name,
		Clock:      e.clock.Now(),
		Symbols:    e.states.Snapshot(),
		OpenOrders: e.orders.Open(),
	}
}

// saveSnapshot writes snap to path via tmp + rename so readers never see a
// half-written file.
func saveSnapshot(path string, snap EngineSnapshot) error {
	if path == "" {
		return nil
	}
	bs, err := json.MarshalIndent(snap, "", " ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("state dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, bs, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// loadSnapshot reads a dump written by saveSnapshot.
func loadSnapshot(path string) (EngineSnapshot, error) {
	var snap EngineSnapshot
	bs, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(bs, &snap); err != nil {
		return snap, fmt.Errorf("parse %s: %w", path, err)
	}
	return snap, nil
}

// dumpState snapshots strat (when it can) to path and logs the outcome.
func dumpState(strat Strategy, path string, log zerolog.Logger) {
	s, ok := strat.(Snapshotter)
	if !ok || path == "" {
		return
	}
	if err := saveSnapshot(path, s.Snapshot()); err != nil {
		log.Error().Err(err).Str("path", path).Msg("state dump failed")
		return
	}
	log.Info().Str("path", path).Msg("state dumped")
}
