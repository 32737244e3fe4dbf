// FILE: strategy_positions.go
// Package main – Position management strategy.
//
// For every symbol in the universe:
//   • first tick with a flat host position → market BUY of BASE_SIZE
//   • any tick with a non-flat position    → one market BUY of PYRAMID_SIZE
// The two checks are independent; pyramiding does not care who opened the
// position. On the timer the Scheduler publishes positions at midday and
// flattens everything before the close.

package main

import (
	"github.com/rs/zerolog"
)

type PositionsStrategy struct {
	*engine
	sched       *Scheduler
	baseSize    int64
	pyramidSize int64
}

func NewPositionsStrategy(cfg Config, host Host, clock *StreamClock, log zerolog.Logger) *PositionsStrategy {
	s := &PositionsStrategy{
		engine:      newEngine("positions", cfg, host, clock, log),
		baseSize:    cfg.BaseSize,
		pyramidSize: cfg.PyramidSize,
	}
	s.sched = NewScheduler(host, cfg.MiddayAt, cfg.FlattenAt, s.log)
	s.orders.OnCompletelyFilled(s.onCompletelyFilled)
	return s
}

// Scheduler exposes the one-shot session actions (tests, state dump).
func (s *PositionsStrategy) Scheduler() *Scheduler { return s.sched }

func (s *PositionsStrategy) OnTimer(now TimeOfDay) { s.sched.OnTimer(now) }

func (s *PositionsStrategy) OnTick(t Tick) {
	s.engine.OnTick(t)
	sym := t.Symbol

	if !s.states.Lookup(sym).Entered && s.host.PositionFor(sym).IsFlat() {
		if s.invariant(s.states.MarkEntered(sym), sym, "entry gate already closed") {
			IncEntry(s.name, "entry")
			_, _ = s.place(OrderRequest{Side: SideBuy, Type: TypeMarket, Symbol: sym, Size: s.baseSize})
		}
	}

	// re-query: the entry above may already have moved the position
	if !s.states.Lookup(sym).Pyramided && !s.host.PositionFor(sym).IsFlat() {
		if s.invariant(s.states.MarkPyramided(sym), sym, "pyramid gate already closed") {
			IncEntry(s.name, "pyramid")
			_, _ = s.place(OrderRequest{Side: SideBuy, Type: TypeMarket, Symbol: sym, Size: s.pyramidSize})
		}
	}
}

func (s *PositionsStrategy) OnFill(f Fill) {
	s.log.Debug().
		Stringer("time", f.Time).
		Str("symbol", f.Symbol).
		Str("price", f.Price.String()).
		Int64("size", f.Size).
		Msg("fill confirmed")
	s.engine.OnFill(f)
}

func (s *PositionsStrategy) OnCancel(orderID string) {
	s.log.Info().Str("order_id", orderID).Msg("cancel confirmed")
	s.engine.OnCancel(orderID)
}

func (s *PositionsStrategy) OnSent(o Order) {
	s.log.Info().
		Str("order_id", o.ID).
		Str("symbol", o.Symbol).
		Str("type", string(o.Type)).
		Int64("size", o.Size).
		Msg("broker received order")
	s.engine.OnSent(o)
}

func (s *PositionsStrategy) onCompletelyFilled(o Order) {
	s.log.Info().
		Str("order_id", o.ID).
		Str("symbol", o.Symbol).
		Str("side", string(o.Side)).
		Int64("size", o.Size).
		Msg("order completely filled")
}

func (s *PositionsStrategy) Snapshot() EngineSnapshot {
	snap := s.engine.Snapshot()
	flags := s.sched.Flags()
	snap.Scheduler = &flags
	return snap
}
