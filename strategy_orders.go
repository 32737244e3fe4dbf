// FILE: strategy_orders.go
// Package main – Order management strategy.
//
// One market order and one resting limit order per symbol:
//   • ticks before MARKET_OPEN are ignored
//   • first tick after the open → market BUY of ENTRY_SIZE (Entered gate)
//                               + limit SELL of LIMIT_SIZE @ LIMIT_PRICE
//                                 (Limited gate; priced to stay unfilled)
//   • every timer → cancel orders working for ORDER_TIMEOUT_SEC or longer
// Every ack is logged so the order lifecycle can be read off the log.

package main

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type OrdersStrategy struct {
	*engine
	open       TimeOfDay
	marketSize int64
	limitSize  int64
	limitPrice decimal.Decimal
}

func NewOrdersStrategy(cfg Config, host Host, clock *StreamClock, log zerolog.Logger) *OrdersStrategy {
	s := &OrdersStrategy{
		engine:     newEngine("orders", cfg, host, clock, log),
		open:       cfg.MarketOpen,
		marketSize: cfg.EntrySize,
		limitSize:  cfg.LimitSize,
		limitPrice: cfg.LimitPrice,
	}
	s.orders.OnCompletelyFilled(func(o Order) {
		s.log.Info().
			Str("order_id", o.ID).
			Str("symbol", o.Symbol).
			Str("side", string(o.Side)).
			Int64("size", o.Size).
			Msg("order completely filled")
	})
	return s
}

func (s *OrdersStrategy) OnTimer(now TimeOfDay) {
	s.orders.SweepTimeouts(now)
}

func (s *OrdersStrategy) OnTick(t Tick) {
	s.engine.OnTick(t)
	if t.Time < s.open {
		return
	}
	sym := t.Symbol
	if !s.states.Lookup(sym).Entered {
		if s.invariant(s.states.MarkEntered(sym), sym, "market gate already closed") {
			IncEntry(s.name, "entry")
			_, _ = s.place(OrderRequest{Side: SideBuy, Type: TypeMarket, Symbol: sym, Size: s.marketSize})
		}
	}
	if !s.states.Lookup(sym).Limited {
		if s.invariant(s.states.MarkLimited(sym), sym, "limit gate already closed") {
			IncEntry(s.name, "limit")
			_, _ = s.place(OrderRequest{Side: SideSell, Type: TypeLimit, Symbol: sym, Size: s.limitSize, Price: s.limitPrice})
		}
	}
}

func (s *OrdersStrategy) OnFill(f Fill) {
	s.log.Info().
		Stringer("time", f.Time).
		Str("order_id", f.OrderID).
		Str("symbol", f.Symbol).
		Str("price", f.Price.String()).
		Int64("size", f.Size).
		Msg("fill confirmed")
	s.engine.OnFill(f)
}

func (s *OrdersStrategy) OnCancel(orderID string) {
	s.log.Info().Str("order_id", orderID).Msg("cancel confirmed")
	s.engine.OnCancel(orderID)
}

func (s *OrdersStrategy) OnSent(o Order) {
	s.log.Info().
		Str("order_id", o.ID).
		Str("symbol", o.Symbol).
		Str("type", string(o.Type)).
		Str("price", o.Price.String()).
		Int64("size", o.Size).
		Msg("broker received order")
	s.engine.OnSent(o)
}
