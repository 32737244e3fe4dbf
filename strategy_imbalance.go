// FILE: strategy_imbalance.go
// Package main – Closing-auction imbalance strategy.
//
// Late in the session (from IMBALANCE_START, 15:30 by default) the exchange
// publishes auction imbalances. For each symbol we have tick data for:
//   • net >= log threshold  → one diagnostic record
//   • net >= trade threshold, daily range non-degenerate, not yet entered:
//       BUY  imbalance and last in the upper part of the range (r >= 0.60)
//         → market BUY now + MOC SELL of the same size
//       SELL imbalance and last in the lower part of the range (r <= 0.40)
//         → market SELL now + MOC BUY of the same size
// where r = (last-low)/(high-low). At most one entry per symbol per session.
//
// Both thresholds default to 100,000 and can be raised independently.

package main

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type ImbalanceStrategy struct {
	*engine
	start          TimeOfDay
	logThreshold   int64
	tradeThreshold int64
	buyRangeMin    decimal.Decimal
	sellRangeMax   decimal.Decimal
	size           int64
}

func NewImbalanceStrategy(cfg Config, host Host, clock *StreamClock, log zerolog.Logger) *ImbalanceStrategy {
	return &ImbalanceStrategy{
		engine:         newEngine("imbalance", cfg, host, clock, log),
		start:          cfg.ImbalanceStart,
		logThreshold:   cfg.ImbalanceLogThreshold,
		tradeThreshold: cfg.ImbalanceTradeThreshold,
		buyRangeMin:    cfg.BuyRangeMin,
		sellRangeMax:   cfg.SellRangeMax,
		size:           cfg.EntrySize,
	}
}

func (s *ImbalanceStrategy) OnImbalance(imb Imbalance) {
	if imb.Time < s.start {
		return
	}
	if imb.NetImbalance >= s.logThreshold {
		mtxImbalancesLogged.Inc()
		s.log.Info().
			Time("date", imb.Date).
			Stringer("time", imb.Time).
			Str("symbol", imb.Symbol).
			Str("side", string(imb.Side)).
			Int64("paired", imb.PairedVolume).
			Int64("net", imb.NetImbalance).
			Int64("buy_qty", imb.BuyVolume).
			Int64("sell_qty", imb.SellVolume).
			Msg("imbalance")
	}
	if imb.NetImbalance < s.tradeThreshold {
		return
	}

	st := s.states.Lookup(imb.Symbol)
	if st.LastTick == nil || st.Entered {
		return
	}
	tk := *st.LastTick
	rng := tk.High.Sub(tk.Low)
	if !rng.IsPositive() {
		return
	}
	// (last-low)/(high-low) >= k  ⇔  last-low >= k·(high-low) for high > low
	pos := tk.Last.Sub(tk.Low)
	switch imb.Side {
	case ImbalanceBuy:
		if pos.GreaterThanOrEqual(s.buyRangeMin.Mul(rng)) {
			s.enter(imb, SideBuy, pos.Div(rng))
		}
	case ImbalanceSell:
		if pos.LessThanOrEqual(s.sellRangeMax.Mul(rng)) {
			s.enter(imb, SideSell, pos.Div(rng))
		}
	}
}

// enter closes the gate first, then sends the entry and its MOC exit.
// If the entry is rejected the exit is not sent; the gate stays closed.
func (s *ImbalanceStrategy) enter(imb Imbalance, side OrderSide, ratio decimal.Decimal) {
	if !s.invariant(s.states.MarkEntered(imb.Symbol), imb.Symbol, "entry gate already closed") {
		return
	}
	IncEntry(s.name, "entry")
	s.log.Info().
		Str("symbol", imb.Symbol).
		Str("side", string(side)).
		Str("range_ratio", ratio.StringFixed(4)).
		Int64("net", imb.NetImbalance).
		Msg("imbalance entry")
	if _, err := s.place(OrderRequest{Side: side, Type: TypeMarket, Symbol: imb.Symbol, Size: s.size}); err != nil {
		return
	}
	_, _ = s.place(OrderRequest{Side: side.Opposite(), Type: TypeMarketOnClose, Symbol: imb.Symbol, Size: s.size})
}

func (s *ImbalanceStrategy) OnClose(bar OHLC) {
	s.log.Info().
		Time("date", bar.Date).
		Stringer("time", bar.Time).
		Str("symbol", bar.Symbol).
		Str("open", bar.Open.String()).
		Str("high", bar.High.String()).
		Str("low", bar.Low.String()).
		Str("close", bar.Close.String()).
		Msg("close")
}
