// FILE: strategy.go
// Package main – The handler surface a strategy exposes to the host.
//
// The host holds one Strategy per instance and calls exactly one handler at a
// time, in event arrival order (the dispatcher guarantees this). Handlers
// must return promptly and must not panic past their boundary; the dispatcher
// recovers anyway, but a recovered panic turns the event into a no-op.
//
// Implementations:
//   • imbalance   – closing-auction imbalance entries with MOC exits
//   • orders      – one market + one resting limit per symbol, 15s timeout sweep
//   • positions   – enter once, pyramid once, midday report, EOD flatten
//   • timestamper – logs timers and ticks; never trades

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Strategy is the capability interface the host drives.
type Strategy interface {
	Name() string
	OnTimer(now TimeOfDay)
	OnTick(t Tick)
	OnImbalance(imb Imbalance)
	OnClose(bar OHLC)
	OnFill(f Fill)
	OnCancel(orderID string)
	OnSent(o Order)
}

// strategyFactory builds a strategy bound to a host and the stream clock.
type strategyFactory func(cfg Config, host Host, clock *StreamClock, log zerolog.Logger) Strategy

var strategies = map[string]strategyFactory{
	"imbalance": func(cfg Config, host Host, clock *StreamClock, log zerolog.Logger) Strategy {
		return NewImbalanceStrategy(cfg, host, clock, log)
	},
	"orders": func(cfg Config, host Host, clock *StreamClock, log zerolog.Logger) Strategy {
		return NewOrdersStrategy(cfg, host, clock, log)
	},
	"positions": func(cfg Config, host Host, clock *StreamClock, log zerolog.Logger) Strategy {
		return NewPositionsStrategy(cfg, host, clock, log)
	},
	"timestamper": func(cfg Config, host Host, clock *StreamClock, log zerolog.Logger) Strategy {
		return NewTimestamper(cfg, host, clock, log)
	},
}

// strategyNames lists registered strategies, sorted.
func strategyNames() []string {
	out := make([]string, 0, len(strategies))
	for name := range strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// newStrategy looks up cfg.Strategy in the registry.
func newStrategy(cfg Config, host Host, clock *StreamClock, log zerolog.Logger) (Strategy, error) {
	f, ok := strategies[strings.ToLower(cfg.Strategy)]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (have %s)", cfg.Strategy, strings.Join(strategyNames(), ", "))
	}
	return f(cfg, host, clock, log), nil
}
