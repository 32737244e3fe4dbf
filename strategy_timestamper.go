// FILE: strategy_timestamper.go
// Package main – Feed timing logger. Logs every timer and tick at info; never trades.

package main

import (
	"github.com/rs/zerolog"
)

type Timestamper struct {
	*engine
	ticks int64
}

func NewTimestamper(cfg Config, host Host, clock *StreamClock, log zerolog.Logger) *Timestamper {
	return &Timestamper{engine: newEngine("timestamper", cfg, host, clock, log)}
}

func (s *Timestamper) OnTimer(now TimeOfDay) {
	s.log.Info().Stringer("time", now).Msg("timer")
}

func (s *Timestamper) OnTick(t Tick) {
	s.engine.OnTick(t)
	s.ticks++
	s.log.Info().
		Stringer("time", t.Time).
		Str("symbol", t.Symbol).
		Str("last", t.Last.String()).
		Int64("volume", t.TotalVolume).
		Int64("total_ticks", s.ticks).
		Msg("tick")
}

// TickCount is the number of ticks seen so far.
func (s *Timestamper) TickCount() int64 { return s.ticks }

func (s *Timestamper) Snapshot() EngineSnapshot {
	snap := s.engine.Snapshot()
	snap.TickCount = s.ticks
	return snap
}
