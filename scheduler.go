// FILE: scheduler.go
// Package main – One-shot session actions driven by the timer.
//
// Per session the scheduler walks Idle → ReportedMidday → Flattened:
//   • at MIDDAY_AT it logs one record per open position
//   • at FLATTEN_AT it cancels every open order and closes every position
// Each action is guarded by its flag, so timers that keep firing past the
// threshold do nothing more.

package main

import (
	"github.com/rs/zerolog"
)

// SchedulerFlags are set once per session and never cleared.
type SchedulerFlags struct {
	MiddayDone     bool `json:"midday_done"`
	EODFlattenDone bool `json:"eod_flatten_done"`
}

// SchedulerState names where the session is.
type SchedulerState string

const (
	StateIdle           SchedulerState = "Idle"
	StateReportedMidday SchedulerState = "ReportedMidday"
	StateFlattened      SchedulerState = "Flattened"
)

type Scheduler struct {
	host      Host
	middayAt  TimeOfDay
	flattenAt TimeOfDay
	flags     SchedulerFlags
	log       zerolog.Logger
}

func NewScheduler(host Host, middayAt, flattenAt TimeOfDay, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		host:      host,
		middayAt:  middayAt,
		flattenAt: flattenAt,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Flags() SchedulerFlags { return s.flags }

func (s *Scheduler) State() SchedulerState {
	switch {
	case s.flags.EODFlattenDone:
		return StateFlattened
	case s.flags.MiddayDone:
		return StateReportedMidday
	default:
		return StateIdle
	}
}

// OnTimer evaluates both thresholds against stream time now.
func (s *Scheduler) OnTimer(now TimeOfDay) {
	if !s.flags.MiddayDone && now >= s.middayAt {
		s.flags.MiddayDone = true
		s.reportPositions(now)
	}
	if !s.flags.EODFlattenDone && now >= s.flattenAt {
		s.flags.EODFlattenDone = true
		s.flatten(now)
	}
}

func (s *Scheduler) reportPositions(now TimeOfDay) {
	mtxSchedulerActions.WithLabelValues("midday_report").Inc()
	positions := s.host.Positions()
	s.log.Info().Stringer("time", now).Int("positions", len(positions)).Msg("publishing mid-day update")
	for _, p := range positions {
		s.log.Info().
			Str("symbol", p.Symbol).
			Str("side", string(p.Side)).
			Int64("size", p.OpenSize).
			Str("avg_price", p.AvgPrice.String()).
			Str("open_pnl", p.OpenPnL.String()).
			Msg("position")
	}
}

func (s *Scheduler) flatten(now TimeOfDay) {
	mtxSchedulerActions.WithLabelValues("eod_flatten").Inc()
	s.log.Info().Stringer("time", now).Msg("flattening all positions")
	if err := s.host.CancelAllOpenOrders(); err != nil {
		mtxHostErrors.WithLabelValues("cancel_all").Inc()
		s.log.Error().Err(err).Msg("cancel all open orders failed")
	}
	if err := s.host.CloseAllOpenPositions(); err != nil {
		mtxHostErrors.WithLabelValues("close_all").Inc()
		s.log.Error().Err(err).Msg("close all open positions failed")
	}
}
