// FILE: live.go
// Package main – Live loop: websocket feed + wall-clock session timer.
//
// runLive drives the dispatcher in real time:
//   • Refuse to start on a non-trading day (exchange calendar) unless forced.
//   • Feed goroutine: market events from FEED_URL into the inbox.
//   • Timer goroutine: one Timer per wall-clock second, converted to exchange
//     session time, into the inbox. Stops the run once SESSION_END passes.
//   • The calling goroutine runs the dispatcher; it is the only one that
//     touches strategy state.

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

func runLive(ctx context.Context, cfg Config, d *Dispatcher, cal *SessionCalendar, force bool, log zerolog.Logger) error {
	now := time.Now()
	if !cal.IsTradingDay(now) {
		if !force {
			return fmt.Errorf("%s is not a trading day on %s (use -force)", cal.SessionDate(now).Format("2006-01-02"), cfg.CalendarMIC)
		}
		log.Warn().Str("date", cal.SessionDate(now).Format("2006-01-02")).Msg("[LIVE] not a trading day; forced")
	}
	log.Info().
		Str("strategy", cfg.Strategy).
		Strs("universe", cfg.Universe).
		Stringer("session_time", cal.TimeOfDay(now)).
		Bool("open", cal.IsOpen(now)).
		Msg("[LIVE] starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if cfg.FeedURL != "" {
		feed := NewWSFeed(cfg.FeedURL, d.Inbox(), log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("[LIVE] feed stopped")
			}
		}()
	} else {
		log.Warn().Msg("[LIVE] FEED_URL empty; timers only")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSessionTimer(ctx, cal, cfg.SessionEnd, d.Inbox(), cancel)
	}()

	err := d.Run(ctx)
	cancel()
	wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runSessionTimer sends a Timer at each wall-clock second boundary. Each timer
// carries the session second that just ended. It calls stop once that second
// reaches end.
func runSessionTimer(ctx context.Context, cal *SessionCalendar, end TimeOfDay, out chan<- Event, stop func()) {
	// align to the next whole second
	wait := time.Until(time.Now().Truncate(time.Second).Add(time.Second))
	select {
	case <-ctx.Done():
		return
	case <-time.After(wait):
	}
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		tod := cal.TimeOfDay(time.Now()).Round(time.Second)
		select {
		case out <- Timer{Time: tod}:
		case <-ctx.Done():
			return
		}
		if tod >= end {
			stop()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
