// FILE: main.go
// Package main – Program entrypoint and HTTP/metrics server.
//
// Boot sequence:
//   1) loadBotEnv(-env)            – read .env (no shell exports required)
//   2) cfg := loadConfig(-config)  – defaults → YAML → env, validated
//   3) wire clock/paper host/strategy/dispatcher (+ journal when configured)
//   4) start Prometheus /healthz server on cfg.Port
//   5) run a CSV replay, a journal replay, or the live loop
//   6) dump strategy state to STATE_FILE
//
// Flags:
//   -strategy <name>       imbalance | orders | positions | timestamper
//   -replay <csv>          Replay an event CSV (see replay.go)
//   -from-journal <run>    Replay a journaled run ("latest" for the last one)
//   -config <yaml>         Optional YAML config overlay
//   -env <path>            .env file (default ./.env)
//   -force                 Run live even on a non-trading day
//
// Example:
//   go run . -strategy imbalance -replay testdata/session.csv

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// ---- Flags ----
	var strategyName, csvReplay, fromJournal, configPath, envPath string
	var force bool
	flag.StringVar(&strategyName, "strategy", "", "Strategy to run (overrides STRATEGY)")
	flag.StringVar(&csvReplay, "replay", "", "Path to event CSV (kind,date,time,symbol,...)")
	flag.StringVar(&fromJournal, "from-journal", "", "Journal run id to replay, or \"latest\"")
	flag.StringVar(&configPath, "config", "", "Optional YAML config file")
	flag.StringVar(&envPath, "env", ".env", "Path to .env file")
	flag.BoolVar(&force, "force", false, "Run live on non-trading days")
	flag.Parse()

	// ---- Environment & Config ----
	boot := newLogger(getEnv("LOG_LEVEL", "info"))
	loadBotEnv(envPath, boot)
	if strategyName != "" {
		_ = os.Setenv("STRATEGY", strategyName)
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("[BOOT] config")
	}
	log := newLogger(cfg.LogLevel)

	// ---- Wiring ----
	clock := &StreamClock{}
	host := NewPaperHost(clock, log)
	strat, err := newStrategy(cfg, host, clock, log)
	if err != nil {
		log.Fatal().Err(err).Msg("[BOOT] strategy")
	}

	opts := DispatcherOptions{
		Universe: cfg.Universe,
		Strict:   cfg.Strict,
		OnFault:  func(any) { dumpState(strat, cfg.StateFile, log) },
	}
	var journal *Journal
	if cfg.JournalPath != "" {
		journal, err = OpenJournal(cfg.JournalPath)
		if err != nil {
			log.Fatal().Err(err).Msg("[BOOT] journal")
		}
		defer journal.Close()
		opts.Journal = journal
		log.Info().Str("path", cfg.JournalPath).Str("run", journal.Run()).Msg("[BOOT] journaling events")
	}
	d := NewDispatcher(strat, clock, opts, log)
	d.AddObserver(host)
	host.Bind(d.Post)

	log.Info().
		Str("strategy", strat.Name()).
		Strs("universe", cfg.Universe).
		Bool("strict", cfg.Strict).
		Dur("order_timeout", cfg.OrderTimeout()).
		Msg("[BOOT] ready")

	// ---- HTTP metrics/health ----
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		log.Info().Int("port", cfg.Port).Msg("serving metrics on /metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	// ---- Run selected mode ----
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case csvReplay != "":
		events, err := loadEventsCSV(csvReplay)
		if err != nil {
			log.Fatal().Err(err).Msg("[REPLAY] load")
		}
		if _, err := runReplay(ctx, events, d, cfg.SessionEnd, log); err != nil {
			log.Error().Err(err).Msg("[REPLAY] interrupted")
		}
	case fromJournal != "":
		if journal == nil {
			log.Fatal().Msg("[REPLAY] -from-journal needs JOURNAL_PATH")
		}
		run := fromJournal
		if run == "latest" {
			if run, err = journal.LatestRun(ctx); err != nil {
				log.Fatal().Err(err).Msg("[REPLAY] journal")
			}
		}
		events, err := journal.LoadMarket(ctx, run)
		if err != nil {
			log.Fatal().Err(err).Msg("[REPLAY] journal load")
		}
		log.Info().Str("run", run).Int("events", len(events)).Msg("[REPLAY] from journal")
		if _, err := runReplay(ctx, events, d, cfg.SessionEnd, log); err != nil {
			log.Error().Err(err).Msg("[REPLAY] interrupted")
		}
	default:
		cal := newSessionCalendar(cfg.CalendarMIC, log)
		if err := runLive(ctx, cfg, d, cal, force, log); err != nil {
			log.Error().Err(err).Msg("[LIVE] stopped")
		}
	}

	dumpState(strat, cfg.StateFile, log)
	log.Info().
		Uint64("events", d.Seq()).
		Int("open_positions", len(host.Positions())).
		Str("realized_pnl", host.RealizedPnL().String()).
		Msg("done")

	// ---- Graceful shutdown for HTTP server ----
	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}
