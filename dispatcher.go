// FILE: dispatcher.go
// Package main – Single-writer event dispatcher.
//
// Every event the host produces (ticks, imbalances, close bars, timers and
// broker acknowledgements) goes through one Dispatcher, which calls exactly
// one strategy handler at a time:
//   • feed/timer goroutines send into Inbox(); Run drains it
//   • replay calls Deliver directly from the driving goroutine
//   • host acks raised inside a handler go through Post and wait in a FIFO
//     backlog until the current handler returns
//
// Before routing, each event gets a sequence number, is dropped when it names a
// symbol outside the universe, advances the shared StreamClock (market events
// only), is appended to the journal, and is shown to observers (the
// paper host). A handler panic is recovered and counted; in strict mode the
// state is dumped and the panic re-raised.

package main

import (
	"context"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// StreamClock is the session time of the last market event delivered.
// It never moves backwards.
type StreamClock struct {
	now TimeOfDay
}

func (c *StreamClock) Now() TimeOfDay { return c.now }

// Advance moves the clock to t when t is later than now.
func (c *StreamClock) Advance(t TimeOfDay) {
	if t > c.now {
		c.now = t
	}
}

// EventJournal persists dispatched events (journal.go).
type EventJournal interface {
	Append(seq uint64, ev Event) error
}

// Observer sees every accepted event before the strategy does.
type Observer interface {
	Observe(ev Event)
}

// DispatcherOptions are the optional collaborators of a Dispatcher.
type DispatcherOptions struct {
	Universe  []string     // empty = accept every symbol
	Journal   EventJournal // nil disables journaling
	Strict    bool         // re-panic after a handler fault
	OnFault   func(r any)  // called before a strict re-panic (state dump)
	InboxSize int
}

type Dispatcher struct {
	strat     Strategy
	clock     *StreamClock
	universe  map[string]struct{}
	journal   EventJournal
	observers []Observer
	strict    bool
	onFault   func(r any)
	log       zerolog.Logger

	inbox   chan Event
	backlog []Event
	busy    bool
	seq     uint64
}

func NewDispatcher(strat Strategy, clock *StreamClock, opts DispatcherOptions, log zerolog.Logger) *Dispatcher {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 1024
	}
	d := &Dispatcher{
		strat:   strat,
		clock:   clock,
		journal: opts.Journal,
		strict:  opts.Strict,
		onFault: opts.OnFault,
		log:     log.With().Str("component", "dispatcher").Logger(),
		inbox:   make(chan Event, opts.InboxSize),
	}
	if len(opts.Universe) > 0 {
		d.universe = make(map[string]struct{}, len(opts.Universe))
		for _, s := range opts.Universe {
			d.universe[s] = struct{}{}
		}
	}
	return d
}

// AddObserver registers o; observers run in registration order.
func (d *Dispatcher) AddObserver(o Observer) { d.observers = append(d.observers, o) }

// Inbox is where other goroutines send events.
func (d *Dispatcher) Inbox() chan<- Event { return d.inbox }

// Seq is the number of events processed so far.
func (d *Dispatcher) Seq() uint64 { return d.seq }

// Run drains the inbox until ctx is cancelled. It MUST be the only goroutine
// calling Deliver.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info().Str("strategy", d.strat.Name()).Msg("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Uint64("seq", d.seq).Msg("dispatcher stopping")
			return ctx.Err()
		case ev := <-d.inbox:
			d.Deliver(ev)
		}
	}
}

// Deliver processes ev and then everything posted while it ran.
// Called re-entrantly (from a handler), it behaves like Post.
func (d *Dispatcher) Deliver(ev Event) {
	d.backlog = append(d.backlog, ev)
	if d.busy {
		return
	}
	d.busy = true
	defer func() {
		// also runs on a strict re-panic: drop what the failed handler queued
		d.busy = false
		d.backlog = nil
	}()
	for len(d.backlog) > 0 {
		next := d.backlog[0]
		d.backlog[0] = nil
		d.backlog = d.backlog[1:]
		d.process(next)
	}
}

// Post queues an event raised on the dispatcher goroutine (host acks).
func (d *Dispatcher) Post(ev Event) { d.Deliver(ev) }

func (d *Dispatcher) process(ev Event) {
	d.seq++
	kind := ev.Kind()
	if sym, ok := eventSymbol(ev); ok && d.universe != nil {
		if _, in := d.universe[sym]; !in {
			return
		}
	}
	if kind.IsMarket() {
		d.clock.Advance(ev.At())
	}
	if d.journal != nil {
		if err := d.journal.Append(d.seq, ev); err != nil {
			mtxHostErrors.WithLabelValues("journal").Inc()
			d.log.Error().Err(err).Uint64("seq", d.seq).Msg("journal append failed")
		}
	}
	mtxEvents.WithLabelValues(string(kind)).Inc()
	d.route(ev)
}

func (d *Dispatcher) route(ev Event) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		mtxHandlerFaults.WithLabelValues(string(ev.Kind())).Inc()
		d.log.Error().
			Interface("panic", r).
			Str("kind", string(ev.Kind())).
			Uint64("seq", d.seq).
			Stringer("at", ev.At()).
			Bytes("stack", debug.Stack()).
			Msg("handler panic recovered; event dropped")
		if d.strict {
			if d.onFault != nil {
				d.onFault(r)
			}
			panic(r)
		}
	}()

	for _, o := range d.observers {
		o.Observe(ev)
	}

	switch e := ev.(type) {
	case Tick:
		d.strat.OnTick(e)
	case Imbalance:
		d.strat.OnImbalance(e)
	case OHLC:
		d.strat.OnClose(e)
	case Timer:
		d.strat.OnTimer(e.Time)
	case Fill:
		d.strat.OnFill(e)
	case CancelAck:
		d.strat.OnCancel(e.OrderID)
	case SentAck:
		d.strat.OnSent(e.Order)
	default:
		d.log.Warn().Str("kind", string(ev.Kind())).Msg("unknown event type")
	}
}
