// FILE: events.go
// Package main – Event model shared by the dispatcher, strategies and drivers.
//
// Everything the host delivers is an Event:
//   • market side: Tick, Imbalance, OHLC (close bar), Timer (end of each second)
//   • broker side: Fill, CancelAck, SentAck
//
// Times are session time-of-day (TimeOfDay), never wall-clock, so a replayed
// stream produces the same decisions as the live one.

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimeOfDay is the offset from session midnight.
type TimeOfDay time.Duration

// At builds a TimeOfDay from hour, minute and second.
func At(h, m, s int) TimeOfDay {
	return TimeOfDay(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

// ParseTimeOfDay accepts "15:04", "15:04:05" and "15:04:05.000".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return At(ts.Hour(), ts.Minute(), ts.Second()) + TimeOfDay(ts.Nanosecond()), nil
		}
	}
	return 0, fmt.Errorf("bad time of day: %q", s)
}

func (t TimeOfDay) Add(d time.Duration) TimeOfDay { return t + TimeOfDay(d) }

// Truncate rounds down to a multiple of d.
func (t TimeOfDay) Truncate(d time.Duration) TimeOfDay {
	return TimeOfDay(time.Duration(t).Truncate(d))
}

// Round rounds to the nearest multiple of d.
func (t TimeOfDay) Round(d time.Duration) TimeOfDay {
	return TimeOfDay(time.Duration(t).Round(d))
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	if ms != 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ImbalanceSide is the auction pressure direction.
type ImbalanceSide string

const (
	ImbalanceBuy  ImbalanceSide = "BUY"
	ImbalanceSell ImbalanceSide = "SELL"
	ImbalanceNone ImbalanceSide = "NONE"
)

func parseImbalanceSide(s string) ImbalanceSide {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B":
		return ImbalanceBuy
	case "SELL", "S":
		return ImbalanceSell
	default:
		return ImbalanceNone
	}
}

// EventKind tags events on the wire, in the journal and in metrics.
type EventKind string

const (
	KindTick      EventKind = "tick"
	KindImbalance EventKind = "imbalance"
	KindClose     EventKind = "close"
	KindTimer     EventKind = "timer"
	KindFill      EventKind = "fill"
	KindCancel    EventKind = "cancel"
	KindSent      EventKind = "sent"
)

// IsMarket reports whether the kind comes from the feed side of the host
// (as opposed to a broker acknowledgement).
func (k EventKind) IsMarket() bool {
	switch k {
	case KindTick, KindImbalance, KindClose, KindTimer:
		return true
	}
	return false
}

// Event is anything the dispatcher can route.
type Event interface {
	Kind() EventKind
	At() TimeOfDay
}

// Tick is the latest quote/trade snapshot for a symbol.
type Tick struct {
	Symbol      string          `json:"symbol"`
	Time        TimeOfDay       `json:"time"`
	Last        decimal.Decimal `json:"last"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	TotalVolume int64           `json:"total_volume"`
}

func (Tick) Kind() EventKind { return KindTick }
func (t Tick) At() TimeOfDay { return t.Time }

// Imbalance is one auction-imbalance message.
type Imbalance struct {
	Symbol       string        `json:"symbol"`
	Date         time.Time     `json:"date"`
	Time         TimeOfDay     `json:"time"`
	Side         ImbalanceSide `json:"side"`
	NetImbalance int64         `json:"net_imbalance"`
	PairedVolume int64         `json:"paired_volume"`
	BuyVolume    int64         `json:"buy_volume"`
	SellVolume   int64         `json:"sell_volume"`
}

func (Imbalance) Kind() EventKind { return KindImbalance }
func (i Imbalance) At() TimeOfDay { return i.Time }

// OHLC is a daily/periodic close bar.
type OHLC struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Time   TimeOfDay       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
}

func (OHLC) Kind() EventKind { return KindClose }
func (o OHLC) At() TimeOfDay { return o.Time }

// Timer fires at the end of every session second.
type Timer struct {
	Time TimeOfDay `json:"time"`
}

func (Timer) Kind() EventKind { return KindTimer }
func (t Timer) At() TimeOfDay { return t.Time }

// Fill is one (possibly partial) execution report.
type Fill struct {
	OrderID string          `json:"order_id"`
	Symbol  string          `json:"symbol"`
	Price   decimal.Decimal `json:"price"`
	Size    int64           `json:"size"`
	Time    TimeOfDay       `json:"time"`
}

func (Fill) Kind() EventKind { return KindFill }
func (f Fill) At() TimeOfDay { return f.Time }

// CancelAck confirms the broker cancelled an order.
type CancelAck struct {
	OrderID string    `json:"order_id"`
	Time    TimeOfDay `json:"time"`
}

func (CancelAck) Kind() EventKind { return KindCancel }
func (c CancelAck) At() TimeOfDay { return c.Time }

// SentAck confirms the broker received an order.
type SentAck struct {
	Order Order     `json:"order"`
	Time  TimeOfDay `json:"time"`
}

func (SentAck) Kind() EventKind { return KindSent }
func (s SentAck) At() TimeOfDay { return s.Time }

// eventSymbol returns the symbol of symbol-scoped market events.
func eventSymbol(ev Event) (string, bool) {
	switch e := ev.(type) {
	case Tick:
		return e.Symbol, true
	case Imbalance:
		return e.Symbol, true
	case OHLC:
		return e.Symbol, true
	}
	return "", false
}

// decodeEvent turns a (kind, JSON payload) pair back into an Event.
// Used by the journal loader and the websocket feed.
func decodeEvent(kind EventKind, raw json.RawMessage) (Event, error) {
	var (
		ev  Event
		err error
	)
	switch kind {
	case KindTick:
		var e Tick
		err = json.Unmarshal(raw, &e)
		ev = e
	case KindImbalance:
		var e Imbalance
		err = json.Unmarshal(raw, &e)
		ev = e
	case KindClose:
		var e OHLC
		err = json.Unmarshal(raw, &e)
		ev = e
	case KindTimer:
		var e Timer
		err = json.Unmarshal(raw, &e)
		ev = e
	case KindFill:
		var e Fill
		err = json.Unmarshal(raw, &e)
		ev = e
	case KindCancel:
		var e CancelAck
		err = json.Unmarshal(raw, &e)
		ev = e
	case KindSent:
		var e SentAck
		err = json.Unmarshal(raw, &e)
		ev = e
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return ev, nil
}
