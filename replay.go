// FILE: replay.go
// Package main – CSV event loader and deterministic replay driver.
//
// What's here:
//   • loadEventsCSV(path) -> []Event : one market event per row
//       kind,date,time,symbol,last,high,low,volume,side,net,paired,
//       buy_volume,sell_volume,open,close
//   • runReplay(ctx, events, dispatcher, sessionEnd)
//       - delivers events in time order on the calling goroutine
//       - when the stream has no timer rows, synthesizes one timer at the
//         end of every second (timer T fires after all events before T) and
//         keeps ticking until sessionEnd so scheduled actions still run
//
// Notes:
//   • kind is tick|imbalance|close|timer; rows with a missing required
//     field are skipped.
//   • Unknown columns are ignored; headers are case-insensitive.
//   • time accepts 15:04, 15:04:05 or 15:04:05.000; date is optional.

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// loadEventsCSV reads the event CSV at path.
func loadEventsCSV(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readEventsCSV(f)
}

func readEventsCSV(src io.Reader) ([]Event, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var out []Event
	var headers []string
	rowIdx := 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		rowIdx++
		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}
		if ev, ok := parseEventRow(row); ok {
			out = append(out, ev)
		}
	}

	sortEvents(out)
	return out, nil
}

func parseEventRow(row map[string]string) (Event, bool) {
	tod, err := ParseTimeOfDay(first(row, "time"))
	if err != nil {
		return nil, false
	}
	kind := EventKind(strings.ToLower(first(row, "kind", "type")))
	if kind == KindTimer {
		return Timer{Time: tod}, true
	}
	sym := strings.ToUpper(first(row, "symbol", "sym"))
	if sym == "" {
		return nil, false
	}
	date, _ := parseDateFlexible(first(row, "date"))

	switch kind {
	case KindTick:
		last, ok := dec(first(row, "last", "price"))
		if !ok {
			return nil, false
		}
		high, ok := dec(first(row, "high"))
		if !ok {
			high = last
		}
		low, ok := dec(first(row, "low"))
		if !ok {
			low = last
		}
		return Tick{Symbol: sym, Time: tod, Last: last, High: high, Low: low, TotalVolume: i64(first(row, "volume", "vol"))}, true
	case KindImbalance:
		net := first(row, "net", "net_imbalance")
		if net == "" {
			return nil, false
		}
		return Imbalance{
			Symbol:       sym,
			Date:         date,
			Time:         tod,
			Side:         parseImbalanceSide(first(row, "side")),
			NetImbalance: i64(net),
			PairedVolume: i64(first(row, "paired", "paired_volume")),
			BuyVolume:    i64(first(row, "buy_volume", "buy_qty")),
			SellVolume:   i64(first(row, "sell_volume", "sell_qty")),
		}, true
	case KindClose:
		c, ok := dec(first(row, "close"))
		if !ok {
			return nil, false
		}
		o, _ := dec(first(row, "open"))
		h, _ := dec(first(row, "high"))
		l, _ := dec(first(row, "low"))
		return OHLC{Symbol: sym, Date: date, Time: tod, Open: o, High: h, Low: l, Close: c}, true
	}
	return nil, false
}

// parseDateFlexible supports 2006-01-02 and 01/02/2006.
func parseDateFlexible(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "01/02/2006"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date: %s", s)
}

func dec(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func i64(s string) int64 {
	v, _ := strconv.ParseInt(strings.ReplaceAll(s, "_", ""), 10, 64)
	return v
}

// sortEvents orders by session time; ties keep file order.
func sortEvents(evs []Event) {
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].At() < evs[j].At() })
}

// first returns the first non-empty value for keys in m.
func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

// ReplayStats summarizes one replay.
type ReplayStats struct {
	Events int
	Timers int // synthesized
}

// runReplay drives d with events on the calling goroutine.
func runReplay(ctx context.Context, events []Event, d *Dispatcher, sessionEnd TimeOfDay, log zerolog.Logger) (ReplayStats, error) {
	var st ReplayStats
	synth := true
	for _, ev := range events {
		if ev.Kind() == KindTimer {
			synth = false
			break
		}
	}

	var next TimeOfDay
	if len(events) > 0 {
		next = events[0].At().Truncate(time.Second).Add(time.Second)
	}
	fireUntil := func(t TimeOfDay) {
		for ; next <= t; next = next.Add(time.Second) {
			d.Deliver(Timer{Time: next})
			st.Timers++
		}
	}

	for i, ev := range events {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return st, err
			}
		}
		if synth {
			fireUntil(ev.At())
		}
		d.Deliver(ev)
		st.Events++
	}
	if synth && len(events) > 0 {
		fireUntil(sessionEnd)
	}
	log.Info().Int("events", st.Events).Int("timers", st.Timers).Uint64("seq", d.Seq()).Msg("[REPLAY] complete")
	return st, nil
}
