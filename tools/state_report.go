//go:build ignore

// tools/state_report.go
// CLI to inspect (and optionally slim) a strategy state dump.
//
// Usage:
//   go run tools/state_report.go -in strategy_state.json
//   go run tools/state_report.go -in strategy_state.json -strip-ticks -out slim.json
//   go run tools/state_report.go -in strategy_state.json -strip-ticks -inplace
//
// Notes:
// - Prints one line per symbol with its gates (entered/pyramided/limited) and
//   the last tick seen, then every order still working at dump time.
// - -strip-ticks drops the last-tick snapshots so a dump can be shared or
//   diffed; -inplace keeps a .bak of the input.
// - Types are redeclared here against the dump's JSON so the tool builds on
//   its own.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
)

// ----- Minimal shared types (compatible with the dump JSON) -----

type tick struct {
	Time string          `json:"time"`
	Last json.RawMessage `json:"last"`
}

type symbolState struct {
	Entered   bool  `json:"entered"`
	Pyramided bool  `json:"pyramided"`
	Limited   bool  `json:"limited"`
	LastTick  *tick `json:"last_tick,omitempty"`
}

type order struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Type     string          `json:"type"`
	Size     int64           `json:"size"`
	Price    json.RawMessage `json:"price,omitempty"`
	PlacedAt string          `json:"placed_at"`
}

type schedulerFlags struct {
	MiddayDone     bool `json:"midday_done"`
	EODFlattenDone bool `json:"eod_flatten_done"`
}

type snapshot struct {
	Strategy   string                  `json:"strategy"`
	Clock      string                  `json:"clock"`
	Symbols    map[string]*symbolState `json:"symbols"`
	OpenOrders []order                 `json:"open_orders"`
	Scheduler  *schedulerFlags         `json:"scheduler,omitempty"`
	TickCount  int64                   `json:"tick_count,omitempty"`
}

func main() {
	in := flag.String("in", "strategy_state.json", "path to a state dump")
	strip := flag.Bool("strip-ticks", false, "drop last-tick snapshots and write the result")
	out := flag.String("out", "", "where to write the stripped dump (ignored if -inplace)")
	inplace := flag.Bool("inplace", false, "overwrite the input (creates .bak)")
	flag.Parse()

	raw, err := os.ReadFile(*in)
	if err != nil {
		exitf("read input: %v", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		exitf("parse dump: %v", err)
	}

	report(snap)

	if !*strip {
		return
	}
	if !*inplace && *out == "" {
		exitf("-strip-ticks needs -out <file> or -inplace")
	}
	for _, st := range snap.Symbols {
		if st != nil {
			st.LastTick = nil
		}
	}
	outBytes, err := json.MarshalIndent(snap, "", " ")
	if err != nil {
		exitf("marshal: %v", err)
	}
	if *inplace {
		backup := *in + ".bak"
		if err := os.WriteFile(backup, raw, 0644); err != nil {
			exitf("create backup: %v", err)
		}
		if err := os.WriteFile(*in, outBytes, 0644); err != nil {
			exitf("write dump: %v", err)
		}
		fmt.Printf("Stripped in-place. Backup: %s\n", backup)
		return
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		exitf("ensure out dir: %v", err)
	}
	if err := os.WriteFile(*out, outBytes, 0644); err != nil {
		exitf("write out: %v", err)
	}
	fmt.Printf("Stripped dump written to: %s\n", *out)
}

func report(snap snapshot) {
	fmt.Printf("strategy=%s clock=%s symbols=%d open_orders=%d\n",
		snap.Strategy, snap.Clock, len(snap.Symbols), len(snap.OpenOrders))
	if snap.Scheduler != nil {
		fmt.Printf("scheduler midday_done=%v eod_flatten_done=%v\n", snap.Scheduler.MiddayDone, snap.Scheduler.EODFlattenDone)
	}
	if snap.TickCount > 0 {
		fmt.Printf("ticks=%d\n", snap.TickCount)
	}

	syms := make([]string, 0, len(snap.Symbols))
	for s := range snap.Symbols {
		syms = append(syms, s)
	}
	sort.Strings(syms)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tENTERED\tPYRAMIDED\tLIMITED\tLAST\tAT")
	for _, s := range syms {
		st := snap.Symbols[s]
		if st == nil {
			continue
		}
		last, at := "-", "-"
		if st.LastTick != nil {
			last, at = unquote(st.LastTick.Last), st.LastTick.Time
		}
		fmt.Fprintf(w, "%s\t%v\t%v\t%v\t%s\t%s\n", s, st.Entered, st.Pyramided, st.Limited, last, at)
	}
	w.Flush()

	if len(snap.OpenOrders) == 0 {
		return
	}
	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tSYMBOL\tSIDE\tTYPE\tSIZE\tPRICE\tPLACED")
	for _, o := range snap.OpenOrders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", o.ID, o.Symbol, o.Side, o.Type, o.Size, unquote(o.Price), o.PlacedAt)
	}
	w.Flush()
}

// unquote renders a decimal that may be encoded as a JSON string or number.
func unquote(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "-"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func exitf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "state_report: "+format+"\n", a...)
	os.Exit(1)
}
