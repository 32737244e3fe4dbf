//go:build ignore

// tools/journal_export.go
// CLI to export a journaled run as a replay CSV.
//
// Usage:
//   go run tools/journal_export.go -db journal.db -list
//   go run tools/journal_export.go -db journal.db -run latest -out data/session.csv
//
// Notes:
// - Only market events (tick, imbalance, close, timer) are exported; acks are
//   regenerated by the paper host on replay.
// - The CSV header is the one the replay loader wants:
//   kind,date,time,symbol,last,high,low,volume,side,net,paired,buy_volume,sell_volume,open,close
// - Payloads are read as opaque JSON so this tool does not depend on the
//   runtime's types.
package main

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var header = []string{"kind", "date", "time", "symbol", "last", "high", "low", "volume",
	"side", "net", "paired", "buy_volume", "sell_volume", "open", "close"}

// payload is the union of the market event JSON shapes.
type payload struct {
	Symbol       string          `json:"symbol"`
	Date         time.Time       `json:"date"`
	Time         string          `json:"time"`
	Last         json.RawMessage `json:"last"`
	High         json.RawMessage `json:"high"`
	Low          json.RawMessage `json:"low"`
	Open         json.RawMessage `json:"open"`
	Close        json.RawMessage `json:"close"`
	TotalVolume  int64           `json:"total_volume"`
	Side         string          `json:"side"`
	NetImbalance int64           `json:"net_imbalance"`
	PairedVolume int64           `json:"paired_volume"`
	BuyVolume    int64           `json:"buy_volume"`
	SellVolume   int64           `json:"sell_volume"`
}

func main() {
	dbPath := flag.String("db", "journal.db", "journal sqlite file")
	run := flag.String("run", "latest", "run id to export, or latest")
	out := flag.String("out", "", "output CSV (default stdout)")
	list := flag.Bool("list", false, "list runs and exit")
	flag.Parse()

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fail("open db: %v", err)
	}
	defer db.Close()

	if *list {
		rows, err := db.Query(`SELECT run, COUNT(*), MIN(at_ns), MAX(at_ns) FROM events GROUP BY run ORDER BY MIN(id)`)
		if err != nil {
			fail("list: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			var n, lo, hi int64
			if err := rows.Scan(&id, &n, &lo, &hi); err != nil {
				fail("scan: %v", err)
			}
			fmt.Printf("%s  events=%d  %s..%s\n", id, n, time.Duration(lo), time.Duration(hi))
		}
		return
	}

	if *run == "latest" {
		if err := db.QueryRow(`SELECT run FROM events ORDER BY id DESC LIMIT 1`).Scan(run); err != nil {
			fail("latest run: %v", err)
		}
	}

	rows, err := db.Query(`SELECT kind, payload FROM events WHERE run = ? AND kind IN ('tick','imbalance','close','timer') ORDER BY seq, id`, *run)
	if err != nil {
		fail("query: %v", err)
	}
	defer rows.Close()

	dst := os.Stdout
	if *out != "" {
		if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
			fail("mkdir: %v", err)
		}
		f, err := os.Create(*out)
		if err != nil {
			fail("create: %v", err)
		}
		defer f.Close()
		dst = f
	}
	w := csv.NewWriter(dst)
	_ = w.Write(header)

	n := 0
	for rows.Next() {
		var kind, raw string
		if err := rows.Scan(&kind, &raw); err != nil {
			fail("scan: %v", err)
		}
		var p payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			fail("payload: %v", err)
		}
		if err := w.Write(record(kind, p)); err != nil {
			fail("write: %v", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		fail("rows: %v", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fail("flush: %v", err)
	}
	fmt.Fprintf(os.Stderr, "exported run %s: %d events\n", *run, n)
}

func record(kind string, p payload) []string {
	date := ""
	if !p.Date.IsZero() {
		date = p.Date.Format("2006-01-02")
	}
	rec := map[string]string{"kind": kind, "date": date, "time": p.Time, "symbol": p.Symbol}
	switch kind {
	case "tick":
		rec["last"], rec["high"], rec["low"] = num(p.Last), num(p.High), num(p.Low)
		rec["volume"] = fmt.Sprint(p.TotalVolume)
	case "imbalance":
		rec["side"] = p.Side
		rec["net"] = fmt.Sprint(p.NetImbalance)
		rec["paired"] = fmt.Sprint(p.PairedVolume)
		rec["buy_volume"] = fmt.Sprint(p.BuyVolume)
		rec["sell_volume"] = fmt.Sprint(p.SellVolume)
	case "close":
		rec["open"], rec["high"], rec["low"], rec["close"] = num(p.Open), num(p.High), num(p.Low), num(p.Close)
	}
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = rec[h]
	}
	return out
}

// num unquotes a decimal that was marshalled as a JSON string.
func num(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
