// FILE: journal.go
// Package main – SQLite event journal.
//
// Every event the dispatcher accepts is appended as one row:
//   events(id, run, seq, kind, at_ns, symbol, payload JSON)
// A run is one process lifetime (uuid). Replaying a run feeds only its market
// events (tick/imbalance/close/timer) back through a fresh dispatcher; the
// paper host regenerates the acknowledgements.

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run     TEXT    NOT NULL,
	seq     INTEGER NOT NULL,
	kind    TEXT    NOT NULL,
	at_ns   INTEGER NOT NULL,
	symbol  TEXT    NOT NULL DEFAULT '',
	payload TEXT    NOT NULL,
	created INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS events_run_seq ON events(run, seq);
`

// JournalEntry is one stored event.
type JournalEntry struct {
	Seq    uint64
	Kind   EventKind
	At     TimeOfDay
	Symbol string
	Event  Event
}

type Journal struct {
	db  *sql.DB
	ins *sql.Stmt
	run string
}

// OpenJournal opens (creating if needed) the journal at path and starts a new run.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal %s: %w", path, err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode = WAL;", "PRAGMA synchronous = NORMAL;"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	ins, err := db.Prepare(`INSERT INTO events (run, seq, kind, at_ns, symbol, payload, created) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return &Journal{db: db, ins: ins, run: uuid.New().String()}, nil
}

// Run is the id of the run this handle appends to.
func (j *Journal) Run() string { return j.run }

func (j *Journal) Append(seq uint64, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Kind(), err)
	}
	sym, _ := eventSymbol(ev)
	_, err = j.ins.Exec(j.run, int64(seq), string(ev.Kind()), int64(ev.At()), sym, string(payload), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert seq %d: %w", seq, err)
	}
	return nil
}

// Runs lists run ids, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT run FROM events GROUP BY run ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRun is the most recent run with events other than the current one.
func (j *Journal) LatestRun(ctx context.Context) (string, error) {
	runs, err := j.Runs(ctx)
	if err != nil {
		return "", err
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i] != j.run {
			return runs[i], nil
		}
	}
	return "", errors.New("journal has no previous runs")
}

// Load returns every entry of run in sequence order.
func (j *Journal) Load(ctx context.Context, run string) ([]JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, kind, at_ns, symbol, payload FROM events WHERE run = ? ORDER BY seq, id`, run)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", run, err)
	}
	defer rows.Close()
	var out []JournalEntry
	for rows.Next() {
		var (
			seq     int64
			kind    string
			at      int64
			sym     string
			payload string
		)
		if err := rows.Scan(&seq, &kind, &at, &sym, &payload); err != nil {
			return nil, err
		}
		ev, err := decodeEvent(EventKind(kind), json.RawMessage(payload))
		if err != nil {
			return nil, fmt.Errorf("seq %d: %w", seq, err)
		}
		out = append(out, JournalEntry{Seq: uint64(seq), Kind: EventKind(kind), At: TimeOfDay(at), Symbol: sym, Event: ev})
	}
	return out, rows.Err()
}

// LoadMarket returns only the market events of run, in sequence order.
func (j *Journal) LoadMarket(ctx context.Context, run string) ([]Event, error) {
	entries, err := j.Load(ctx, run)
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(entries))
	for _, e := range entries {
		if e.Kind.IsMarket() {
			out = append(out, e.Event)
		}
	}
	return out, nil
}

func (j *Journal) Close() error {
	if j.ins != nil {
		j.ins.Close()
	}
	return j.db.Close()
}
