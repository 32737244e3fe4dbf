package main

import (
	"context"
	"path/filepath"
	"testing"
)

func TestJournalRoundTripThroughDispatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	r := &recStrategy{}
	d := NewDispatcher(r, &StreamClock{}, DispatcherOptions{Journal: j}, testLogger())
	d.Deliver(tick("AA", At(15, 0, 0), "55", "60", "40"))
	d.Deliver(imbalance("AA", At(15, 31, 0), ImbalanceBuy, 150_000))
	d.Deliver(SentAck{Order: Order{ID: "x", Symbol: "AA", Size: 100}, Time: At(15, 31, 0)})
	d.Deliver(Timer{Time: At(15, 31, 1)})

	ctx := context.Background()
	entries, err := j.Load(ctx, j.Run())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Symbol != "AA" || entries[0].Kind != KindTick || entries[0].At != At(15, 0, 0) {
		t.Fatalf("first entry = %+v", entries[0])
	}
	tk, ok := entries[0].Event.(Tick)
	if !ok || !tk.Last.Equal(px("55")) || !tk.High.Equal(px("60")) {
		t.Fatalf("tick payload = %#v", entries[0].Event)
	}
	imb, ok := entries[1].Event.(Imbalance)
	if !ok || imb.Side != ImbalanceBuy || imb.NetImbalance != 150_000 {
		t.Fatalf("imbalance payload = %#v", entries[1].Event)
	}

	market, err := j.LoadMarket(ctx, j.Run())
	if err != nil {
		t.Fatalf("load market: %v", err)
	}
	if len(market) != 3 {
		t.Fatalf("market events = %d, acks must be left out", len(market))
	}
	for _, ev := range market {
		if !ev.Kind().IsMarket() {
			t.Fatalf("non-market event %s", ev.Kind())
		}
	}
}

func TestJournalRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	first, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Append(1, Timer{Time: At(9, 30, 0)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	firstRun := first.Run()
	first.Close()

	second, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if second.Run() == firstRun {
		t.Fatalf("reopen reused the run id")
	}

	ctx := context.Background()
	latest, err := second.LatestRun(ctx)
	if err != nil || latest != firstRun {
		t.Fatalf("latest = %q, %v; want %q", latest, err, firstRun)
	}
	if err := second.Append(1, Timer{Time: At(9, 30, 0)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	runs, err := second.Runs(ctx)
	if err != nil || len(runs) != 2 || runs[0] != firstRun {
		t.Fatalf("runs = %v, %v", runs, err)
	}
	// the current run is never "latest"
	if latest, _ := second.LatestRun(ctx); latest != firstRun {
		t.Fatalf("latest = %q", latest)
	}
}

func TestJournalEmptyHasNoLatest(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()
	if _, err := j.LatestRun(context.Background()); err == nil {
		t.Fatalf("empty journal returned a run")
	}
}
