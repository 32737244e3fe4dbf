package main

import (
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newImbalanceFixture(cfg Config) (*ImbalanceStrategy, *fakeHost, *StreamClock) {
	h := newFakeHost()
	clock := &StreamClock{}
	return NewImbalanceStrategy(cfg, h, clock, testLogger()), h, clock
}

func TestImbalanceScenarioA(t *testing.T) {
	s, h, _ := newImbalanceFixture(testConfig())
	s.OnTick(tick("AA", At(15, 0, 0), "55", "60", "40"))
	s.OnImbalance(imbalance("AA", At(15, 31, 0), ImbalanceBuy, 150_000))

	if len(h.placed) != 2 {
		t.Fatalf("want 2 orders, got %d: %+v", len(h.placed), h.placed)
	}
	entry, exit := h.placed[0], h.placed[1]
	if entry.Side != SideBuy || entry.Type != TypeMarket {
		t.Fatalf("entry = %+v", entry)
	}
	if exit.Side != SideSell || exit.Type != TypeMarketOnClose {
		t.Fatalf("exit = %+v", exit)
	}
	if entry.Size != exit.Size || entry.Size != 100 {
		t.Fatalf("sizes differ: entry=%d exit=%d", entry.Size, exit.Size)
	}
	if !s.State("AA").Entered {
		t.Fatalf("entered[AA] not set")
	}
}

// The literal values of the written scenario put last at half the range,
// which the 0.60 bound rejects.
func TestImbalanceMidRangeBuyDoesNotTrade(t *testing.T) {
	s, h, _ := newImbalanceFixture(testConfig())
	s.OnTick(tick("AA", At(15, 0, 0), "50", "60", "40"))
	s.OnImbalance(imbalance("AA", At(15, 31, 0), ImbalanceBuy, 150_000))
	if len(h.placed) != 0 || s.State("AA").Entered {
		t.Fatalf("r=0.50 must not qualify a BUY: %+v", h.placed)
	}
}

func TestImbalanceScenarioB(t *testing.T) {
	s, h, _ := newImbalanceFixture(testConfig())
	s.OnTick(tick("AA", At(15, 0, 0), "55", "60", "40"))
	s.OnImbalance(imbalance("AA", At(15, 1, 0), ImbalanceBuy, 150_000))
	if len(h.placed) != 0 {
		t.Fatalf("pre-15:30 imbalance placed %d orders", len(h.placed))
	}
	if s.State("AA").Entered {
		t.Fatalf("entered[AA] changed")
	}
}

func TestImbalanceSellEntry(t *testing.T) {
	s, h, _ := newImbalanceFixture(testConfig())
	s.OnTick(tick("BB", At(15, 0, 0), "42", "60", "40"))
	s.OnImbalance(imbalance("BB", At(15, 45, 0), ImbalanceSell, 200_000))
	if len(h.placed) != 2 {
		t.Fatalf("want 2 orders, got %+v", h.placed)
	}
	if h.placed[0].Side != SideSell || h.placed[0].Type != TypeMarket ||
		h.placed[1].Side != SideBuy || h.placed[1].Type != TypeMarketOnClose {
		t.Fatalf("sell bracket wrong: %+v", h.placed)
	}
}

func TestImbalanceRangeBoundaries(t *testing.T) {
	cases := []struct {
		name string
		side ImbalanceSide
		last string
		want bool
	}{
		{"buy exactly 0.60", ImbalanceBuy, "52", true},
		{"buy just below 0.60", ImbalanceBuy, "51.9999", false},
		{"buy at top", ImbalanceBuy, "60", true},
		{"sell exactly 0.40", ImbalanceSell, "48", true},
		{"sell just above 0.40", ImbalanceSell, "48.0001", false},
		{"sell at bottom", ImbalanceSell, "40", true},
		{"buy in lower part", ImbalanceBuy, "44", false},
		{"sell in upper part", ImbalanceSell, "58", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, h, _ := newImbalanceFixture(testConfig())
			s.OnTick(tick("AA", At(15, 0, 0), tc.last, "60", "40"))
			s.OnImbalance(imbalance("AA", At(15, 30, 0), tc.side, 100_000))
			if got := len(h.placed) == 2; got != tc.want {
				t.Fatalf("last=%s side=%s: traded=%v want %v", tc.last, tc.side, got, tc.want)
			}
		})
	}
}

// Pre-15:30 imbalances never trade, for any size.
func TestImbalanceMorningNeverTrades(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s, h, _ := newImbalanceFixture(testConfig())
	s.OnTick(tick("AA", At(9, 31, 0), "59", "60", "40"))
	s.OnTick(tick("BB", At(9, 31, 0), "41", "60", "40"))
	for i := 0; i < 2000; i++ {
		tod := TimeOfDay(rng.Int63n(int64(At(15, 30, 0))))
		side := ImbalanceBuy
		sym := "AA"
		if i%2 == 1 {
			side, sym = ImbalanceSell, "BB"
		}
		s.OnImbalance(imbalance(sym, tod, side, rng.Int63n(10_000_000)))
	}
	if len(h.placed) != 0 {
		t.Fatalf("morning imbalances placed %d orders", len(h.placed))
	}
}

func TestImbalanceRequiresTickAndRange(t *testing.T) {
	s, h, _ := newImbalanceFixture(testConfig())
	// no tick seen
	s.OnImbalance(imbalance("AA", At(15, 40, 0), ImbalanceBuy, 1_000_000))
	// degenerate range
	s.OnTick(tick("CC", At(15, 0, 0), "50", "50", "50"))
	s.OnImbalance(imbalance("CC", At(15, 40, 0), ImbalanceBuy, 1_000_000))
	if len(h.placed) != 0 {
		t.Fatalf("placed without tick/range: %+v", h.placed)
	}
}

// Threshold policy: the enforced value is 100,000 for both logging and
// trading, not the 500,000 an old comment mentions.
func TestImbalanceThresholdPolicy(t *testing.T) {
	cfg := testConfig()
	if cfg.ImbalanceLogThreshold != 100_000 || cfg.ImbalanceTradeThreshold != 100_000 {
		t.Fatalf("default thresholds = %d/%d, want 100000/100000", cfg.ImbalanceLogThreshold, cfg.ImbalanceTradeThreshold)
	}

	s, h, _ := newImbalanceFixture(cfg)
	logged := testutil.ToFloat64(mtxImbalancesLogged)
	s.OnTick(tick("AA", At(15, 0, 0), "59", "60", "40"))
	s.OnImbalance(imbalance("AA", At(15, 35, 0), ImbalanceBuy, 99_999))
	if len(h.placed) != 0 {
		t.Fatalf("99,999 traded")
	}
	if got := testutil.ToFloat64(mtxImbalancesLogged) - logged; got != 0 {
		t.Fatalf("99,999 logged")
	}
	s.OnImbalance(imbalance("AA", At(15, 35, 1), ImbalanceBuy, 100_000))
	if len(h.placed) != 2 {
		t.Fatalf("100,000 did not trade")
	}
	if got := testutil.ToFloat64(mtxImbalancesLogged) - logged; got != 1 {
		t.Fatalf("100,000 not logged once: %v", got)
	}
}

func TestImbalanceSeparateThresholds(t *testing.T) {
	cfg := testConfig()
	cfg.ImbalanceTradeThreshold = 500_000
	s, h, _ := newImbalanceFixture(cfg)
	logged := testutil.ToFloat64(mtxImbalancesLogged)
	s.OnTick(tick("AA", At(15, 0, 0), "59", "60", "40"))
	s.OnImbalance(imbalance("AA", At(15, 35, 0), ImbalanceBuy, 300_000))
	if len(h.placed) != 0 {
		t.Fatalf("below trade threshold traded")
	}
	if got := testutil.ToFloat64(mtxImbalancesLogged) - logged; got != 1 {
		t.Fatalf("above log threshold not logged")
	}
}

// Once entered, nothing re-enters the symbol, whatever follows.
func TestImbalanceEntersOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s, h, _ := newImbalanceFixture(testConfig())
	for i := 0; i < 3000; i++ {
		last := []string{"40", "45", "52", "55", "60"}[rng.Intn(5)]
		if rng.Intn(2) == 0 {
			s.OnTick(tick("AA", At(15, 0, 0), last, "60", "40"))
			continue
		}
		side := ImbalanceBuy
		if rng.Intn(2) == 0 {
			side = ImbalanceSell
		}
		s.OnImbalance(imbalance("AA", At(15, 30, 0)+TimeOfDay(rng.Int63n(int64(At(0, 30, 0)))), side, rng.Int63n(1_000_000)))
		if s.State("AA").Entered && len(h.placed) != 2 {
			t.Fatalf("step %d: %d orders after entry", i, len(h.placed))
		}
	}
	if len(h.placed) > 2 {
		t.Fatalf("re-entered: %d orders", len(h.placed))
	}
}

func TestImbalanceEntryFailureSkipsExit(t *testing.T) {
	s, h, _ := newImbalanceFixture(testConfig())
	before := testutil.ToFloat64(mtxHostErrors.WithLabelValues("place"))
	h.failPlace = func(OrderRequest) error { return errHostDown }
	s.OnTick(tick("AA", At(15, 0, 0), "59", "60", "40"))
	s.OnImbalance(imbalance("AA", At(15, 31, 0), ImbalanceBuy, 150_000))

	if len(h.placed) != 0 {
		t.Fatalf("orders placed despite failure: %+v", h.placed)
	}
	if !s.State("AA").Entered {
		t.Fatalf("gate must stay closed after a failed entry")
	}
	if got := testutil.ToFloat64(mtxHostErrors.WithLabelValues("place")) - before; got != 1 {
		t.Fatalf("place errors counted %v, want 1 (no exit attempted)", got)
	}
}

func TestImbalanceOrdersStampedWithStreamTime(t *testing.T) {
	s, _, clock := newImbalanceFixture(testConfig())
	clock.Advance(At(15, 31, 0))
	s.OnTick(tick("AA", At(15, 31, 0), "59", "60", "40"))
	s.OnImbalance(imbalance("AA", At(15, 31, 0), ImbalanceBuy, 150_000))
	for _, o := range s.orders.Open() {
		if o.PlacedAt != At(15, 31, 0) {
			t.Fatalf("order %s placed at %s", o.ID, o.PlacedAt)
		}
	}
}
