package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// fakeHost records every call and lets tests set positions by hand.
type fakeHost struct {
	seq       int
	placed    []Order
	cancels   []string
	cancelAll int
	closeAll  int
	open      map[string]Order
	positions map[string]Position

	failPlace  func(OrderRequest) error
	failCancel error
}

func newFakeHost() *fakeHost {
	return &fakeHost{open: map[string]Order{}, positions: map[string]Position{}}
}

func (h *fakeHost) PlaceOrder(req OrderRequest) (Order, error) {
	if h.failPlace != nil {
		if err := h.failPlace(req); err != nil {
			return Order{}, err
		}
	}
	h.seq++
	o := Order{
		ID:     fmt.Sprintf("o%d", h.seq),
		Symbol: req.Symbol,
		Side:   req.Side,
		Type:   req.Type,
		Price:  req.Price,
		Size:   req.Size,
	}
	h.placed = append(h.placed, o)
	h.open[o.ID] = o
	return o, nil
}

func (h *fakeHost) CancelOrder(id string) error {
	h.cancels = append(h.cancels, id)
	if h.failCancel != nil {
		return h.failCancel
	}
	delete(h.open, id)
	return nil
}

func (h *fakeHost) CancelAllOpenOrders() error {
	h.cancelAll++
	h.open = map[string]Order{}
	return nil
}

func (h *fakeHost) OpenOrders() []Order {
	out := make([]Order, 0, len(h.open))
	for _, o := range h.open {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *fakeHost) Positions() []Position {
	var out []Position
	for _, p := range h.positions {
		if !p.IsFlat() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (h *fakeHost) PositionFor(symbol string) Position {
	if p, ok := h.positions[symbol]; ok {
		return p
	}
	return Position{Symbol: symbol, Side: PositionFlat}
}

func (h *fakeHost) CloseAllOpenPositions() error {
	h.closeAll++
	h.positions = map[string]Position{}
	return nil
}

func (h *fakeHost) setLong(sym string, size int64) {
	h.positions[sym] = Position{Symbol: sym, Side: PositionLong, OpenSize: size, AvgPrice: decimal.NewFromInt(100)}
}

// ordersOf filters placed orders by symbol.
func (h *fakeHost) ordersOf(sym string) []Order {
	var out []Order
	for _, o := range h.placed {
		if o.Symbol == sym {
			out = append(out, o)
		}
	}
	return out
}

var errHostDown = errors.New("host down")

// ---- shared test helpers ----

func testLogger() zerolog.Logger { return zerolog.Nop() }

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Strict = true
	return cfg
}

func px(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tick(sym string, tod TimeOfDay, last, high, low string) Tick {
	return Tick{Symbol: sym, Time: tod, Last: px(last), High: px(high), Low: px(low)}
}

func imbalance(sym string, tod TimeOfDay, side ImbalanceSide, net int64) Imbalance {
	return Imbalance{Symbol: sym, Time: tod, Side: side, NetImbalance: net}
}
