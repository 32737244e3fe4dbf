// FILE: host_paper.go
// Package main – In-memory paper host.
//
// This host simulates execution against the marks it observes on the event
// stream. It is used for replays and for live dry runs; orders here never
// leave the process.
//
// Execution rules:
//   • MARKET fills at the symbol's last mark, or on the next tick when no
//     mark has been seen yet
//   • LIMIT  fills at its limit price once a tick trades through it
//   • MOC    fills at the symbol's close bar
//
// Acknowledgements (SentAck, Fill, CancelAck) are handed to the dispatcher
// through the bound post function, so strategies see them as ordinary events
// after the current handler returns. Positions are booked when the Fill event
// is observed, the way a real position manager lags its executions.
//
// Like everything behind the dispatcher, the paper host is single-threaded.
package main

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type paperPosition struct {
	qty      int64 // signed: >0 long, <0 short
	avg      decimal.Decimal
	realized decimal.Decimal
}

// PaperHost implements Host and Observer.
type PaperHost struct {
	clock   *StreamClock
	post    func(Event)
	log     zerolog.Logger
	marks   map[string]decimal.Decimal
	open    map[string]Order
	pending map[string]Order // executed, fill not yet booked
	pos     map[string]*paperPosition
}

func NewPaperHost(clock *StreamClock, log zerolog.Logger) *PaperHost {
	return &PaperHost{
		clock:   clock,
		log:     log.With().Str("component", "paper").Logger(),
		marks:   make(map[string]decimal.Decimal),
		open:    make(map[string]Order),
		pending: make(map[string]Order),
		pos:     make(map[string]*paperPosition),
	}
}

// Bind sets where acknowledgements go (normally Dispatcher.Post).
// Unbound, the host books its own fills immediately and drops the acks.
func (h *PaperHost) Bind(post func(Event)) { h.post = post }

func (h *PaperHost) emit(evs ...Event) {
	for _, ev := range evs {
		if h.post != nil {
			h.post(ev)
			continue
		}
		if f, ok := ev.(Fill); ok {
			h.book(f)
		}
	}
}

// ---- Host ----

func (h *PaperHost) PlaceOrder(req OrderRequest) (Order, error) {
	if req.Symbol == "" {
		return Order{}, fmt.Errorf("paper: empty symbol")
	}
	if req.Size <= 0 {
		return Order{}, fmt.Errorf("paper: size must be > 0, got %d", req.Size)
	}
	if req.Side != SideBuy && req.Side != SideSell {
		return Order{}, fmt.Errorf("paper: bad side %q", req.Side)
	}
	switch req.Type {
	case TypeMarket, TypeMarketOnClose:
	case TypeLimit:
		if !req.Price.IsPositive() {
			return Order{}, fmt.Errorf("paper: limit price must be > 0, got %s", req.Price)
		}
	default:
		return Order{}, fmt.Errorf("paper: bad order type %q", req.Type)
	}

	o := Order{
		ID:       uuid.New().String(),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Type:     req.Type,
		Price:    req.Price,
		Size:     req.Size,
		PlacedAt: h.clock.Now(),
	}
	h.open[o.ID] = o
	evs := []Event{SentAck{Order: o, Time: h.clock.Now()}}
	if o.Type == TypeMarket {
		if mark, ok := h.marks[o.Symbol]; ok {
			evs = append(evs, h.execute(o, mark))
		}
	}
	h.emit(evs...)
	return o, nil
}

func (h *PaperHost) CancelOrder(id string) error {
	if _, ok := h.open[id]; !ok {
		return fmt.Errorf("paper: order %s not open", id)
	}
	delete(h.open, id)
	h.emit(CancelAck{OrderID: id, Time: h.clock.Now()})
	return nil
}

func (h *PaperHost) CancelAllOpenOrders() error {
	var evs []Event
	for _, o := range h.OpenOrders() {
		delete(h.open, o.ID)
		evs = append(evs, CancelAck{OrderID: o.ID, Time: h.clock.Now()})
	}
	h.emit(evs...)
	return nil
}

// OpenOrders lists working orders by placement time, then id.
func (h *PaperHost) OpenOrders() []Order {
	out := make([]Order, 0, len(h.open))
	for _, o := range h.open {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlacedAt != out[j].PlacedAt {
			return out[i].PlacedAt < out[j].PlacedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Positions lists non-flat positions by symbol.
func (h *PaperHost) Positions() []Position {
	syms := make([]string, 0, len(h.pos))
	for sym, p := range h.pos {
		if p.qty != 0 {
			syms = append(syms, sym)
		}
	}
	sort.Strings(syms)
	out := make([]Position, 0, len(syms))
	for _, sym := range syms {
		out = append(out, h.PositionFor(sym))
	}
	return out
}

func (h *PaperHost) PositionFor(symbol string) Position {
	p, ok := h.pos[symbol]
	if !ok || p.qty == 0 {
		return Position{Symbol: symbol, Side: PositionFlat}
	}
	out := Position{Symbol: symbol, OpenSize: p.qty, AvgPrice: p.avg, Side: PositionLong}
	if p.qty < 0 {
		out.Side = PositionShort
		out.OpenSize = -p.qty
	}
	if mark, ok := h.marks[symbol]; ok {
		out.OpenPnL = mark.Sub(p.avg).Mul(decimal.NewFromInt(p.qty))
	}
	return out
}

// CloseAllOpenPositions sends an offsetting market order for every position.
func (h *PaperHost) CloseAllOpenPositions() error {
	for _, p := range h.Positions() {
		side := SideSell
		if p.Side == PositionShort {
			side = SideBuy
		}
		if _, err := h.PlaceOrder(OrderRequest{Side: side, Type: TypeMarket, Symbol: p.Symbol, Size: p.OpenSize}); err != nil {
			return fmt.Errorf("close %s: %w", p.Symbol, err)
		}
	}
	return nil
}

// RealizedPnL sums closed profit across symbols.
func (h *PaperHost) RealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for _, p := range h.pos {
		total = total.Add(p.realized)
	}
	return total
}

// ---- Observer ----

// Observe marks prices and works resting orders against market events, and
// books fills this host executed.
func (h *PaperHost) Observe(ev Event) {
	switch e := ev.(type) {
	case Tick:
		h.marks[e.Symbol] = e.Last
		h.emit(h.cross(e)...)
	case OHLC:
		h.marks[e.Symbol] = e.Close
		h.emit(h.closeAuction(e)...)
	case Fill:
		h.book(e)
	}
}

// cross executes open orders for t.Symbol that the tick makes marketable.
func (h *PaperHost) cross(t Tick) []Event {
	var evs []Event
	for _, o := range h.OpenOrders() {
		if o.Symbol != t.Symbol {
			continue
		}
		switch o.Type {
		case TypeMarket:
			evs = append(evs, h.execute(o, t.Last))
		case TypeLimit:
			if (o.Side == SideBuy && t.Last.LessThanOrEqual(o.Price)) ||
				(o.Side == SideSell && t.Last.GreaterThanOrEqual(o.Price)) {
				evs = append(evs, h.execute(o, o.Price))
			}
		}
	}
	return evs
}

func (h *PaperHost) closeAuction(bar OHLC) []Event {
	var evs []Event
	for _, o := range h.OpenOrders() {
		if o.Symbol == bar.Symbol && o.Type == TypeMarketOnClose {
			evs = append(evs, h.execute(o, bar.Close))
		}
	}
	return evs
}

// execute takes o off the book in full and returns its Fill.
func (h *PaperHost) execute(o Order, px decimal.Decimal) Fill {
	delete(h.open, o.ID)
	h.pending[o.ID] = o
	return Fill{OrderID: o.ID, Symbol: o.Symbol, Price: px, Size: o.Size, Time: h.clock.Now()}
}

func (h *PaperHost) book(f Fill) {
	o, ok := h.pending[f.OrderID]
	if !ok {
		return
	}
	delete(h.pending, f.OrderID)

	p, ok := h.pos[f.Symbol]
	if !ok {
		p = &paperPosition{}
		h.pos[f.Symbol] = p
	}
	delta := f.Size
	if o.Side == SideSell {
		delta = -delta
	}
	switch {
	case p.qty == 0 || (p.qty > 0) == (delta > 0):
		// opening or adding: size-weighted average
		n := abs64(p.qty)
		p.avg = p.avg.Mul(decimal.NewFromInt(n)).
			Add(f.Price.Mul(decimal.NewFromInt(f.Size))).
			Div(decimal.NewFromInt(n + f.Size))
		p.qty += delta
	default:
		closed := min(abs64(p.qty), f.Size)
		sign := int64(1)
		if p.qty < 0 {
			sign = -1
		}
		p.realized = p.realized.Add(f.Price.Sub(p.avg).Mul(decimal.NewFromInt(closed * sign)))
		p.qty += delta
		switch {
		case p.qty == 0:
			p.avg = decimal.Zero
		case (p.qty > 0) != (sign > 0):
			// flipped through zero: remainder opens at the fill price
			p.avg = f.Price
		}
	}
	h.log.Debug().
		Str("order_id", f.OrderID).
		Str("symbol", f.Symbol).
		Str("side", string(o.Side)).
		Int64("size", f.Size).
		Str("price", f.Price.String()).
		Int64("position", p.qty).
		Msg("fill booked")
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
