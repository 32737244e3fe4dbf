// FILE: host.go
// Package main – Host abstractions shared by all strategies.
//
// This file defines the minimal surface a strategy needs from the trading
// host it is plugged into (paper or real):
//   • Host interface: place/cancel orders, enumerate open orders, query and
//     close positions
//   • Common types: OrderSide, OrderType, Order, OrderRequest, Position
//
// The host owns order routing and position bookkeeping; strategies only read
// positions and ask for orders. The in-memory implementation lives in
// host_paper.go.
package main

import (
	"github.com/shopspring/decimal"
)

// OrderSide is the side of a trade.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Opposite returns the closing side.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType is how the host should work an order.
type OrderType string

const (
	TypeMarket        OrderType = "MARKET"
	TypeLimit         OrderType = "LIMIT"
	TypeMarketOnClose OrderType = "MOC"
)

// OrderRequest is what a strategy asks the host to place.
// Price is only meaningful for limit orders.
type OrderRequest struct {
	Side   OrderSide
	Type   OrderType
	Symbol string
	Size   int64
	Price  decimal.Decimal
}

// Order is a placed order. ID is assigned by the host and never changes.
type Order struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Side     OrderSide       `json:"side"`
	Type     OrderType       `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Size     int64           `json:"size"`
	PlacedAt TimeOfDay       `json:"placed_at"`
}

// PositionSide is the direction of an open position.
type PositionSide string

const (
	PositionFlat  PositionSide = "FLAT"
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
)

// Position is the host's read-only view of one symbol.
type Position struct {
	Symbol   string
	Side     PositionSide
	OpenSize int64
	AvgPrice decimal.Decimal
	OpenPnL  decimal.Decimal
}

func (p Position) IsFlat() bool { return p.OpenSize == 0 }

// Host is the order/position surface consumed by strategies.
// Calls must not block on network I/O; acknowledgements come back later
// as events through the dispatcher.
type Host interface {
	PlaceOrder(req OrderRequest) (Order, error)
	CancelOrder(id string) error
	CancelAllOpenOrders() error
	OpenOrders() []Order
	Positions() []Position
	PositionFor(symbol string) Position
	CloseAllOpenPositions() error
}
