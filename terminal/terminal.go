// Package terminal is the boundary to the broker terminal: connectivity,
// candle and quote retrieval, and the raw order primitives the live
// execution port builds on. The engine treats any non-success result as
// "no data" or "rejected" and carries on.
package terminal

import (
	"context"
	"errors"

	"github.com/rustyeddy/scalper/broker"
	"github.com/rustyeddy/scalper/market"
)

var (
	ErrNotConnected = errors.New("terminal not connected")
	ErrNoData       = errors.New("no data")
)

// Account is a balance/equity snapshot from the terminal.
type Account struct {
	Balance  float64
	Equity   float64
	Currency string
}

// Order is a raw order submission. A non-empty Ticket closes that
// position instead of opening a new one.
type Order struct {
	Symbol     string
	Side       broker.Side
	Volume     float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Magic      int
	Comment    string
	Ticket     string
}

// Fill is a successful order result.
type Fill struct {
	Ticket string
	Price  float64
}

// Terminal is the connectivity collaborator. The Mock variant serves
// dry-run; a live adapter would wrap the broker's API behind the same
// surface. Selection happens once at startup from configuration.
type Terminal interface {
	Connect(ctx context.Context) error
	EnsureConnected(ctx context.Context) error

	Account(ctx context.Context) (Account, error)
	Candles(ctx context.Context, symbol, timeframe string, count int) (market.Series, error)
	Quote(ctx context.Context, symbol string) (market.Quote, error)

	Submit(ctx context.Context, o Order) (Fill, error)
	ListPositions(ctx context.Context, symbol string, magic int) ([]broker.Position, error)

	Close() error
}
