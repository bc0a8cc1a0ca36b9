// Package broker defines the execution port: the contract for placing and
// closing orders and querying open positions. Two backends implement it, a
// live one that delegates to the terminal and an in-memory simulated one;
// both enforce at most one open position per symbol under concurrent
// callers.
package broker

import (
	"context"
	"errors"
	"time"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Valid reports whether s is an order side the port accepts.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

var (
	// ErrPositionExists is the normal guard outcome of the
	// one-position-per-symbol rule, not an execution fault.
	ErrPositionExists = errors.New("position already exists for symbol")
	ErrNoQuote        = errors.New("no quote available")
	ErrInvalidSide    = errors.New("invalid order side")
	ErrRejected       = errors.New("order rejected")
	ErrTradeNotFound  = errors.New("trade not found")
)

// Position is one open trade. The backend owns it exclusively; callers
// receive copies and never hold one as source of truth.
type Position struct {
	Ticket     string
	Symbol     string
	Side       Side
	Volume     float64 // lots
	OpenPrice  float64
	StopLoss   float64
	TakeProfit float64
	Magic      int // owning-strategy tag
	OpenTime   time.Time
}

// OrderRequest describes a market order to open.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Volume     float64
	StopLoss   float64
	TakeProfit float64
	Comment    string
}

// ExecutionPort is the pluggable execution backend.
//
// ExecuteTrade must check-and-insert atomically: under concurrent calls
// for the same symbol at most one may succeed. Rejections return an error
// and leave the ledger untouched.
type ExecutionPort interface {
	// CountOpenTrades reports the number of open positions this engine
	// owns for the symbol.
	CountOpenTrades(ctx context.Context, symbol string) (int, error)

	// ExecuteTrade opens a market position, honoring the
	// one-position-per-symbol invariant.
	ExecuteTrade(ctx context.Context, req OrderRequest) (Position, error)

	// CloseTrade closes the position identified by ticket and returns its
	// realized profit or loss in account currency (zero when the backend
	// cannot determine it).
	CloseTrade(ctx context.Context, ticket, symbol string) (float64, error)

	// Positions lists open positions for a symbol; an empty symbol lists
	// all of them.
	Positions(ctx context.Context, symbol string) ([]Position, error)
}
