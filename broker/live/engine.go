// Package live is the execution backend that drives real orders through
// the terminal. It adds the one-position-per-symbol guard on top of the
// terminal's raw primitives; the terminal itself enforces nothing.
package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/scalper/broker"
	"github.com/rustyeddy/scalper/terminal"
)

// Engine implements broker.ExecutionPort against a terminal. The mutex
// serializes the list-positions/submit sequence so two concurrent callers
// cannot both pass the duplicate check.
type Engine struct {
	mu    sync.Mutex
	term  terminal.Terminal
	magic int
	log   zerolog.Logger
}

func NewEngine(term terminal.Terminal, magic int, log zerolog.Logger) *Engine {
	return &Engine{
		term:  term,
		magic: magic,
		log:   log.With().Str("component", "live").Logger(),
	}
}

func (e *Engine) CountOpenTrades(ctx context.Context, symbol string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countLocked(ctx, symbol)
}

func (e *Engine) countLocked(ctx context.Context, symbol string) (int, error) {
	positions, err := e.term.ListPositions(ctx, symbol, e.magic)
	if err != nil {
		return 0, fmt.Errorf("list positions: %w", err)
	}
	return len(positions), nil
}

func (e *Engine) ExecuteTrade(ctx context.Context, req broker.OrderRequest) (broker.Position, error) {
	if !req.Side.Valid() {
		return broker.Position{}, fmt.Errorf("%w: %q", broker.ErrInvalidSide, req.Side)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.countLocked(ctx, req.Symbol)
	if err != nil {
		return broker.Position{}, err
	}
	if n > 0 {
		return broker.Position{}, fmt.Errorf("%w: %s", broker.ErrPositionExists, req.Symbol)
	}

	q, err := e.term.Quote(ctx, req.Symbol)
	if err != nil {
		return broker.Position{}, fmt.Errorf("%w: %s: %v", broker.ErrNoQuote, req.Symbol, err)
	}
	price := q.Ask
	if req.Side == broker.Sell {
		price = q.Bid
	}

	fill, err := e.term.Submit(ctx, terminal.Order{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     req.Volume,
		Price:      price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Magic:      e.magic,
		Comment:    req.Comment,
	})
	if err != nil {
		return broker.Position{}, fmt.Errorf("%w: %v", broker.ErrRejected, err)
	}

	e.log.Info().
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Float64("volume", req.Volume).
		Float64("price", fill.Price).
		Str("ticket", fill.Ticket).
		Msg("order filled")

	return broker.Position{
		Ticket:     fill.Ticket,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     req.Volume,
		OpenPrice:  fill.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Magic:      e.magic,
	}, nil
}

// CloseTrade submits an opposite-side order against the position's
// ticket. The terminal does not report realized P/L on close, so the
// returned amount is always zero here; the journal carries the fill
// prices for later reconciliation.
func (e *Engine) CloseTrade(ctx context.Context, ticket, symbol string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	positions, err := e.term.ListPositions(ctx, symbol, e.magic)
	if err != nil {
		return 0, fmt.Errorf("list positions: %w", err)
	}
	var pos *broker.Position
	for i := range positions {
		if positions[i].Ticket == ticket {
			pos = &positions[i]
			break
		}
	}
	if pos == nil {
		return 0, fmt.Errorf("%w: %q", broker.ErrTradeNotFound, ticket)
	}

	q, err := e.term.Quote(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", broker.ErrNoQuote, symbol, err)
	}

	side := broker.Sell
	price := q.Bid
	if pos.Side == broker.Sell {
		side = broker.Buy
		price = q.Ask
	}

	if _, err := e.term.Submit(ctx, terminal.Order{
		Symbol: symbol,
		Side:   side,
		Volume: pos.Volume,
		Price:  price,
		Magic:  e.magic,
		Ticket: ticket,
	}); err != nil {
		return 0, fmt.Errorf("%w: %v", broker.ErrRejected, err)
	}

	e.log.Info().Str("ticket", ticket).Str("symbol", symbol).Msg("position closed")
	return 0, nil
}

func (e *Engine) Positions(ctx context.Context, symbol string) ([]broker.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.term.ListPositions(ctx, symbol, e.magic)
}
