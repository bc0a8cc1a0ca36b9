// Package sim is the in-memory execution backend used in dry-run mode. It
// mimics the live order path, including the one-position-per-symbol guard,
// but keeps the ledger in process and never touches the terminal's order
// primitives.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/scalper/broker"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/pkg/id"
)

// lotUnits converts lots to base-currency units for P/L marking.
const lotUnits = 100000.0

// QuoteSource supplies fill and mark prices; in dry-run this is the
// terminal's data side.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (market.Quote, error)
}

// Engine is the simulated execution port. The mutex makes the
// check-open/insert sequence in ExecuteTrade a critical section, so
// concurrent callers can never both open a position on one symbol.
type Engine struct {
	mu        sync.Mutex
	quotes    QuoteSource
	positions map[string]*broker.Position // ticket -> position
	magic     int
	log       zerolog.Logger
}

func NewEngine(quotes QuoteSource, magic int, log zerolog.Logger) *Engine {
	return &Engine{
		quotes:    quotes,
		positions: make(map[string]*broker.Position),
		magic:     magic,
		log:       log.With().Str("component", "sim").Logger(),
	}
}

func (e *Engine) CountOpenTrades(ctx context.Context, symbol string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countLocked(symbol), nil
}

func (e *Engine) countLocked(symbol string) int {
	n := 0
	for _, p := range e.positions {
		if p.Symbol == symbol {
			n++
		}
	}
	return n
}

// ExecuteTrade opens a market position at the current quote. All
// validation happens before the insert, so a rejection never leaves
// partial state behind.
func (e *Engine) ExecuteTrade(ctx context.Context, req broker.OrderRequest) (broker.Position, error) {
	if !req.Side.Valid() {
		return broker.Position{}, fmt.Errorf("%w: %q", broker.ErrInvalidSide, req.Side)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.countLocked(req.Symbol) > 0 {
		return broker.Position{}, fmt.Errorf("%w: %s", broker.ErrPositionExists, req.Symbol)
	}

	q, err := e.quotes.Quote(ctx, req.Symbol)
	if err != nil {
		return broker.Position{}, fmt.Errorf("%w: %s: %v", broker.ErrNoQuote, req.Symbol, err)
	}

	fill := q.Ask
	if req.Side == broker.Sell {
		fill = q.Bid
	}

	pos := &broker.Position{
		Ticket:     id.New(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     req.Volume,
		OpenPrice:  fill,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Magic:      e.magic,
		OpenTime:   q.Time,
	}
	if pos.OpenTime.IsZero() {
		pos.OpenTime = time.Now().UTC()
	}
	e.positions[pos.Ticket] = pos

	e.log.Info().
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Float64("volume", req.Volume).
		Float64("price", fill).
		Str("ticket", pos.Ticket).
		Msg("simulated fill")

	return *pos, nil
}

// CloseTrade removes the position and returns its realized P/L marked at
// the current quote. Longs close on bid, shorts on ask.
func (e *Engine) CloseTrade(ctx context.Context, ticket, symbol string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[ticket]
	if !ok || pos.Symbol != symbol {
		return 0, fmt.Errorf("%w: %q", broker.ErrTradeNotFound, ticket)
	}

	q, err := e.quotes.Quote(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", broker.ErrNoQuote, symbol, err)
	}

	var pl float64
	if pos.Side == broker.Buy {
		pl = (q.Bid - pos.OpenPrice) * pos.Volume * lotUnits
	} else {
		pl = (pos.OpenPrice - q.Ask) * pos.Volume * lotUnits
	}

	delete(e.positions, ticket)

	e.log.Info().
		Str("ticket", ticket).
		Str("symbol", symbol).
		Float64("pl", pl).
		Msg("simulated close")

	return pl, nil
}

func (e *Engine) Positions(ctx context.Context, symbol string) ([]broker.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]broker.Position, 0, len(e.positions))
	for _, p := range e.positions {
		if symbol == "" || p.Symbol == symbol {
			out = append(out, *p)
		}
	}
	return out, nil
}
