package terminal

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/scalper/broker"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/pkg/id"
)

// mockSpread is the fixed bid/ask distance the mock quotes carry.
const mockSpread = 0.00010

// Mock is a deterministic in-memory terminal for dry-run and tests. It
// synthesizes a seeded random-walk candle history per symbol and serves
// quotes off the latest close. Submitted orders always fill; positions
// are held in memory so the live port can be exercised without a broker.
type Mock struct {
	mu        sync.Mutex
	seed      int64
	balance   float64
	connected bool
	walks     map[string]*walk
	positions map[string]*broker.Position
	log       zerolog.Logger
}

type walk struct {
	rng  *rand.Rand
	last float64
}

// NewMock builds a mock terminal with the given starting balance. The
// same seed reproduces the same price paths.
func NewMock(balance float64, seed int64, log zerolog.Logger) *Mock {
	return &Mock{
		seed:      seed,
		balance:   balance,
		walks:     make(map[string]*walk),
		positions: make(map[string]*broker.Position),
		log:       log.With().Str("component", "mock-terminal").Logger(),
	}
}

func (m *Mock) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	m.log.Info().Msg("mock terminal connected")
	return nil
}

func (m *Mock) EnsureConnected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	return nil
}

func (m *Mock) Account(ctx context.Context) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return Account{}, ErrNotConnected
	}
	return Account{Balance: m.balance, Equity: m.balance, Currency: "USD"}, nil
}

// walkFor lazily seeds a per-symbol price path. Caller holds m.mu.
func (m *Mock) walkFor(symbol string) *walk {
	w, ok := m.walks[symbol]
	if !ok {
		seed := m.seed
		for _, r := range symbol {
			seed = seed*31 + int64(r)
		}
		w = &walk{rng: rand.New(rand.NewSource(seed)), last: 1.10000}
		m.walks[symbol] = w
	}
	return w
}

// Candles synthesizes count one-minute candles ending now. Each call
// advances the walk, so successive ticks see fresh data.
func (m *Mock) Candles(ctx context.Context, symbol, timeframe string, count int) (market.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count %d", ErrNoData, count)
	}

	w := m.walkFor(symbol)
	now := time.Now().UTC().Truncate(time.Minute)
	s := make(market.Series, count)
	price := w.last
	for i := 0; i < count; i++ {
		open := price
		price += (w.rng.Float64() - 0.5) * 0.0008
		high := open
		low := open
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
		high += w.rng.Float64() * 0.0002
		low -= w.rng.Float64() * 0.0002
		s[i] = market.Candle{
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 500 + w.rng.Float64()*1000,
			Time:   now.Add(time.Duration(i-count+1) * time.Minute),
		}
	}
	w.last = price
	return s, nil
}

func (m *Mock) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return market.Quote{}, ErrNotConnected
	}

	w := m.walkFor(symbol)
	mid := w.last
	return market.Quote{
		Symbol: symbol,
		Bid:    mid - mockSpread/2,
		Ask:    mid + mockSpread/2,
		Time:   time.Now().UTC(),
	}, nil
}

// Submit fills every order at the requested price. An order carrying a
// ticket closes that position.
func (m *Mock) Submit(ctx context.Context, o Order) (Fill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return Fill{}, ErrNotConnected
	}

	if o.Ticket != "" {
		if _, ok := m.positions[o.Ticket]; !ok {
			return Fill{}, fmt.Errorf("close %q: %w", o.Ticket, broker.ErrTradeNotFound)
		}
		delete(m.positions, o.Ticket)
		return Fill{Ticket: o.Ticket, Price: o.Price}, nil
	}

	pos := &broker.Position{
		Ticket:     id.New(),
		Symbol:     o.Symbol,
		Side:       o.Side,
		Volume:     o.Volume,
		OpenPrice:  o.Price,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		Magic:      o.Magic,
		OpenTime:   time.Now().UTC(),
	}
	m.positions[pos.Ticket] = pos
	return Fill{Ticket: pos.Ticket, Price: o.Price}, nil
}

func (m *Mock) ListPositions(ctx context.Context, symbol string, magic int) ([]broker.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, ErrNotConnected
	}

	out := make([]broker.Position, 0, len(m.positions))
	for _, p := range m.positions {
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		if magic != 0 && p.Magic != magic {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}
