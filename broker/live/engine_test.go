package live

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/scalper/broker"
	"github.com/rustyeddy/scalper/terminal"
)

const testMagic = 777001

func connectedMock(t *testing.T) *terminal.Mock {
	t.Helper()
	m := terminal.NewMock(100000, 1, zerolog.Nop())
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return m
}

func TestExecuteAndCloseRoundTrip(t *testing.T) {
	m := connectedMock(t)
	e := NewEngine(m, testMagic, zerolog.Nop())
	ctx := context.Background()

	pos, err := e.ExecuteTrade(ctx, broker.OrderRequest{
		Symbol: "EURUSD", Side: broker.Buy, Volume: 0.1,
		StopLoss: 1.0990, TakeProfit: 1.1020,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if pos.Magic != testMagic {
		t.Fatalf("position must carry the strategy tag, got %d", pos.Magic)
	}

	n, err := e.CountOpenTrades(ctx, "EURUSD")
	if err != nil || n != 1 {
		t.Fatalf("count = %d, err = %v", n, err)
	}

	if _, err := e.CloseTrade(ctx, pos.Ticket, "EURUSD"); err != nil {
		t.Fatalf("close: %v", err)
	}
	n, _ = e.CountOpenTrades(ctx, "EURUSD")
	if n != 0 {
		t.Fatalf("count after close = %d", n)
	}
}

func TestDuplicatePositionRejected(t *testing.T) {
	m := connectedMock(t)
	e := NewEngine(m, testMagic, zerolog.Nop())
	ctx := context.Background()

	if _, err := e.ExecuteTrade(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Buy, Volume: 0.1}); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := e.ExecuteTrade(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Buy, Volume: 0.1})
	if !errors.Is(err, broker.ErrPositionExists) {
		t.Fatalf("want ErrPositionExists, got %v", err)
	}
}

func TestConcurrentExecuteSingleWinner(t *testing.T) {
	m := connectedMock(t)
	e := NewEngine(m, testMagic, zerolog.Nop())
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.ExecuteTrade(ctx, broker.OrderRequest{Symbol: "GBPUSD", Side: broker.Sell, Volume: 0.1})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, broker.ErrPositionExists) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
}

func TestForeignPositionsInvisible(t *testing.T) {
	m := connectedMock(t)
	ctx := context.Background()

	// A position tagged by someone else's strategy.
	if _, err := m.Submit(ctx, terminal.Order{
		Symbol: "EURUSD", Side: broker.Buy, Volume: 1, Price: 1.1, Magic: 999,
	}); err != nil {
		t.Fatalf("seed foreign position: %v", err)
	}

	e := NewEngine(m, testMagic, zerolog.Nop())
	n, err := e.CountOpenTrades(ctx, "EURUSD")
	if err != nil || n != 0 {
		t.Fatalf("foreign position leaked into count: n = %d, err = %v", n, err)
	}

	// And our own trade is still allowed despite the foreign one.
	if _, err := e.ExecuteTrade(ctx, broker.OrderRequest{Symbol: "EURUSD", Side: broker.Buy, Volume: 0.1}); err != nil {
		t.Fatalf("execute with foreign position present: %v", err)
	}
}

func TestDisconnectedTerminalSurfacesError(t *testing.T) {
	m := terminal.NewMock(100000, 1, zerolog.Nop())
	e := NewEngine(m, testMagic, zerolog.Nop())

	_, err := e.CountOpenTrades(context.Background(), "EURUSD")
	if !errors.Is(err, terminal.ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
}
