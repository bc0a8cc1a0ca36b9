// Package engine runs the strategy loop: every tick it walks the
// configured pairs through feature computation, regime classification,
// the risk governor and the checklist gate, and hands approved setups
// to the execution port. It also serves the operator control surface
// (status, panic close, risk adjustment).
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/scalper/broker"
	"github.com/rustyeddy/scalper/checklist"
	"github.com/rustyeddy/scalper/config"
	"github.com/rustyeddy/scalper/features"
	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/metrics"
	"github.com/rustyeddy/scalper/notify"
	"github.com/rustyeddy/scalper/pkg/id"
	"github.com/rustyeddy/scalper/regime"
	"github.com/rustyeddy/scalper/risk"
	"github.com/rustyeddy/scalper/terminal"
)

// candleHistory is how many candles each tick fetches; enough for the
// 200-period EMA plus warmup slack.
const candleHistory = 500

// Stop distances for market entries, in pips.
const (
	stopPips   = 10.0
	targetPips = 20.0
	pip        = market.Point * 10
)

// Calendar answers whether a symbol is inside a news blackout window.
type Calendar interface {
	Blackout(ctx context.Context, symbol string) bool
}

// noCalendar is used when the news module is disabled.
type noCalendar struct{}

func (noCalendar) Blackout(context.Context, string) bool { return false }

// Engine ties the collaborators together. The mode string tags journal
// rows and metrics ("sim" or "live").
type Engine struct {
	cfg   *config.Config
	term  terminal.Terminal
	exec  broker.ExecutionPort
	gov   *risk.Governor
	class *regime.Classifier
	gate  *checklist.Gate
	news  Calendar
	jrnl  journal.Journal
	notif notify.Notifier
	mode  string
	log   zerolog.Logger

	mu       sync.Mutex
	lastDay  string // yyyy-mm-dd of the last StartDay
	lastTick time.Time

	now func() time.Time
}

// Options carries the collaborators New needs. Nil News, Journal and
// Notifier default to disabled variants.
type Options struct {
	Config    *config.Config
	Terminal  terminal.Terminal
	Execution broker.ExecutionPort
	Governor  *risk.Governor
	Regime    *regime.Classifier
	Gate      *checklist.Gate
	News      Calendar
	Journal   journal.Journal
	Notifier  notify.Notifier
	Mode      string
	Log       zerolog.Logger
}

func New(o Options) *Engine {
	if o.News == nil {
		o.News = noCalendar{}
	}
	if o.Journal == nil {
		o.Journal = journal.Nop{}
	}
	if o.Notifier == nil {
		o.Notifier = notify.Nop{}
	}
	return &Engine{
		cfg:   o.Config,
		term:  o.Terminal,
		exec:  o.Execution,
		gov:   o.Governor,
		class: o.Regime,
		gate:  o.Gate,
		news:  o.News,
		jrnl:  o.Journal,
		notif: o.Notifier,
		mode:  o.Mode,
		log:   o.Log.With().Str("component", "engine").Logger(),
		now:   time.Now,
	}
}

// Run drives the loop until ctx is cancelled. The first tick snapshots
// the account for the risk governor; a new UTC day re-snapshots it.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.term.Connect(ctx); err != nil {
		return fmt.Errorf("connect terminal: %w", err)
	}
	e.notif.Send(ctx, "scalper started")
	e.log.Info().
		Int("pairs", len(e.cfg.Trading.Pairs)).
		Int("interval_s", e.cfg.System.LoopIntervalSeconds).
		Str("mode", e.mode).
		Msg("engine started")

	interval := time.Duration(e.cfg.System.LoopIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		e.Tick(ctx)
		select {
		case <-ctx.Done():
			e.notif.Send(context.Background(), "scalper stopped")
			e.log.Info().Msg("engine stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one full pass over the configured pairs. Exported so tests
// and the replay tooling can step the engine without the ticker.
func (e *Engine) Tick(ctx context.Context) {
	if err := e.term.EnsureConnected(ctx); err != nil {
		e.log.Warn().Err(err).Msg("terminal unavailable, skipping tick")
		return
	}

	now := e.now().UTC()
	e.maybeStartDay(ctx, now)

	e.mu.Lock()
	e.lastTick = now
	e.mu.Unlock()

	for _, symbol := range e.cfg.Trading.Pairs {
		e.processSymbol(ctx, symbol, now)
	}
}

// maybeStartDay re-snapshots the account at the first tick of each UTC
// day, resetting the daily loss budget and hard stop.
func (e *Engine) maybeStartDay(ctx context.Context, now time.Time) {
	day := now.Format("2006-01-02")

	e.mu.Lock()
	fresh := day != e.lastDay
	if fresh {
		e.lastDay = day
	}
	e.mu.Unlock()

	if !fresh {
		return
	}

	acct, err := e.term.Account(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("account snapshot failed")
		e.mu.Lock()
		e.lastDay = "" // retry next tick
		e.mu.Unlock()
		return
	}

	e.gov.StartDay(acct.Balance)
	metrics.Equity(acct.Equity)
	metrics.HardStop(false)
	e.log.Info().Float64("balance", acct.Balance).Str("day", day).Msg("new trading day")
}

// processSymbol walks one pair through the full decision pipeline. A
// panic in one symbol is contained so the rest of the scan continues.
func (e *Engine) processSymbol(ctx context.Context, symbol string, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("symbol", symbol).Msg("symbol scan panicked")
		}
	}()

	// One trade per pair: an open position parks the symbol.
	n, err := e.exec.CountOpenTrades(ctx, symbol)
	if err != nil {
		e.log.Error().Err(err).Str("symbol", symbol).Msg("count open trades")
		return
	}
	if n > 0 {
		return
	}

	candles, err := e.term.Candles(ctx, symbol, e.cfg.Trading.Timeframe, candleHistory)
	if err != nil || candles.Len() == 0 {
		e.log.Debug().Err(err).Str("symbol", symbol).Msg("no candle data")
		return
	}

	row := features.Compute(candles)
	reg := e.class.Classify(row, candles.Len())
	bias := trendBias(row)

	quote, err := e.term.Quote(ctx, symbol)
	if err != nil {
		e.log.Debug().Err(err).Str("symbol", symbol).Msg("no quote")
		return
	}
	price := quote.Ask
	if bias == checklist.BiasShort {
		price = quote.Bid
	}

	acct, err := e.term.Account(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("account info")
		return
	}
	metrics.Equity(acct.Equity)

	riskOK, riskReason := e.gov.CanTrade(acct.Equity, now)
	metrics.HardStop(e.gov.IsHardStopped())
	metrics.RiskPercent(e.gov.AdaptiveRisk(acct.Equity))

	snap := checklist.NewSnapshot(checklist.Snapshot{
		Symbol:       symbol,
		Time:         now,
		Price:        price,
		Spread:       quote.SpreadPoints(),
		Session:      sessionName(now),
		NewsBlackout: e.cfg.News.Enabled && e.news.Blackout(ctx, symbol),
		Features:     row,
		Regime:       reg,
		Bias:         bias,
		Risk:         checklist.Verdict{CanTrade: riskOK, Reason: riskReason},
	})

	decision := e.gate.Run(snap)
	reason := checklist.AllChecksPassed
	if len(decision.Reasons) > 0 {
		reason = decision.Reasons[0]
	}

	metrics.Decision(symbol, reasonLabel(reason))
	if err := e.jrnl.RecordDecision(journal.DecisionRecord{
		ID:       id.New(),
		Time:     now,
		Symbol:   symbol,
		Regime:   string(reg),
		Bias:     string(bias),
		CanTrade: decision.CanTrade,
		Reason:   reason,
		Price:    price,
		Spread:   quote.SpreadPoints(),
	}); err != nil {
		e.log.Error().Err(err).Msg("journal decision")
	}

	e.log.Debug().
		Str("symbol", symbol).
		Str("regime", string(reg)).
		Str("bias", string(bias)).
		Bool("can_trade", decision.CanTrade).
		Str("reason", reason).
		Msg("scan")

	if decision.CanTrade {
		e.executeSignal(ctx, snap, acct)
	}
}

// executeSignal sizes and places the order for an approved snapshot.
func (e *Engine) executeSignal(ctx context.Context, snap checklist.Snapshot, acct terminal.Account) {
	// The gate already consulted the governor, but state may have moved
	// between snapshot and execution.
	if ok, _ := e.gov.CanTrade(acct.Equity, e.now()); !ok {
		return
	}

	side := broker.Buy
	sl := snap.Price - stopPips*pip
	tp := snap.Price + targetPips*pip
	if snap.Bias == checklist.BiasShort {
		side = broker.Sell
		sl = snap.Price + stopPips*pip
		tp = snap.Price - targetPips*pip
	}

	riskPct := e.gov.AdaptiveRisk(acct.Equity)
	volume := risk.LotSize(acct.Balance, snap.Price, sl, riskPct)
	if volume <= 0 {
		return
	}

	e.log.Info().
		Str("symbol", snap.Symbol).
		Str("side", string(side)).
		Float64("risk_pct", riskPct).
		Float64("lots", volume).
		Msg("signal confirmed")

	pos, err := e.exec.ExecuteTrade(ctx, broker.OrderRequest{
		Symbol:     snap.Symbol,
		Side:       side,
		Volume:     volume,
		StopLoss:   sl,
		TakeProfit: tp,
	})
	if err != nil {
		e.log.Error().Err(err).Str("symbol", snap.Symbol).Msg("execution rejected")
		return
	}

	metrics.Order(e.mode, string(side))
	if err := e.jrnl.RecordTrade(journal.TradeRecord{
		ID:         id.New(),
		Time:       e.now().UTC(),
		Ticket:     pos.Ticket,
		Symbol:     pos.Symbol,
		Side:       string(pos.Side),
		Action:     "OPEN",
		Volume:     pos.Volume,
		Price:      pos.OpenPrice,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		RiskPct:    riskPct,
	}); err != nil {
		e.log.Error().Err(err).Msg("journal trade")
	}

	e.notif.Send(ctx, fmt.Sprintf("order placed: %s %s %.2f lots @ %.5f (risk %.2f%%)",
		side, pos.Symbol, pos.Volume, pos.OpenPrice, riskPct))
}

// trendBias leans long or short off price versus the 200-period EMA.
// Either value missing from the row leaves the bias neutral.
func trendBias(row features.Row) checklist.Bias {
	ema200, okE := row.Get(features.KeyEMA200)
	close, okC := row.Get(features.KeyClose)
	if !okE || !okC {
		return checklist.BiasNeutral
	}
	if close > ema200 {
		return checklist.BiasLong
	}
	return checklist.BiasShort
}

// sessionName buckets the UTC hour into the major trading sessions.
func sessionName(now time.Time) string {
	switch h := now.UTC().Hour(); {
	case h < 7:
		return "ASIA"
	case h < 13:
		return "LONDON"
	case h < 21:
		return "NY"
	default:
		return "SYDNEY"
	}
}

// reasonLabel strips the variable suffix off a checklist reason so the
// metric label space stays bounded.
func reasonLabel(reason string) string {
	if i := strings.IndexByte(reason, ':'); i > 0 {
		return reason[:i]
	}
	return reason
}

// StatusSummary renders the operator /status view.
func (e *Engine) StatusSummary(ctx context.Context) string {
	var b strings.Builder

	e.mu.Lock()
	lastTick := e.lastTick
	e.mu.Unlock()

	fmt.Fprintf(&b, "mode: %s\n", e.mode)
	fmt.Fprintf(&b, "pairs: %s\n", strings.Join(e.cfg.Trading.Pairs, ", "))
	if !lastTick.IsZero() {
		fmt.Fprintf(&b, "last tick: %s\n", lastTick.Format(time.RFC3339))
	}

	if acct, err := e.term.Account(ctx); err == nil {
		fmt.Fprintf(&b, "balance: %.2f %s\nequity: %.2f\n", acct.Balance, acct.Currency, acct.Equity)
	}

	losses, wins := e.gov.Streaks()
	fmt.Fprintf(&b, "risk: %.2f%% base, trades today %d, streak W%d/L%d\n",
		e.gov.BaseRisk(), e.gov.TradesToday(), wins, losses)
	if e.gov.IsHardStopped() {
		b.WriteString("HARD STOP ACTIVE\n")
	}

	if positions, err := e.exec.Positions(ctx, ""); err == nil {
		fmt.Fprintf(&b, "open positions: %d\n", len(positions))
		for _, p := range positions {
			fmt.Fprintf(&b, "  %s %s %.2f @ %.5f\n", p.Symbol, p.Side, p.Volume, p.OpenPrice)
		}
	}

	return b.String()
}

// PanicCloseAll flattens every open position. Failures on individual
// tickets are logged and skipped so one stuck trade cannot hold the
// rest hostage. Realized results feed the governor's streak state.
func (e *Engine) PanicCloseAll(ctx context.Context) (closed int, err error) {
	positions, err := e.exec.Positions(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list positions: %w", err)
	}

	for _, p := range positions {
		pnl, cerr := e.exec.CloseTrade(ctx, p.Ticket, p.Symbol)
		if cerr != nil {
			e.log.Error().Err(cerr).Str("ticket", p.Ticket).Msg("panic close failed")
			continue
		}
		closed++
		e.gov.UpdateMetrics(pnl)
		if jerr := e.jrnl.RecordTrade(journal.TradeRecord{
			ID:         id.New(),
			Time:       e.now().UTC(),
			Ticket:     p.Ticket,
			Symbol:     p.Symbol,
			Side:       string(p.Side),
			Action:     "CLOSE",
			Volume:     p.Volume,
			Price:      p.OpenPrice,
			RealizedPL: pnl,
		}); jerr != nil {
			e.log.Error().Err(jerr).Msg("journal close")
		}
	}

	e.notif.Send(ctx, fmt.Sprintf("panic close: %d of %d positions closed", closed, len(positions)))
	e.log.Warn().Int("closed", closed).Int("total", len(positions)).Msg("panic close all")
	return closed, nil
}

// SetRiskPercent is the operator override for per-trade risk. Values
// outside (0, 2] are rejected as fat-finger protection.
func (e *Engine) SetRiskPercent(pct float64) error {
	if math.IsNaN(pct) || pct <= 0 || pct > 2.0 {
		return fmt.Errorf("risk percent %.2f out of range (0, 2]", pct)
	}
	e.gov.SetBaseRisk(pct)
	e.log.Info().Float64("risk_pct", pct).Msg("base risk updated")
	return nil
}
