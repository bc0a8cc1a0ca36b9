// Package risk enforces account-level trading limits: the daily loss kill
// switch, cooldowns, trade-frequency caps, streak-adaptive risk and
// position sizing.
package risk

import (
	"sync"
	"time"
)

// Reason codes returned by CanTrade, first failing check wins.
const (
	ReasonNotInitialized = "RISK_NOT_INITIALIZED"
	ReasonHardStop       = "HARD_STOP_ACTIVE"
	ReasonDailyLossLimit = "DAILY_LOSS_LIMIT"
	ReasonCooldown       = "RISK_COOLDOWN"
	ReasonHourlyLimit    = "HOURLY_TRADE_LIMIT"
	ReasonOK             = "OK"
)

// defaultMaxHourlyTrades caps trade frequency inside a trailing hour.
const defaultMaxHourlyTrades = 10

const hourlyWindow = time.Hour

// Governor tracks account risk state across a trading day. It is shared
// between the scheduler goroutine and the operator-control goroutine, so
// every method takes the internal mutex.
//
// The governor starts uninitialized and rejects everything until the first
// StartDay. A tripped daily loss limit is sticky: it blocks trading until
// the next StartDay even if equity recovers.
type Governor struct {
	mu sync.Mutex

	baseRiskPct     float64
	maxDailyLossPct float64
	maxHourlyTrades int

	dailyStartBalance float64
	lossStreak        int
	winStreak         int
	tradesToday       int
	cooldownUntil     time.Time
	hardStopped       bool
	tradeTimes        []time.Time

	now func() time.Time
}

// NewGovernor builds a governor with the given base per-trade risk percent
// and daily loss cap percent (both expressed as whole percents, e.g. 0.5
// and 4.0).
func NewGovernor(baseRiskPct, maxDailyLossPct float64) *Governor {
	return &Governor{
		baseRiskPct:     baseRiskPct,
		maxDailyLossPct: maxDailyLossPct,
		maxHourlyTrades: defaultMaxHourlyTrades,
		now:             time.Now,
	}
}

// StartDay records the day's starting balance and clears the daily
// counters, the hard stop and the hourly trade window. Win/loss streaks
// deliberately survive the day boundary.
func (g *Governor) StartDay(balance float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dailyStartBalance = balance
	g.tradesToday = 0
	g.hardStopped = false
	g.tradeTimes = g.tradeTimes[:0]
}

// CanTrade runs the ordered kill-switch checks. The first failing check
// decides the verdict. Tripping the daily loss limit latches the hard stop.
func (g *Governor) CanTrade(equity float64, now time.Time) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dailyStartBalance <= 0 {
		return false, ReasonNotInitialized
	}
	if g.hardStopped {
		return false, ReasonHardStop
	}

	drawdown := g.dailyStartBalance - equity
	maxLoss := g.dailyStartBalance * (g.maxDailyLossPct / 100.0)
	if drawdown >= maxLoss {
		g.hardStopped = true
		return false, ReasonDailyLossLimit
	}

	if now.Before(g.cooldownUntil) {
		return false, ReasonCooldown
	}

	g.pruneTradeTimes(now)
	if len(g.tradeTimes) >= g.maxHourlyTrades {
		return false, ReasonHourlyLimit
	}

	return true, ReasonOK
}

// UpdateMetrics records a closed trade: appends to the hourly window and
// updates the streaks. A scratch trade (pnl == 0) leaves streaks alone.
func (g *Governor) UpdateMetrics(pnl float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tradesToday++
	g.tradeTimes = append(g.tradeTimes, g.now())

	switch {
	case pnl < 0:
		g.lossStreak++
		g.winStreak = 0
	case pnl > 0:
		g.winStreak++
		g.lossStreak = 0
	}
}

// AdaptiveRisk returns the per-trade risk percent, halved once on a loss
// streak of two or more, and halved again when the day's drawdown exceeds
// half the daily cap. Both halvings compose to quarter risk.
func (g *Governor) AdaptiveRisk(equity float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	pct := g.baseRiskPct
	if g.lossStreak >= 2 {
		pct /= 2.0
	}

	drawdown := g.dailyStartBalance - equity
	maxLoss := g.dailyStartBalance * (g.maxDailyLossPct / 100.0)
	if drawdown > maxLoss*0.5 {
		pct /= 2.0
	}
	return pct
}

// StartCooldown blocks trading until now+d.
func (g *Governor) StartCooldown(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cooldownUntil = g.now().Add(d)
}

// SetBaseRisk is the operator-channel mutation point for the per-trade
// risk percent.
func (g *Governor) SetBaseRisk(pct float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.baseRiskPct = pct
}

func (g *Governor) BaseRisk() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.baseRiskPct
}

func (g *Governor) IsHardStopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hardStopped
}

func (g *Governor) TradesToday() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tradesToday
}

// Streaks returns the current consecutive loss and win counts.
func (g *Governor) Streaks() (losses, wins int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lossStreak, g.winStreak
}

// pruneTradeTimes drops window entries older than the trailing hour.
// Caller holds g.mu.
func (g *Governor) pruneTradeTimes(now time.Time) {
	cutoff := now.Add(-hourlyWindow)
	i := 0
	for i < len(g.tradeTimes) && !g.tradeTimes[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.tradeTimes = append(g.tradeTimes[:0], g.tradeTimes[i:]...)
	}
}
