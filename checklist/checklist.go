// Package checklist implements the layered pre-trade gate: a fixed,
// ordered sequence of independent pass/fail rules over a decision
// snapshot, evaluated with early exit on the first failure.
package checklist

import (
	"fmt"

	"github.com/rustyeddy/scalper/features"
	"github.com/rustyeddy/scalper/regime"
)

// AllChecksPassed is the single reason reported on a full pass.
const AllChecksPassed = "ALL CHECKS PASSED"

// Decision is the gate's verdict: either approved with the sentinel
// reason, or rejected with the first failing check's reason.
type Decision struct {
	CanTrade bool
	Reasons  []string
}

type check struct {
	name string
	fn   func(Snapshot) (bool, string)
}

// Gate evaluates the eight checklist layers in order. Checks are
// side-effect free; a Gate is safe for concurrent use.
type Gate struct {
	MaxSpreadPoints float64
	MinATR          float64

	checks []check
}

// NewGate builds a gate with the given spread ceiling (points) and
// volatility floor (ATR in price units).
func NewGate(maxSpreadPoints, minATR float64) *Gate {
	g := &Gate{
		MaxSpreadPoints: maxSpreadPoints,
		MinATR:          minATR,
	}
	g.checks = []check{
		{"spread", g.checkSpread},
		{"risk", g.checkRisk},
		{"regime", g.checkRegime},
		{"bias", g.checkBias},
		{"entry", g.checkEntrySetup},
		{"volatility", g.checkVolatility},
		{"timing", g.checkTiming},
		{"price", g.checkPrice},
	}
	return g
}

// Run short-circuits at the first failing check.
func (g *Gate) Run(s Snapshot) Decision {
	for _, c := range g.checks {
		if ok, reason := c.fn(s); !ok {
			return Decision{CanTrade: false, Reasons: []string{reason}}
		}
	}
	return Decision{CanTrade: true, Reasons: []string{AllChecksPassed}}
}

func (g *Gate) checkSpread(s Snapshot) (bool, string) {
	if s.Spread > g.MaxSpreadPoints {
		return false, fmt.Sprintf("SPREAD_TOO_HIGH: %.1f > %.1f", s.Spread, g.MaxSpreadPoints)
	}
	return true, ""
}

func (g *Gate) checkRisk(s Snapshot) (bool, string) {
	if !s.Risk.CanTrade {
		return false, "RISK_LIMIT_HIT"
	}
	return true, ""
}

func (g *Gate) checkRegime(s Snapshot) (bool, string) {
	switch s.Regime {
	case regime.Chop, regime.Undefined, regime.RangeTight:
		return false, fmt.Sprintf("BAD_REGIME: %s", s.Regime)
	}
	return true, ""
}

func (g *Gate) checkBias(s Snapshot) (bool, string) {
	if s.Bias == BiasNeutral {
		return false, "TREND_NEUTRAL"
	}
	return true, ""
}

// checkEntrySetup rejects entries stretched against the bias: longs into
// an overbought RSI, shorts into an oversold one. A withheld RSI reads as
// the 50 midpoint and passes.
func (g *Gate) checkEntrySetup(s Snapshot) (bool, string) {
	rsi := s.Features.Value(features.KeyRSI14, 50)
	switch s.Bias {
	case BiasLong:
		if rsi > 70 {
			return false, "RSI_OVERBOUGHT_FOR_LONG"
		}
	case BiasShort:
		if rsi < 30 {
			return false, "RSI_OVERSOLD_FOR_SHORT"
		}
	}
	return true, ""
}

func (g *Gate) checkVolatility(s Snapshot) (bool, string) {
	atr := s.Features.Value(features.KeyATR14, 0)
	if atr < g.MinATR {
		return false, fmt.Sprintf("LOW_VOLATILITY: ATR %.5f", atr)
	}
	return true, ""
}

func (g *Gate) checkTiming(s Snapshot) (bool, string) {
	if s.NewsBlackout {
		return false, "NEWS_EVENT_ACTIVE"
	}
	if s.CooldownRemaining > 0 {
		return false, fmt.Sprintf("COOLDOWN_ACTIVE: %s", s.CooldownRemaining)
	}
	return true, ""
}

func (g *Gate) checkPrice(s Snapshot) (bool, string) {
	if s.Price <= 0 {
		return false, "INVALID_PRICE"
	}
	return true, ""
}
