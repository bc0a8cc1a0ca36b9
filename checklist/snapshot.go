package checklist

import (
	"fmt"
	"time"

	"github.com/rustyeddy/scalper/features"
	"github.com/rustyeddy/scalper/regime"
)

// Bias is the directional lean derived from price relative to the
// long-period moving average.
type Bias string

const (
	BiasLong    Bias = "LONG"
	BiasShort   Bias = "SHORT"
	BiasNeutral Bias = "NEUTRAL"
)

// Verdict is the risk governor's answer folded into a snapshot.
type Verdict struct {
	CanTrade bool
	Reason   string
}

// Snapshot is an immutable point-in-time view of one symbol: market data,
// indicator values, regime, bias and the risk verdict. It is built once
// per tick per symbol and never mutated afterwards; any change requires a
// new snapshot, so concurrent checklist runs always observe identical
// state for the same logical tick.
type Snapshot struct {
	Symbol string
	Time   time.Time

	Price  float64
	Spread float64 // points

	Session      string
	NewsBlackout bool

	Features features.Row
	Regime   regime.Regime
	Bias     Bias

	CooldownRemaining time.Duration
	Risk              Verdict
}

// NewSnapshot returns s with its feature row deep-copied, detaching the
// snapshot from the engine's working row.
func NewSnapshot(s Snapshot) Snapshot {
	s.Features = s.Features.Clone()
	return s
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Snapshot(%s @ %s, regime=%s, bias=%s)",
		s.Symbol, s.Time.Format(time.RFC3339), s.Regime, s.Bias)
}
