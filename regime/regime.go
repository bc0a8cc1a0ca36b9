// Package regime classifies the prevailing market behavior from the latest
// feature row. The heuristic classifier is always available; an injected
// predictive model may refine the trend/range calls but can never block a
// decision.
package regime

import (
	"github.com/rs/zerolog"

	"github.com/rustyeddy/scalper/features"
)

// Regime is a coarse label for recent price behavior.
type Regime string

const (
	TrendUp   Regime = "TREND_UP"
	TrendDown Regime = "TREND_DOWN"
	Range     Regime = "RANGE"
	Chop      Regime = "CHOP"
	Undefined Regime = "UNDEFINED"

	// RangeTight is never produced by the heuristics but is a valid model
	// output and is rejected by the checklist like Chop.
	RangeTight Regime = "RANGE_TIGHT"
)

// Valid reports whether r is a label this engine understands.
func (r Regime) Valid() bool {
	switch r {
	case TrendUp, TrendDown, Range, Chop, Undefined, RangeTight:
		return true
	}
	return false
}

// Heuristic thresholds.
const (
	minADXTrend        = 25.0
	maxADXChop         = 20.0
	maxCompressionChop = 0.3
)

// Model is an optional predictive classifier over the same feature row.
// It may replace the trend/range heuristics; the chop guard always runs
// first. A failing model falls back to heuristics.
type Model interface {
	Classify(row features.Row) (Regime, error)
}

type Classifier struct {
	model Model
	log   zerolog.Logger
}

// NewClassifier builds a classifier. model may be nil, in which case the
// heuristics alone decide.
func NewClassifier(model Model, log zerolog.Logger) *Classifier {
	return &Classifier{model: model, log: log}
}

// Classify maps the feature row for the latest candle to a regime label.
// samples is the number of candles the row was computed from; below the
// indicator warmup the regime is Undefined.
func (c *Classifier) Classify(row features.Row, samples int) Regime {
	if samples < 14 || len(row) == 0 {
		return Undefined
	}

	adx := row.Value(features.KeyADX14, 0)
	compression := row.Value(features.KeyCompression, 1.0)

	// Chop guard runs before any model: low trend strength plus indecisive
	// candles is a hard no-trade regime.
	if adx < maxADXChop && compression < maxCompressionChop {
		return Chop
	}

	if c.model != nil {
		r, err := c.model.Classify(row)
		if err == nil && r.Valid() {
			return r
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("regime model failed, falling back to heuristics")
		}
	}

	close := row.Value(features.KeyClose, 0)
	ema20 := row.Value(features.KeyEMA20, 0)
	ema50 := row.Value(features.KeyEMA50, 0)

	if adx > minADXTrend {
		if close > ema20 && ema20 > ema50 {
			return TrendUp
		}
		if close < ema20 && ema20 < ema50 {
			return TrendDown
		}
	}

	// Moderate ADX or entangled moving averages.
	return Range
}
