// Package features computes the technical indicator snapshot used by the
// regime classifier and the pre-trade checklist. All computations are pure
// over the supplied series; a fresh Row is built on every call.
package features

import (
	"math"

	"github.com/rustyeddy/scalper/market"
)

// Indicator keys present in a fully warmed-up Row.
const (
	KeyEMA20       = "EMA_20"
	KeyEMA50       = "EMA_50"
	KeyEMA200      = "EMA_200"
	KeyRSI14       = "RSI_14"
	KeyATR14       = "ATR_14"
	KeyADX14       = "ADX_14"
	KeyVWAP        = "VWAP"
	KeyRange       = "range"
	KeyBody        = "body"
	KeyCompression = "compression"
	KeyOpen        = "open"
	KeyHigh        = "high"
	KeyLow         = "low"
	KeyClose       = "close"
	KeyVolume      = "volume"
)

// wilderPeriod is the shared lookback for RSI, ATR and ADX.
const wilderPeriod = 14

// Row maps indicator name to its value for the most recent candle.
// An indicator that is still warming up, or whose computation hit a
// guarded division by zero, is withheld: the key is simply absent.
// Consumers check presence via Get rather than relying on zero values.
type Row map[string]float64

// Get returns the named value and whether it is defined.
func (r Row) Get(name string) (float64, bool) {
	v, ok := r[name]
	return v, ok
}

// Value returns the named value, or def when it is withheld.
func (r Row) Value(name string, def float64) float64 {
	if v, ok := r[name]; ok {
		return v
	}
	return def
}

// Clone returns an independent copy of the row. Snapshots clone so that
// later recomputations can never be observed through a published snapshot.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Compute derives the full indicator row for the last candle of s.
// It never mutates s and never fails: degenerate input yields an empty
// (or partially filled) Row instead of an error.
func Compute(s market.Series) Row {
	row := Row{}
	n := len(s)
	if n == 0 {
		return row
	}

	last := s[n-1]
	row[KeyOpen] = last.Open
	row[KeyHigh] = last.High
	row[KeyLow] = last.Low
	row[KeyClose] = last.Close
	row[KeyVolume] = last.Volume

	addEMAs(row, s)
	addRSI(row, s)
	addATR(row, s)
	addADX(row, s)
	addVWAP(row, s)
	addCandleMetrics(row, last)

	return row
}

// addEMAs adds EMA 20/50/200. Each EMA is seeded with the first close and
// smoothed with alpha = 2/(span+1); no bias-correction term.
func addEMAs(row Row, s market.Series) {
	row[KeyEMA20] = ema(s, 20)
	row[KeyEMA50] = ema(s, 50)
	row[KeyEMA200] = ema(s, 200)
}

func ema(s market.Series, span int) float64 {
	alpha := 2.0 / float64(span+1)
	v := s[0].Close
	for i := 1; i < len(s); i++ {
		v = alpha*s[i].Close + (1-alpha)*v
	}
	return v
}

// wilder runs the recursive Wilder average (alpha = 1/period) over samples,
// seeded with the first sample.
func wilder(samples []float64, period int) float64 {
	alpha := 1.0 / float64(period)
	v := samples[0]
	for i := 1; i < len(samples); i++ {
		v = alpha*samples[i] + (1-alpha)*v
	}
	return v
}

// addRSI adds RSI_14. Gains and losses are Wilder-smoothed; the first
// candle has no delta and contributes a zero sample. Withheld until 14
// samples are available.
func addRSI(row Row, s market.Series) {
	n := len(s)
	if n < wilderPeriod {
		return
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		delta := s[i].Close - s[i-1].Close
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	avgGain := wilder(gains, wilderPeriod)
	avgLoss := wilder(losses, wilderPeriod)

	switch {
	case avgLoss > 0:
		rs := avgGain / avgLoss
		row[KeyRSI14] = 100.0 - 100.0/(1.0+rs)
	case avgGain > 0:
		// Pure gains: avg_loss -> 0 and RSI converges to 100.
		row[KeyRSI14] = 100.0
	default:
		// Flat series, 0/0: withheld.
	}
}

// trueRange for candle i; the first candle falls back to high-low since it
// has no previous close.
func trueRanges(s market.Series) []float64 {
	trs := make([]float64, len(s))
	trs[0] = s[0].High - s[0].Low
	for i := 1; i < len(s); i++ {
		hl := s[i].High - s[i].Low
		hc := math.Abs(s[i].High - s[i-1].Close)
		lc := math.Abs(s[i].Low - s[i-1].Close)
		trs[i] = math.Max(hl, math.Max(hc, lc))
	}
	return trs
}

func addATR(row Row, s market.Series) {
	if len(s) < wilderPeriod {
		return
	}
	row[KeyATR14] = wilder(trueRanges(s), wilderPeriod)
}

// addADX adds ADX_14. Directional movement keeps only the larger positive
// move; +DI/-DI are normalized by the smoothed true range; DX samples where
// a denominator collapses to zero are withheld from the ADX average. The
// value is withheld until 14 DX samples exist (so roughly 2x the period of
// candles is needed before ADX appears).
func addADX(row Row, s market.Series) {
	n := len(s)
	if n < wilderPeriod {
		return
	}

	pdm := make([]float64, n)
	mdm := make([]float64, n)
	for i := 1; i < n; i++ {
		up := s[i].High - s[i-1].High
		down := s[i-1].Low - s[i].Low
		if up > down && up > 0 {
			pdm[i] = up
		}
		if down > up && down > 0 {
			mdm[i] = down
		}
	}
	trs := trueRanges(s)

	alpha := 1.0 / float64(wilderPeriod)
	smTR := trs[0]
	smPDM := pdm[0]
	smMDM := mdm[0]

	var adx float64
	var dxCount int
	for i := 1; i < n; i++ {
		smTR = alpha*trs[i] + (1-alpha)*smTR
		smPDM = alpha*pdm[i] + (1-alpha)*smPDM
		smMDM = alpha*mdm[i] + (1-alpha)*smMDM

		// DI values are meaningless until the smoothings have a full
		// period of samples behind them.
		if i < wilderPeriod-1 {
			continue
		}
		if smTR == 0 {
			continue
		}
		pdi := 100.0 * smPDM / smTR
		mdi := 100.0 * smMDM / smTR
		den := pdi + mdi
		if den == 0 {
			continue
		}
		dx := 100.0 * math.Abs(pdi-mdi) / den

		if dxCount == 0 {
			adx = dx
		} else {
			adx = alpha*dx + (1-alpha)*adx
		}
		dxCount++
	}

	if dxCount >= wilderPeriod {
		row[KeyADX14] = adx
	}
}

// addVWAP adds the cumulative volume-weighted average price over the whole
// supplied series. There is no implicit session boundary: the caller resets
// VWAP by supplying a fresh series. Withheld when total volume is zero.
func addVWAP(row Row, s market.Series) {
	var pv, vol float64
	for _, c := range s {
		pv += c.TypicalPrice() * c.Volume
		vol += c.Volume
	}
	if vol > 0 {
		row[KeyVWAP] = pv / vol
	}
}

// addCandleMetrics adds range, body and compression for the last candle.
// A zero-range bar is defined as compression 1.0 (maximally decisive) so
// it cannot masquerade as chop.
func addCandleMetrics(row Row, c market.Candle) {
	rng := c.Range()
	body := c.Body()
	row[KeyRange] = rng
	row[KeyBody] = body
	if rng > 0 {
		row[KeyCompression] = body / rng
	} else {
		row[KeyCompression] = 1.0
	}
}
