package risk

import "math"

// lotUnits is one standard lot's base-currency unit size.
const lotUnits = 100000.0

// minLot is the smallest tradable volume; a valid sizing request is
// floored here, never rounded down to zero.
const minLot = 0.01

// LotSize converts a risk percentage and a stop distance into an order
// volume in lots. Invalid balance, entry or stop (or a zero stop distance)
// yields 0; any otherwise valid request returns at least minLot.
func LotSize(balance, entry, stop, riskPct float64) float64 {
	if balance <= 0 || entry <= 0 || stop <= 0 {
		return 0
	}

	dist := math.Abs(entry - stop)
	if dist == 0 {
		return 0
	}

	riskAmount := balance * (riskPct / 100.0)
	raw := riskAmount / (lotUnits * dist)
	lots := math.Round(raw*100) / 100
	if lots < minLot {
		return minLot
	}
	return lots
}
