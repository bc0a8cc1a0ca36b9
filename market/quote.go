package market

import "time"

// Point is the smallest quotable price increment for the 5-digit FX
// symbols this engine trades. Spread limits are expressed in points.
const Point = 0.00001

// Quote is a two-sided price at an instant.
type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	Time   time.Time
}

func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2.0
}

// SpreadPoints returns the bid/ask distance in points.
func (q Quote) SpreadPoints() float64 {
	return (q.Ask - q.Bid) / Point
}
