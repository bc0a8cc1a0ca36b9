// Package market holds the basic price data types shared by every other
// package: candles, candle series and quotes.
package market

import "time"

// Candle represents one OHLCV candlestick.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Time   time.Time
}

// Range is High - Low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Body is the absolute open-to-close distance.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// TypicalPrice is (High+Low+Close)/3, used by VWAP.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3.0
}

// Series is an ordered, time-ascending candle sequence with no duplicate
// timestamps. The series is owned by the caller; consumers must never
// mutate it, only derive new values from it.
type Series []Candle

func (s Series) Len() int {
	return len(s)
}

// Last returns the most recent candle. ok is false on an empty series.
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// Sorted reports whether the series is strictly time-ascending.
func (s Series) Sorted() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].Time.After(s[i-1].Time) {
			return false
		}
	}
	return true
}
