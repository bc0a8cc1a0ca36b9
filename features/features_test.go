package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/scalper/market"
)

func seriesFromCloses(closes ...float64) market.Series {
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	s := make(market.Series, len(closes))
	for i, c := range closes {
		s[i] = market.Candle{
			Open:   c - 0.0002,
			High:   c + 0.0005,
			Low:    c - 0.0005,
			Close:  c,
			Volume: 1000,
			Time:   base.Add(time.Duration(i) * time.Minute),
		}
	}
	return s
}

func TestComputeEmptySeries(t *testing.T) {
	row := Compute(market.Series{})
	assert.Empty(t, row)
}

func TestComputeWithholdsBeforeWarmup(t *testing.T) {
	// 13 candles: one short of the Wilder warmup.
	closes := make([]float64, 13)
	for i := range closes {
		closes[i] = 1.1000 + float64(i)*0.0001
	}
	row := Compute(seriesFromCloses(closes...))

	for _, key := range []string{KeyRSI14, KeyATR14, KeyADX14} {
		_, ok := row.Get(key)
		assert.False(t, ok, "%s should be withheld below 14 candles", key)
	}

	// EMAs and candle metrics are always available.
	_, ok := row.Get(KeyEMA20)
	assert.True(t, ok)
	_, ok = row.Get(KeyCompression)
	assert.True(t, ok)
}

func TestEMASeededByFirstClose(t *testing.T) {
	row := Compute(seriesFromCloses(1.2345))
	v, ok := row.Get(KeyEMA200)
	require.True(t, ok)
	assert.InDelta(t, 1.2345, v, 1e-9)
}

func TestRSIConvergesTo100OnMonotonicRise(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 1.1000 + float64(i)*0.0003
	}
	row := Compute(seriesFromCloses(closes...))

	rsi, ok := row.Get(KeyRSI14)
	require.True(t, ok)
	// avg_loss -> 0 on a strictly rising series.
	assert.InDelta(t, 100.0, rsi, 0.001)
}

func TestRSIWithheldOnFlatSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 1.1000
	}
	row := Compute(seriesFromCloses(closes...))

	_, ok := row.Get(KeyRSI14)
	assert.False(t, ok, "0/0 gain/loss must be withheld, not crash")
}

func TestRSIMidpointOnMixedSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 1.1000
		if i%2 == 0 {
			closes[i] += 0.0010
		}
	}
	row := Compute(seriesFromCloses(closes...))

	rsi, ok := row.Get(KeyRSI14)
	require.True(t, ok)
	assert.Greater(t, rsi, 20.0)
	assert.Less(t, rsi, 80.0)
}

func TestATRReflectsTrueRange(t *testing.T) {
	// Constant 10-pip candle range, no gaps between candles.
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	s := make(market.Series, 30)
	for i := range s {
		s[i] = market.Candle{
			Open:   1.1000,
			High:   1.1010,
			Low:    1.1000,
			Close:  1.1005,
			Volume: 500,
			Time:   base.Add(time.Duration(i) * time.Minute),
		}
	}
	row := Compute(s)

	atr, ok := row.Get(KeyATR14)
	require.True(t, ok)
	assert.InDelta(t, 0.0010, atr, 1e-6)
}

func TestADXNeedsDoubleWarmup(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 1.1000 + float64(i)*0.0004
	}
	row := Compute(seriesFromCloses(closes...))
	_, ok := row.Get(KeyADX14)
	assert.False(t, ok, "ADX needs a full period of DX samples")

	closes = make([]float64, 60)
	for i := range closes {
		closes[i] = 1.1000 + float64(i)*0.0004
	}
	row = Compute(seriesFromCloses(closes...))
	adx, ok := row.Get(KeyADX14)
	require.True(t, ok)
	// Strong one-way trend: ADX should read high.
	assert.Greater(t, adx, 25.0)
}

func TestADXFlatSeriesWithheld(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	s := make(market.Series, 60)
	for i := range s {
		s[i] = market.Candle{
			Open: 1.1, High: 1.1, Low: 1.1, Close: 1.1,
			Volume: 100,
			Time:   base.Add(time.Duration(i) * time.Minute),
		}
	}
	row := Compute(s)
	_, ok := row.Get(KeyADX14)
	assert.False(t, ok, "zero TR and zero DM must withhold ADX, not divide by zero")
}

func TestVWAP(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	s := market.Series{
		{Open: 10, High: 12, Low: 8, Close: 10, Volume: 100, Time: base},
		{Open: 10, High: 14, Low: 10, Close: 12, Volume: 300, Time: base.Add(time.Minute)},
	}
	row := Compute(s)

	vwap, ok := row.Get(KeyVWAP)
	require.True(t, ok)
	tp1 := (12.0 + 8.0 + 10.0) / 3.0
	tp2 := (14.0 + 10.0 + 12.0) / 3.0
	want := (tp1*100 + tp2*300) / 400
	assert.InDelta(t, want, vwap, 1e-9)
}

func TestVWAPWithheldOnZeroVolume(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	s := market.Series{
		{Open: 10, High: 12, Low: 8, Close: 10, Volume: 0, Time: base},
	}
	row := Compute(s)
	_, ok := row.Get(KeyVWAP)
	assert.False(t, ok)
}

func TestCandleMetrics(t *testing.T) {
	t.Run("normal bar", func(t *testing.T) {
		base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
		s := market.Series{
			{Open: 1.1000, High: 1.1010, Low: 1.0990, Close: 1.1005, Volume: 10, Time: base},
		}
		row := Compute(s)
		assert.InDelta(t, 0.0020, row.Value(KeyRange, 0), 1e-9)
		assert.InDelta(t, 0.0005, row.Value(KeyBody, 0), 1e-9)
		assert.InDelta(t, 0.25, row.Value(KeyCompression, 0), 1e-9)
	})

	t.Run("zero range bar counts as decisive", func(t *testing.T) {
		base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
		s := market.Series{
			{Open: 1.1, High: 1.1, Low: 1.1, Close: 1.1, Volume: 10, Time: base},
		}
		row := Compute(s)
		assert.Equal(t, 1.0, row.Value(KeyCompression, 0))
	})
}

func TestComputeIsPure(t *testing.T) {
	s := seriesFromCloses(1.1, 1.2, 1.3)
	before := make(market.Series, len(s))
	copy(before, s)

	first := Compute(s)
	second := Compute(s)

	assert.Equal(t, before, s, "Compute must not mutate the series")
	assert.Equal(t, first, second)
}

func TestRowClone(t *testing.T) {
	row := Row{KeyClose: 1.5}
	clone := row.Clone()
	clone[KeyClose] = 9.9
	assert.Equal(t, 1.5, row[KeyClose])
}
