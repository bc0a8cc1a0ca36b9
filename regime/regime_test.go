package regime

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/scalper/features"
)

func newTestClassifier(m Model) *Classifier {
	return NewClassifier(m, zerolog.Nop())
}

func TestClassifyUndefinedBelowWarmup(t *testing.T) {
	c := newTestClassifier(nil)

	row := features.Row{features.KeyADX14: 30, features.KeyClose: 1.2}
	assert.Equal(t, Undefined, c.Classify(row, 13))
	assert.Equal(t, Undefined, c.Classify(features.Row{}, 500))
}

func TestClassifyHeuristics(t *testing.T) {
	c := newTestClassifier(nil)

	t.Run("chop on low adx and compressed candles", func(t *testing.T) {
		row := features.Row{
			features.KeyADX14:       15,
			features.KeyCompression: 0.1,
		}
		assert.Equal(t, Chop, c.Classify(row, 100))
	})

	t.Run("trend up", func(t *testing.T) {
		row := features.Row{
			features.KeyADX14:       30,
			features.KeyCompression: 0.8,
			features.KeyClose:       1.1050,
			features.KeyEMA20:       1.1040,
			features.KeyEMA50:       1.1020,
		}
		assert.Equal(t, TrendUp, c.Classify(row, 100))
	})

	t.Run("trend down", func(t *testing.T) {
		row := features.Row{
			features.KeyADX14:       30,
			features.KeyCompression: 0.8,
			features.KeyClose:       1.0990,
			features.KeyEMA20:       1.1000,
			features.KeyEMA50:       1.1020,
		}
		assert.Equal(t, TrendDown, c.Classify(row, 100))
	})

	t.Run("range on moderate adx", func(t *testing.T) {
		row := features.Row{
			features.KeyADX14:       22,
			features.KeyCompression: 0.8,
			features.KeyClose:       1.1000,
			features.KeyEMA20:       1.1005,
			features.KeyEMA50:       1.0995,
		}
		assert.Equal(t, Range, c.Classify(row, 100))
	})

	t.Run("range when EMAs entangled despite high adx", func(t *testing.T) {
		row := features.Row{
			features.KeyADX14:       30,
			features.KeyCompression: 0.8,
			features.KeyClose:       1.1030,
			features.KeyEMA20:       1.1000,
			features.KeyEMA50:       1.1010,
		}
		assert.Equal(t, Range, c.Classify(row, 100))
	})

	t.Run("withheld adx reads as zero, never trends", func(t *testing.T) {
		row := features.Row{
			features.KeyCompression: 0.9,
			features.KeyClose:       1.2,
			features.KeyEMA20:       1.1,
			features.KeyEMA50:       1.0,
		}
		assert.Equal(t, Range, c.Classify(row, 100))
	})
}

type stubModel struct {
	regime Regime
	err    error
	calls  int
}

func (m *stubModel) Classify(features.Row) (Regime, error) {
	m.calls++
	return m.regime, m.err
}

func TestClassifyModelOverride(t *testing.T) {
	trendRow := features.Row{
		features.KeyADX14:       30,
		features.KeyCompression: 0.8,
		features.KeyClose:       1.1050,
		features.KeyEMA20:       1.1040,
		features.KeyEMA50:       1.1020,
	}

	t.Run("model result wins over heuristics", func(t *testing.T) {
		m := &stubModel{regime: RangeTight}
		c := newTestClassifier(m)
		assert.Equal(t, RangeTight, c.Classify(trendRow, 100))
		assert.Equal(t, 1, m.calls)
	})

	t.Run("failing model falls back to heuristics", func(t *testing.T) {
		m := &stubModel{err: errors.New("model unavailable")}
		c := newTestClassifier(m)
		assert.Equal(t, TrendUp, c.Classify(trendRow, 100))
	})

	t.Run("bogus model label falls back", func(t *testing.T) {
		m := &stubModel{regime: Regime("SIDEWAYS_MAYBE")}
		c := newTestClassifier(m)
		assert.Equal(t, TrendUp, c.Classify(trendRow, 100))
	})

	t.Run("chop guard runs before the model", func(t *testing.T) {
		m := &stubModel{regime: TrendUp}
		c := newTestClassifier(m)
		chopRow := features.Row{
			features.KeyADX14:       10,
			features.KeyCompression: 0.05,
		}
		assert.Equal(t, Chop, c.Classify(chopRow, 100))
		assert.Equal(t, 0, m.calls)
	})
}
