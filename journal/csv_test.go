package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dPath := filepath.Join(dir, "decisions.csv")
	tPath := filepath.Join(dir, "trades.csv")

	j, err := NewCSV(dPath, tPath)
	require.NoError(t, err)

	assert.NoError(t, j.RecordDecision(DecisionRecord{
		ID: "D1", Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Symbol: "EURUSD", Regime: "RANGE", Bias: "NEUTRAL",
		CanTrade: false, Reason: "TREND_NEUTRAL", Price: 1.1, Spread: 1.2,
	}))
	assert.NoError(t, j.RecordTrade(TradeRecord{
		ID: "T1", Time: time.Date(2024, 1, 2, 3, 5, 0, 0, time.UTC),
		Ticket: "X", Symbol: "EURUSD", Side: "BUY", Action: "OPEN",
		Volume: 0.1, Price: 1.1002,
	}))
	assert.NoError(t, j.Close())

	df, err := os.Open(dPath)
	require.NoError(t, err)
	defer df.Close()
	rows, err := csv.NewReader(df).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "symbol", rows[0][2])
	assert.Equal(t, "TREND_NEUTRAL", rows[1][6])

	tf, err := os.Open(tPath)
	require.NoError(t, err)
	defer tf.Close()
	trows, err := csv.NewReader(tf).ReadAll()
	require.NoError(t, err)
	require.Len(t, trows, 2)
	assert.Equal(t, "BUY", trows[1][4])
}
