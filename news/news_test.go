package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

const feedBody = `[
  {"title":"Unemployment Claims","country":"USD","date":"2024-01-01T12:00:00+00:00","impact":"High"},
  {"title":"Minor Speech","country":"EUR","date":"2024-01-01T12:00:00+00:00","impact":"Low"}
]`

func testLoader(t *testing.T, handler http.HandlerFunc, at time.Time) *Loader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	l := NewLoader(srv.URL, zerolog.Nop())
	l.now = func() time.Time { return at }
	return l
}

func feedHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(feedBody))
}

func TestBlackoutActiveInsideWindow(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC)
	l := testLoader(t, feedHandler, at)

	assert.True(t, l.Blackout(context.Background(), "EURUSD"))
}

func TestBlackoutInactiveOutsideWindow(t *testing.T) {
	at := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	l := testLoader(t, feedHandler, at)

	assert.False(t, l.Blackout(context.Background(), "EURUSD"))
}

func TestLowImpactAndForeignCurrencyIgnored(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := testLoader(t, feedHandler, at)

	// The only event at noon touching EUR is low impact, and GBPCHF
	// shares no leg with the high-impact USD event.
	assert.False(t, l.Blackout(context.Background(), "GBPCHF"))
}

func TestCacheAvoidsRefetch(t *testing.T) {
	var calls int32
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := testLoader(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		feedHandler(w, r)
	}, at)

	ctx := context.Background()
	l.Blackout(ctx, "EURUSD")
	l.Blackout(ctx, "GBPUSD")
	l.Blackout(ctx, "EURUSD")

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchFailureBacksOff(t *testing.T) {
	var calls int32
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := testLoader(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}, now)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	assert.False(t, l.Blackout(ctx, "EURUSD"))

	// One minute later: still inside the retry backoff, no new call.
	now = now.Add(time.Minute)
	l.Blackout(ctx, "EURUSD")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Past the backoff the loader tries again.
	now = now.Add(retryDelay)
	l.Blackout(ctx, "EURUSD")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRelevantCurrencies(t *testing.T) {
	assert.True(t, relevantCurrencies("EURUSD")["EUR"])
	assert.True(t, relevantCurrencies("EURUSD")["USD"])
	assert.True(t, relevantCurrencies("XAUUSDm")["USD"])
	assert.Empty(t, relevantCurrencies("WEIRD"))
}
