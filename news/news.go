// Package news tracks high-impact economic calendar events and answers
// one question: is the symbol inside a news blackout window right now.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFeedURL is the public weekly calendar feed.
const DefaultFeedURL = "https://nfs.faireconomy.media/ff_calendar_thisweek.json"

const (
	cacheDuration   = 4 * time.Hour
	retryDelay      = 5 * time.Minute
	blackoutMinutes = 15
	fetchTimeout    = 10 * time.Second
)

// Event is one calendar entry. Country carries the affected currency
// code, not an ISO country.
type Event struct {
	Title   string `json:"title"`
	Country string `json:"country"`
	Date    string `json:"date"`
	Impact  string `json:"impact"`
}

// Loader fetches the calendar lazily and caches it. A failed fetch
// backs off for retryDelay instead of hammering the feed every tick.
type Loader struct {
	mu        sync.Mutex
	url       string
	client    *http.Client
	cache     []Event
	lastFetch time.Time
	now       func() time.Time
	log       zerolog.Logger
}

func NewLoader(url string, log zerolog.Logger) *Loader {
	if url == "" {
		url = DefaultFeedURL
	}
	return &Loader{
		url:    url,
		client: &http.Client{Timeout: fetchTimeout},
		now:    time.Now,
		log:    log.With().Str("component", "news").Logger(),
	}
}

// refreshLocked re-fetches the feed when the cache has expired. Only
// high-impact events are kept. Caller holds l.mu.
func (l *Loader) refreshLocked(ctx context.Context) {
	now := l.now()
	if now.Sub(l.lastFetch) < cacheDuration {
		return
	}

	events, err := l.fetch(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("news fetch failed")
		// Pull the next attempt forward to retryDelay from now
		// rather than waiting a full cache period.
		l.lastFetch = now.Add(retryDelay - cacheDuration)
		return
	}

	l.cache = l.cache[:0]
	for _, e := range events {
		if e.Impact == "High" {
			l.cache = append(l.cache, e)
		}
	}
	l.lastFetch = now
	l.log.Info().Int("events", len(l.cache)).Msg("news calendar refreshed")
}

func (l *Loader) fetch(ctx context.Context) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch calendar: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode calendar: %w", err)
	}
	return events, nil
}

// relevantCurrencies splits a six-char pair into its two legs; anything
// else matches USD only when the symbol contains it.
func relevantCurrencies(symbol string) map[string]bool {
	rel := make(map[string]bool, 2)
	if len(symbol) == 6 {
		rel[symbol[:3]] = true
		rel[symbol[3:]] = true
	} else if strings.Contains(symbol, "USD") {
		rel["USD"] = true
	}
	return rel
}

// Blackout reports whether a high-impact event for either leg of the
// symbol falls within the +/-15 minute window around now. Events with
// unparseable timestamps are skipped.
func (l *Loader) Blackout(ctx context.Context, symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refreshLocked(ctx)
	if len(l.cache) == 0 {
		return false
	}

	relevant := relevantCurrencies(symbol)
	now := l.now().UTC()
	start := now.Add(-blackoutMinutes * time.Minute)
	end := now.Add(blackoutMinutes * time.Minute)

	for _, e := range l.cache {
		if !relevant[e.Country] {
			continue
		}
		when, err := time.Parse(time.RFC3339, e.Date)
		if err != nil {
			continue
		}
		when = when.UTC()
		if !when.Before(start) && !when.After(end) {
			l.log.Warn().
				Str("event", e.Title).
				Str("currency", e.Country).
				Time("at", when).
				Msg("news blackout active")
			return true
		}
	}
	return false
}
