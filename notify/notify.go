// Package notify pushes human-facing alerts (trade opens, hard stops,
// panics) to an external channel. Delivery is best effort: a dead
// notifier must never stall or fail the trading loop, so errors are
// logged and swallowed.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers a plain-text message.
type Notifier interface {
	Send(ctx context.Context, text string)
}

// Nop discards everything. Used when no channel is configured.
type Nop struct{}

func (Nop) Send(ctx context.Context, text string) {}

// Telegram posts messages through the bot sendMessage endpoint.
type Telegram struct {
	base   string
	chatID string
	client *http.Client
	log    zerolog.Logger
}

// NewTelegram builds a notifier for the given bot token and chat.
// baseURL overrides the API host for tests; empty means api.telegram.org.
func NewTelegram(token, chatID, baseURL string, log zerolog.Logger) *Telegram {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Telegram{
		base:   fmt.Sprintf("%s/bot%s", strings.TrimRight(baseURL, "/"), token),
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.With().Str("component", "notify").Logger(),
	}
}

func (t *Telegram) Send(ctx context.Context, text string) {
	form := url.Values{
		"chat_id": {t.chatID},
		"text":    {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.base+"/sendMessage", strings.NewReader(form.Encode()))
	if err != nil {
		t.log.Error().Err(err).Msg("notify: build request")
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Error().Err(err).Msg("notify: send failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.log.Error().Int("status", resp.StatusCode).Msg("notify: send rejected")
	}
}
