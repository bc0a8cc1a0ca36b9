// Package control is the operator command channel. A Telegram long-poll
// loop accepts a small command set from an allowlisted chat and drives
// the running engine: status, panic close, risk adjustment.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Engine is the surface the command loop drives.
type Engine interface {
	StatusSummary(ctx context.Context) string
	PanicCloseAll(ctx context.Context) (int, error)
	SetRiskPercent(pct float64) error
}

const (
	pollTimeout  = 30 * time.Second
	errorBackoff = 5 * time.Second
)

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

// Telegram polls getUpdates and dispatches commands. Messages from any
// chat but the configured one are dropped without a reply.
type Telegram struct {
	base   string
	chatID int64
	engine Engine
	client *http.Client
	offset int64
	log    zerolog.Logger
}

// NewTelegram builds the command loop. baseURL overrides the API host
// for tests; empty means api.telegram.org.
func NewTelegram(token string, chatID int64, engine Engine, baseURL string, log zerolog.Logger) *Telegram {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Telegram{
		base:   fmt.Sprintf("%s/bot%s", strings.TrimRight(baseURL, "/"), token),
		chatID: chatID,
		engine: engine,
		client: &http.Client{Timeout: pollTimeout + 10*time.Second},
		log:    log.With().Str("component", "control").Logger(),
	}
}

// Run long-polls until ctx is cancelled. Poll failures back off and
// retry; the loop never gives up on a transient error.
func (t *Telegram) Run(ctx context.Context) error {
	t.log.Info().Msg("command loop started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := t.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.log.Warn().Err(err).Msg("poll failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(errorBackoff):
			}
			continue
		}

		for _, u := range updates {
			t.offset = u.UpdateID + 1
			t.handle(ctx, u)
		}
	}
}

func (t *Telegram) poll(ctx context.Context) ([]update, error) {
	q := url.Values{
		"timeout": {strconv.Itoa(int(pollTimeout.Seconds()))},
		"offset":  {strconv.FormatInt(t.offset, 10)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.base+"/getUpdates?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed updatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("getUpdates not ok (status %d)", resp.StatusCode)
	}
	return parsed.Result, nil
}

func (t *Telegram) handle(ctx context.Context, u update) {
	if u.Message == nil {
		return
	}
	if u.Message.Chat.ID != t.chatID {
		t.log.Warn().Int64("chat", u.Message.Chat.ID).Msg("command from unknown chat dropped")
		return
	}

	fields := strings.Fields(u.Message.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return
	}
	cmd := strings.ToLower(fields[0])
	t.log.Info().Str("command", cmd).Msg("operator command")

	switch cmd {
	case "/start", "/help":
		t.reply(ctx, "commands:\n/status - system overview\n/panic - close all positions\n/risk <pct> - set per-trade risk")
	case "/status":
		t.reply(ctx, t.engine.StatusSummary(ctx))
	case "/panic":
		closed, err := t.engine.PanicCloseAll(ctx)
		if err != nil {
			t.reply(ctx, fmt.Sprintf("panic close failed: %v", err))
			return
		}
		t.reply(ctx, fmt.Sprintf("panic close done, %d positions closed", closed))
	case "/risk":
		if len(fields) < 2 {
			t.reply(ctx, "usage: /risk <percent>")
			return
		}
		pct, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			t.reply(ctx, fmt.Sprintf("bad value %q", fields[1]))
			return
		}
		if err := t.engine.SetRiskPercent(pct); err != nil {
			t.reply(ctx, err.Error())
			return
		}
		t.reply(ctx, fmt.Sprintf("risk set to %.2f%%", pct))
	default:
		t.reply(ctx, fmt.Sprintf("unknown command %s", cmd))
	}
}

func (t *Telegram) reply(ctx context.Context, text string) {
	form := url.Values{
		"chat_id": {strconv.FormatInt(t.chatID, 10)},
		"text":    {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.base+"/sendMessage", strings.NewReader(form.Encode()))
	if err != nil {
		t.log.Error().Err(err).Msg("build reply")
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Error().Err(err).Msg("reply failed")
		return
	}
	resp.Body.Close()
}
