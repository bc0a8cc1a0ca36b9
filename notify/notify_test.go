package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTelegramSend(t *testing.T) {
	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		r.ParseForm()
		gotChat = r.FormValue("chat_id")
		gotText = r.FormValue("text")
	}))
	defer srv.Close()

	n := NewTelegram("token123", "42", srv.URL, zerolog.Nop())
	n.Send(context.Background(), "hard stop triggered")

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Equal(t, "hard stop triggered", gotText)
}

func TestTelegramSendSwallowsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegram("bad", "42", srv.URL, zerolog.Nop())
	// Must not panic or block; failure is logged only.
	n.Send(context.Background(), "ignored")
}
