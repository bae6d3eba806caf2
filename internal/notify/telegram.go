// Package notify pushes fire-and-forget chat notifications for stored
// signals.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/argos97/signal-gateway/internal/metrics"
	"github.com/argos97/signal-gateway/internal/retry"
	"github.com/argos97/signal-gateway/internal/signal"
)

// Notifier sends a text message to a configured destination. A nil Notifier
// means notification is disabled.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

const defaultTelegramBase = "https://api.telegram.org"

// Telegram posts messages through the Bot API. Sends are retried twice with a
// 500ms base and failures are the caller's to swallow.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	http    *http.Client
	log     zerolog.Logger
}

// NewTelegram returns nil when token or chat id is missing, which disables
// notification entirely.
func NewTelegram(token, chatID string, log zerolog.Logger) *Telegram {
	if token == "" || chatID == "" {
		return nil
	}
	return &Telegram{
		baseURL: defaultTelegramBase,
		token:   token,
		chatID:  chatID,
		http:    &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

// Send implements Notifier.
func (t *Telegram) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"chat_id": t.chatID, "text": text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimSuffix(t.baseURL, "/"), t.token)

	err = retry.Do(ctx, retry.Config{Attempts: 2, Delay: 500 * time.Millisecond}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.http.Do(req)
		if err != nil {
			return fmt.Errorf("http do: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		metrics.Notifications.WithLabelValues("error").Inc()
		return err
	}
	metrics.Notifications.WithLabelValues("ok").Inc()
	return nil
}

// SignalText renders the standard signal summary message.
func SignalText(rec signal.Record) string {
	return fmt.Sprintf("🔥 %s signal %s\nScore %d | TF %s", strings.ToUpper(rec.Side), rec.Symbol, rec.Score, rec.TF)
}
