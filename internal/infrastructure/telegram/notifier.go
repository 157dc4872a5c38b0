package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"ThreatIngest/internal/ports"
)

const (
	defaultAPIURL = "https://api.telegram.org"
	// Telegram rejects longer messages.
	maxMessageRunes = 4096
)

// Notifier sends run summaries to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	client   *resty.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. apiURL overrides the
// public Bot API endpoint when not empty.
func NewNotifier(botToken, chatID, apiURL string) *Notifier {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   resty.New().SetBaseURL(apiURL).SetTimeout(5 * time.Second),
	}
}

// Enabled reports whether both the token and the chat are configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// PublishSummary posts the summary as a plain-text message.
func (n *Notifier) PublishSummary(ctx context.Context, summary string) error {
	if !n.Enabled() {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetPathParam("token", n.botToken).
		SetFormData(map[string]string{
			"chat_id": n.chatID,
			"text":    clip(summary, maxMessageRunes),
		}).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("telegram error: %s", resp.Status())
	}

	return nil
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
