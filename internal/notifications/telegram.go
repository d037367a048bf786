package notifications

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

type TelegramNotifier struct {
	token  string
	chatID string
	client *http.Client
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) NotifyAlert(ctx context.Context, alert types.Alert) error {
	emoji := "ℹ️"
	switch alert.Severity {
	case types.SeverityMedium:
		emoji = "⚠️"
	case types.SeverityHigh:
		emoji = "🚨"
	case types.SeverityCritical:
		emoji = "🔥"
	}

	text := fmt.Sprintf("%s *Risk Alert: %s*\n\n%s\nCurrent: %.2f, Limit: %.2f",
		emoji, alert.Metric, alert.Message, alert.CurrentValue, alert.Threshold)
	if len(alert.Recommendations) > 0 {
		text += "\n\n" + strings.Join(alert.Recommendations, "\n")
	}

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL,
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
