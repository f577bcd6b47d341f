// Package notify provides best-effort alert delivery.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"okx-trader/internal/config"
	"okx-trader/pkg/utils"
)

// Notifier delivers alert messages. Delivery is best effort: failures
// are logged, never raised to the trading cycle.
type Notifier interface {
	SendMessages(ctx context.Context, messages []string)
}

// TelegramNotifier sends alerts through the Telegram bot API, one
// request per configured chat id.
type TelegramNotifier struct {
	botToken string
	chatIDs  []string
	logger   zerolog.Logger
	client   *http.Client
	retryCfg utils.RetryConfig
}

// NewTelegramNotifier creates a new TelegramNotifier.
func NewTelegramNotifier(cfg config.NotificationConfig, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatIDs:  cfg.ChatIDs,
		logger:   logger,
		client:   &http.Client{Timeout: 10 * time.Second},
		retryCfg: utils.RetryConfig{
			MaxAttempts:   2,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			BackoffFactor: 2.0,
		},
	}
}

// SendMessages sends each message to every chat id.
func (t *TelegramNotifier) SendMessages(ctx context.Context, messages []string) {
	for _, msg := range messages {
		for _, chatID := range t.chatIDs {
			err := utils.Retry(ctx, t.retryCfg, func() error {
				return t.send(ctx, chatID, msg)
			})
			if err != nil {
				t.logger.Warn().Err(err).Str("chat_id", chatID).Msg("failed to deliver telegram alert")
			}
		}
	}
}

func (t *TelegramNotifier) send(ctx context.Context, chatID, text string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)

	payload := map[string]string{
		"chat_id": chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier writes alerts to the logger only. Used when Telegram is
// disabled and in tests.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendMessages logs each message.
func (n *LogNotifier) SendMessages(ctx context.Context, messages []string) {
	for _, msg := range messages {
		n.logger.Info().Str("alert", msg).Msg("alert")
	}
}
