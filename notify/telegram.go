package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramSink posts events to a chat through the Bot API. Events without a
// Channel go to DefaultChat; when both are empty the event is skipped.
type TelegramSink struct {
	Token       string
	DefaultChat string
	BaseURL     string // override for tests
	Client      *http.Client
}

func NewTelegramSink(token, defaultChat string) *TelegramSink {
	return &TelegramSink{
		Token:       token,
		DefaultChat: defaultChat,
		BaseURL:     telegramAPI,
		Client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (s *TelegramSink) Send(ctx context.Context, ev Event) error {
	chat := ev.Channel
	if chat == "" {
		chat = s.DefaultChat
	}
	if chat == "" {
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: chat, Text: ev.Text()})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.BaseURL, s.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	var tr telegramResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &tr)
	if resp.StatusCode != http.StatusOK || !tr.OK {
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode, tr.Description)
	}
	return nil
}
