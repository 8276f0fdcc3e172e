package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/avast/retry-go"
)

const telegramBaseURL = "https://api.telegram.org"

// TelegramNotifier delivers reminder messages to a single chat through the
// Telegram Bot API.
type TelegramNotifier struct {
	Client  *http.Client
	Token   string
	ChatID  int64
	BaseURL string
}

func NewTelegramNotifier(token string, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		Client:  &http.Client{},
		Token:   token,
		ChatID:  chatID,
		BaseURL: telegramBaseURL,
	}
}

func (tn *TelegramNotifier) Deliver(ctx context.Context, message string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", tn.BaseURL, tn.Token)

	formData := url.Values{}
	formData.Set("chat_id", strconv.FormatInt(tn.ChatID, 10))
	formData.Set("text", message)
	formData.Set("parse_mode", "Markdown")
	formData.Set("disable_web_page_preview", "true")

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBufferString(formData.Encode()))
			if err != nil {
				return fmt.Errorf("failed to create post request: %v", err)
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			resp, err := tn.Client.Do(req)
			if err != nil {
				return fmt.Errorf("failed to send post request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				bodyBytes, _ := io.ReadAll(resp.Body)
				err := fmt.Errorf("telegram API returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					// Client errors will not heal on retry.
					return retry.Unrecoverable(err)
				}
				return err
			}

			var result struct {
				OK          bool   `json:"ok"`
				Description string `json:"description"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				return fmt.Errorf("failed to decode Telegram response: %v", err)
			}
			if !result.OK {
				return retry.Unrecoverable(fmt.Errorf("telegram API rejected message: %s", result.Description))
			}
			return nil
		},
		retry.Attempts(3),
		retry.LastErrorOnly(true),
	)
}
