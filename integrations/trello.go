package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/akiross/trellobot/internal/models"
	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

const trelloBaseURL = "https://api.trello.com/1"

type TrelloClient struct {
	Client   *http.Client
	APIKey   string
	APIToken string
	BaseURL  string
}

func NewTrelloClient(key, token string) *TrelloClient {
	return &TrelloClient{
		Client:   &http.Client{},
		APIKey:   key,
		APIToken: token,
		BaseURL:  trelloBaseURL,
	}
}

// FetchCards returns a snapshot of every card on the given boards. Any board
// failing to fetch fails the whole snapshot; a partial snapshot would make
// the reconciler unschedule cards that still exist.
func (tc *TrelloClient) FetchCards(ctx context.Context, boardIDs []string) ([]models.Card, error) {
	var cards []models.Card
	for _, boardID := range boardIDs {
		fetched, err := tc.fetchBoardCards(ctx, boardID)
		if err != nil {
			return nil, fmt.Errorf("fetch cards for board %s: %w", boardID, err)
		}
		cards = append(cards, fetched...)
	}
	return cards, nil
}

func (tc *TrelloClient) fetchBoardCards(ctx context.Context, boardID string) ([]models.Card, error) {
	query := url.Values{}
	query.Set("key", tc.APIKey)
	query.Set("token", tc.APIToken)
	query.Set("fields", "name,due,dueComplete,shortLink,idBoard")
	apiURL := fmt.Sprintf("%s/boards/%s/cards?%s", tc.BaseURL, boardID, query.Encode())

	var data []models.TrelloCardData
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
			if err != nil {
				return fmt.Errorf("failed to create get request: %v", err)
			}

			resp, err := tc.Client.Do(req)
			if err != nil {
				return fmt.Errorf("failed to send get request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				bodyBytes, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("trello API returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
			}

			data = data[:0]
			if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
				return fmt.Errorf("failed to decode Trello response: %v", err)
			}
			return nil
		},
		retry.Attempts(3),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	cards := make([]models.Card, 0, len(data))
	for _, d := range data {
		if d.Due != "" {
			if _, perr := time.Parse(time.RFC3339, d.Due); perr != nil {
				zap.L().Warn("Card has malformed due date, treating as none",
					zap.String("cardID", d.ID), zap.String("due", d.Due))
			}
		}
		cards = append(cards, d.Snapshot())
	}
	return cards, nil
}
