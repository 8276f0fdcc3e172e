package models

import (
	"fmt"
	"time"
)

// Card is one entry of a point-in-time board snapshot fetched from Trello.
type Card struct {
	ID        string
	Name      string
	URL       string
	BoardID   string
	Due       *time.Time
	Completed bool
}

type TrelloCardData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Due         string `json:"due"`
	DueComplete bool   `json:"dueComplete"`
	ShortLink   string `json:"shortLink"`
	IDBoard     string `json:"idBoard"`
}

// Snapshot converts the raw API payload into a snapshot Card. A missing or
// unparseable due date yields a card with no due date; it is never an error.
func (d TrelloCardData) Snapshot() Card {
	card := Card{
		ID:        d.ID,
		Name:      d.Name,
		URL:       fmt.Sprintf("https://trello.com/c/%s", d.ShortLink),
		BoardID:   d.IDBoard,
		Completed: d.DueComplete,
	}
	if d.Due != "" {
		if due, err := time.Parse(time.RFC3339, d.Due); err == nil {
			card.Due = &due
		}
	}
	return card
}
