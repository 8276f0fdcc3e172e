package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchCardsParsesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" || r.URL.Query().Get("token") != "t" {
			t.Errorf("missing credentials in query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "c1", "name": "Dued", "due": "2026-03-10T15:00:00Z", "dueComplete": false, "shortLink": "abc", "idBoard": "b1"},
			{"id": "c2", "name": "No due", "due": "", "dueComplete": false, "shortLink": "def", "idBoard": "b1"},
			{"id": "c3", "name": "Bad due", "due": "not-a-date", "dueComplete": true, "shortLink": "ghi", "idBoard": "b1"}
		]`))
	}))
	defer srv.Close()

	tc := NewTrelloClient("k", "t")
	tc.BaseURL = srv.URL

	cards, err := tc.FetchCards(context.Background(), []string{"b1"})
	if err != nil {
		t.Fatalf("fetch cards: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}

	if cards[0].Due == nil || cards[0].Due.Hour() != 15 {
		t.Errorf("card c1 should have its due date parsed, got %v", cards[0].Due)
	}
	if cards[0].URL != "https://trello.com/c/abc" {
		t.Errorf("unexpected card URL: %s", cards[0].URL)
	}
	if cards[1].Due != nil {
		t.Errorf("card c2 should have no due date")
	}
	// A malformed due date is tolerated and treated as absent.
	if cards[2].Due != nil {
		t.Errorf("card c3 malformed due should parse as none, got %v", cards[2].Due)
	}
	if !cards[2].Completed {
		t.Errorf("card c3 should be completed")
	}
}

func TestFetchCardsFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tc := NewTrelloClient("k", "t")
	tc.BaseURL = srv.URL

	if _, err := tc.FetchCards(context.Background(), []string{"b1"}); err == nil {
		t.Fatalf("expected error on server failure")
	}
}
