package reconcile

import (
	"errors"
	"fmt"

	"github.com/akiross/trellobot/internal/models"
	"github.com/akiross/trellobot/internal/store"
	"go.uber.org/zap"
)

// Summary tallies the classification of one snapshot pass.
type Summary struct {
	New         int `json:"new"`
	Unscheduled int `json:"unscheduled"`
	Completed   int `json:"completed"`
	Ignored     int `json:"ignored"`
	Unchanged   int `json:"unchanged"`
}

// Reconcile diffs a fetched snapshot against the tracked set and applies the
// resulting mutations: new dued cards get a record, completed or un-dued
// cards lose theirs, and cards missing from the snapshot entirely are
// unscheduled. It should run inside a store transaction so a persistence
// failure leaves the tracked set untouched.
func Reconcile(s *store.Store, snapshot []models.Card) (Summary, error) {
	var sum Summary

	seen := make(map[string]struct{}, len(snapshot))
	for _, card := range snapshot {
		seen[card.ID] = struct{}{}

		rec, err := s.Get(card.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Summary{}, err
		}

		switch {
		case card.Completed:
			if rec == nil {
				sum.Ignored++
				continue
			}
			if err := s.Delete(rec.CardID); err != nil {
				return Summary{}, err
			}
			sum.Completed++
			zap.L().Debug("Card completed at source", zap.String("cardID", card.ID))

		case card.Due == nil:
			if rec == nil {
				sum.Ignored++
				continue
			}
			// Due date was removed since the last snapshot.
			if err := s.Delete(rec.CardID); err != nil {
				return Summary{}, err
			}
			sum.Unscheduled++
			zap.L().Debug("Card lost its due date", zap.String("cardID", card.ID))

		case rec == nil:
			rec = &models.TrackedCard{
				CardID:       card.ID,
				Name:         card.Name,
				URL:          card.URL,
				BoardID:      card.BoardID,
				Due:          *card.Due,
				State:        models.StateScheduled,
				FiredOffsets: models.OffsetSet{},
			}
			if err := s.Create(rec); err != nil {
				return Summary{}, err
			}
			sum.New++
			zap.L().Debug("Tracking new card",
				zap.String("cardID", card.ID), zap.Time("due", *card.Due))

		default:
			if !rec.Due.Equal(*card.Due) {
				// Due moved: allow every offset to fire again for the new time.
				rec.Due = *card.Due
				rec.FiredOffsets = models.OffsetSet{}
				zap.L().Debug("Card due date changed",
					zap.String("cardID", card.ID), zap.Time("due", *card.Due))
			}
			rec.Name = card.Name
			rec.URL = card.URL
			rec.BoardID = card.BoardID
			if err := s.Save(rec); err != nil {
				return Summary{}, err
			}
			sum.Unchanged++
		}
	}

	// Anything tracked but absent from the snapshot was deleted at the source.
	tracked, err := s.List()
	if err != nil {
		return Summary{}, err
	}
	for i := range tracked {
		rec := &tracked[i]
		if _, ok := seen[rec.CardID]; ok {
			continue
		}
		if err := s.Delete(rec.CardID); err != nil {
			return Summary{}, err
		}
		sum.Unscheduled++
		zap.L().Debug("Card disappeared from its board", zap.String("cardID", rec.CardID))
	}

	return sum, nil
}

func (s Summary) String() string {
	return fmt.Sprintf("%d new, %d unscheduled, %d completed, %d ignored, %d unchanged",
		s.New, s.Unscheduled, s.Completed, s.Ignored, s.Unchanged)
}
