package store

import (
	"errors"
	"fmt"

	"github.com/akiross/trellobot/internal/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("store: tracked card not found")

// Store is the persistent set of cards currently monitored for reminders.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the record for cardID, or ErrNotFound.
func (s *Store) Get(cardID string) (*models.TrackedCard, error) {
	var rec models.TrackedCard
	if err := s.db.First(&rec, "card_id = ?", cardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load tracked card %s: %w", cardID, err)
	}
	return &rec, nil
}

// List returns every tracked record, ordered by due time.
func (s *Store) List() ([]models.TrackedCard, error) {
	var recs []models.TrackedCard
	if err := s.db.Order("due").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list tracked cards: %w", err)
	}
	return recs, nil
}

func (s *Store) Create(rec *models.TrackedCard) error {
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("create tracked card %s: %w", rec.CardID, err)
	}
	return nil
}

func (s *Store) Save(rec *models.TrackedCard) error {
	if err := s.db.Save(rec).Error; err != nil {
		return fmt.Errorf("save tracked card %s: %w", rec.CardID, err)
	}
	return nil
}

func (s *Store) Delete(cardID string) error {
	if err := s.db.Delete(&models.TrackedCard{}, "card_id = ?", cardID).Error; err != nil {
		return fmt.Errorf("delete tracked card %s: %w", cardID, err)
	}
	return nil
}

// Transaction runs fn against a transactional view of the store. Any error
// rolls back every mutation made inside fn.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
