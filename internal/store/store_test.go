package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/akiross/trellobot/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.TrackedCard{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGetReturnsErrNotFound(t *testing.T) {
	s := New(openDB(t, filepath.Join(t.TempDir(), "cards.db")))
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoundTripAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cards.db")
	s := New(openDB(t, dbPath))

	due := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	fired := models.OffsetSet{}
	fired.Add(models.OffsetDueDay)
	fired.Add(models.OffsetThirtyMin)

	rec := &models.TrackedCard{
		CardID:       "card-1",
		Name:         "Pay rent",
		URL:          "https://trello.com/c/abc123",
		BoardID:      "board-1",
		Due:          due,
		State:        models.StateScheduled,
		FiredOffsets: fired,
	}
	if err := s.Create(rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Reopen the file to prove the record survives a process restart.
	s = New(openDB(t, dbPath))
	got, err := s.Get("card-1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}

	if !got.Due.Equal(due) {
		t.Errorf("due mismatch: got %v, want %v", got.Due, due)
	}
	if got.State != models.StateScheduled {
		t.Errorf("state mismatch: got %q", got.State)
	}
	if !got.FiredOffsets.Has(models.OffsetDueDay) || !got.FiredOffsets.Has(models.OffsetThirtyMin) {
		t.Errorf("fired offsets lost: got %q", got.FiredOffsets.String())
	}
	if got.FiredOffsets.Has(models.OffsetOneHour) {
		t.Errorf("unexpected fired offset one_hour: got %q", got.FiredOffsets.String())
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	s := New(openDB(t, filepath.Join(t.TempDir(), "cards.db")))

	rec := &models.TrackedCard{
		CardID:       "card-1",
		Due:          time.Now().UTC(),
		State:        models.StateScheduled,
		FiredOffsets: models.OffsetSet{},
	}
	if err := s.Create(rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete("card-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("card-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	recs, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty store, got %d records", len(recs))
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := New(openDB(t, filepath.Join(t.TempDir(), "cards.db")))

	sentinel := errors.New("boom")
	err := s.Transaction(func(tx *Store) error {
		rec := &models.TrackedCard{
			CardID:       "card-1",
			Due:          time.Now().UTC(),
			State:        models.StateScheduled,
			FiredOffsets: models.OffsetSet{},
		}
		if err := tx.Create(rec); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if _, err := s.Get("card-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}
