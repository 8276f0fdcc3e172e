package update

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akiross/trellobot/internal/config"
	"github.com/akiross/trellobot/internal/models"
	"github.com/akiross/trellobot/internal/reconcile"
	"github.com/akiross/trellobot/internal/schedule"
	"github.com/akiross/trellobot/internal/store"
)

// ErrCycleInProgress is returned when a cycle is requested while another one
// is still running. Cycles never overlap; the caller just tries again later.
var ErrCycleInProgress = errors.New("update: cycle already in progress")

// Fetcher retrieves a point-in-time snapshot of the cards on the given
// boards. A fetch failure aborts the whole cycle before any store mutation.
type Fetcher interface {
	FetchCards(ctx context.Context, boardIDs []string) ([]models.Card, error)
}

// Summary is the result of one full update cycle.
type Summary struct {
	reconcile.Summary
	RemindersSent int `json:"reminders_sent"`
}

// Orchestrator drives one reconciliation-and-scheduling cycle at a time:
// fetch eligible boards, reconcile the snapshot against the tracked set,
// then tick the scheduler to deliver due reminders.
type Orchestrator struct {
	mu        sync.Mutex
	fetcher   Fetcher
	store     *store.Store
	scheduler *schedule.Scheduler
	filter    *config.BoardFilter
	now       func() time.Time
}

func NewOrchestrator(f Fetcher, s *store.Store, sched *schedule.Scheduler, filter *config.BoardFilter) *Orchestrator {
	return &Orchestrator{
		fetcher:   f,
		store:     s,
		scheduler: sched,
		filter:    filter,
		now:       time.Now,
	}
}

// RunCycle performs a single update cycle and returns its summary. It
// returns ErrCycleInProgress if another cycle holds the in-flight guard.
func (o *Orchestrator) RunCycle(ctx context.Context) (Summary, error) {
	if !o.mu.TryLock() {
		return Summary{}, ErrCycleInProgress
	}
	defer o.mu.Unlock()

	snapshot, err := o.fetcher.FetchCards(ctx, o.filter.Eligible())
	if err != nil {
		return Summary{}, fmt.Errorf("fetch cards: %w", err)
	}

	var recSum reconcile.Summary
	err = o.store.Transaction(func(tx *store.Store) error {
		var txErr error
		recSum, txErr = reconcile.Reconcile(tx, snapshot)
		return txErr
	})
	if err != nil {
		return Summary{}, fmt.Errorf("reconcile snapshot: %w", err)
	}

	sent, err := o.scheduler.Tick(ctx, o.now())
	if err != nil {
		return Summary{}, fmt.Errorf("schedule reminders: %w", err)
	}

	return Summary{Summary: recSum, RemindersSent: len(sent)}, nil
}

// Tracked returns a read-only snapshot of the tracked records.
func (o *Orchestrator) Tracked() ([]models.TrackedCard, error) {
	return o.store.List()
}

func (s Summary) String() string {
	return fmt.Sprintf("%s, %d reminders sent", s.Summary, s.RemindersSent)
}
