package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/akiross/trellobot/internal/models"
	"github.com/akiross/trellobot/internal/store"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const (
	oneHourWindow   = time.Hour
	thirtyMinWindow = 30 * time.Minute

	// How long after the due time a missed OneHour/ThirtyMin reminder may
	// still be delivered as catch-up.
	catchupWindow = time.Hour

	// Past this point overdue reminders are suppressed rather than
	// delivered, to avoid retroactive spam after long downtime.
	staleAfter = 24 * time.Hour
)

// Notifier delivers a reminder message to the configured recipient.
type Notifier interface {
	Deliver(ctx context.Context, message string) error
}

// Reminder is one delivered notification.
type Reminder struct {
	CardID  string
	Offset  models.Offset
	Message string
}

// Scheduler walks the tracked set on every cycle and fires whichever
// reminder offsets have come due, exactly once each. Offsets are marked
// fired only after the notifier accepts the message, so a failed delivery
// stays eligible for catch-up on a later cycle.
type Scheduler struct {
	store    *store.Store
	notifier Notifier
	loc      *time.Location
}

func New(s *store.Store, n Notifier, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{store: s, notifier: n, loc: loc}
}

// Tick evaluates every tracked card at the given instant and returns the
// reminders that were actually delivered. Records whose due time has passed
// with every offset already fired are deleted; records more than a day
// overdue have their remaining offsets suppressed without delivery.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) ([]Reminder, error) {
	recs, err := s.store.List()
	if err != nil {
		return nil, err
	}

	var sent []Reminder
	for i := range recs {
		rec := &recs[i]
		if rec.State != models.StateScheduled {
			continue
		}

		if rec.AllFired() {
			// Reminder lifecycle finished on a previous cycle.
			if now.After(rec.Due) {
				if err := s.store.Delete(rec.CardID); err != nil {
					return sent, err
				}
				zap.L().Debug("Reminder lifecycle complete, record removed",
					zap.String("cardID", rec.CardID))
			}
			continue
		}

		if now.Sub(rec.Due) > staleAfter {
			for _, off := range models.AllOffsets() {
				rec.FiredOffsets.Add(off)
			}
			if err := s.store.Save(rec); err != nil {
				return sent, err
			}
			zap.L().Info("Suppressing stale reminders",
				zap.String("cardID", rec.CardID), zap.Time("due", rec.Due))
			continue
		}

		changed := false
		for _, off := range models.AllOffsets() {
			if rec.FiredOffsets.Has(off) || !s.offsetDue(off, rec.Due, now) {
				continue
			}
			msg := reminderText(off, rec, now)
			if err := s.notifier.Deliver(ctx, msg); err != nil {
				// Leave the offset unfired; a later cycle retries it as
				// catch-up.
				zap.L().Error("Failed to deliver reminder",
					zap.String("cardID", rec.CardID),
					zap.String("offset", string(off)),
					zap.Error(err))
				continue
			}
			rec.FiredOffsets.Add(off)
			changed = true
			sent = append(sent, Reminder{CardID: rec.CardID, Offset: off, Message: msg})
		}
		if changed {
			if err := s.store.Save(rec); err != nil {
				return sent, err
			}
		}
	}
	return sent, nil
}

// offsetDue reports whether the offset's window is open at now, including
// the catch-up windows for reminders missed during downtime.
func (s *Scheduler) offsetDue(off models.Offset, due, now time.Time) bool {
	switch off {
	case models.OffsetDueDay:
		d, n := due.In(s.loc), now.In(s.loc)
		if d.Year() == n.Year() && d.YearDay() == n.YearDay() {
			return true
		}
		// Daily past-due notice for a due day missed entirely.
		return now.After(due) && now.Sub(due) <= staleAfter
	case models.OffsetOneHour:
		return due.Sub(now) <= oneHourWindow && now.Sub(due) <= catchupWindow
	case models.OffsetThirtyMin:
		return due.Sub(now) <= thirtyMinWindow && now.Sub(due) <= catchupWindow
	}
	return false
}

func reminderText(off models.Offset, rec *models.TrackedCard, now time.Time) string {
	link := fmt.Sprintf("☐ [%s](%s)", rec.Name, rec.URL)
	overdue := now.After(rec.Due)
	switch off {
	case models.OffsetDueDay:
		if overdue {
			return fmt.Sprintf("Card was due in the last 24 hours! %s (due %s)",
				link, humanize.Time(rec.Due))
		}
		return fmt.Sprintf("Card %s is due today (%s)", link, humanize.Time(rec.Due))
	case models.OffsetOneHour:
		if overdue {
			return fmt.Sprintf("Card %s was due %s", link, humanize.Time(rec.Due))
		}
		return fmt.Sprintf("Card %s is due in less than 1 hour!", link)
	case models.OffsetThirtyMin:
		if overdue {
			return fmt.Sprintf("Card %s was due %s", link, humanize.Time(rec.Due))
		}
		return fmt.Sprintf("Card %s is due in less than 30 minutes!", link)
	}
	return fmt.Sprintf("Card %s is due %s", link, humanize.Time(rec.Due))
}
