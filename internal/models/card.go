package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type CardState string

const (
	StateScheduled   CardState = "scheduled"
	StateCompleted   CardState = "completed"
	StateUnscheduled CardState = "unscheduled"
)

// Offset names a reminder interval relative to a card's due time.
type Offset string

const (
	OffsetDueDay    Offset = "due_day"
	OffsetOneHour   Offset = "one_hour"
	OffsetThirtyMin Offset = "thirty_min"
)

// AllOffsets returns the offsets in their fixed evaluation order.
func AllOffsets() []Offset {
	return []Offset{OffsetDueDay, OffsetOneHour, OffsetThirtyMin}
}

// OffsetSet records which reminder offsets have already been delivered for a
// card. It is stored as a comma-separated text column.
type OffsetSet map[Offset]struct{}

func (s OffsetSet) Has(o Offset) bool {
	_, ok := s[o]
	return ok
}

func (s OffsetSet) Add(o Offset) {
	s[o] = struct{}{}
}

// Complete reports whether every known offset has been marked.
func (s OffsetSet) Complete() bool {
	for _, o := range AllOffsets() {
		if !s.Has(o) {
			return false
		}
	}
	return true
}

func (s OffsetSet) String() string {
	parts := make([]string, 0, len(s))
	for _, o := range AllOffsets() {
		if s.Has(o) {
			parts = append(parts, string(o))
		}
	}
	return strings.Join(parts, ",")
}

func (s OffsetSet) Value() (driver.Value, error) {
	return s.String(), nil
}

func (s *OffsetSet) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		raw = ""
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into OffsetSet", src)
	}

	out := OffsetSet{}
	for _, part := range strings.Split(raw, ",") {
		if part == "" {
			continue
		}
		out.Add(Offset(part))
	}
	*s = out
	return nil
}

// TrackedCard is a card currently being monitored for due-date reminders.
// A record exists only for cards that had a due date when last reconciled.
type TrackedCard struct {
	CardID       string    `gorm:"primaryKey" json:"card_id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	BoardID      string    `json:"board_id"`
	Due          time.Time `json:"due"`
	State        CardState `json:"state"`
	FiredOffsets OffsetSet `gorm:"type:text" json:"fired_offsets"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AllFired reports whether every offset has been delivered or suppressed.
func (c *TrackedCard) AllFired() bool {
	return c.FiredOffsets.Complete()
}
