package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Slot is the interval an appointment occupies on a veterinarian's agenda:
// the half-open range [Start, Start+DurationMins).
type Slot struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Start         time.Time `json:"start"`
	DurationMins  int       `json:"duration_mins"`
	Status        Status    `json:"status"`
}

func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMins) * time.Minute)
}

// Overlaps reports whether a candidate starting at start and lasting
// durationMins collides with the existing slot. The three clauses are kept
// separate: with zero-length intervals they are not equivalent to the usual
// start < otherEnd && otherStart < end test.
func Overlaps(existing Slot, start time.Time, durationMins int) bool {
	end := start.Add(time.Duration(durationMins) * time.Minute)
	existingEnd := existing.End()

	// candidate starts inside existing
	if !existing.Start.After(start) && existingEnd.After(start) {
		return true
	}
	// candidate ends inside existing
	if existing.Start.Before(end) && existingEnd.After(end) {
		return true
	}
	// candidate contains existing's start
	if !existing.Start.Before(start) && existing.Start.Before(end) {
		return true
	}
	return false
}

// HasConflict evaluates the candidate against every slot. Cancelled slots and
// the slot of excludeID never conflict.
func HasConflict(existing []Slot, start time.Time, durationMins int, excludeID *uuid.UUID) bool {
	for _, s := range existing {
		if !s.Status.OccupiesSchedule() {
			continue
		}
		if excludeID != nil && s.AppointmentID == *excludeID {
			continue
		}
		if Overlaps(s, start, durationMins) {
			return true
		}
	}
	return false
}

// SlotSource reads a veterinarian's agenda.
type SlotSource interface {
	// OccupiedSlots returns the non-cancelled appointments of vetID that start
	// no later than to and end after from or start at/after it. excludeID,
	// when set, is left out.
	OccupiedSlots(ctx context.Context, vetID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]Slot, error)
}

// Guard decides whether a candidate interval can be committed for a
// veterinarian. It holds no state; callers provide atomicity by running it
// inside the same lock and transaction as the write it protects.
type Guard struct {
	slots SlotSource
}

func NewGuard(slots SlotSource) *Guard {
	return &Guard{slots: slots}
}

func (g *Guard) CheckConflict(ctx context.Context, vetID uuid.UUID, start time.Time, durationMins int, excludeID *uuid.UUID) (bool, error) {
	end := start.Add(time.Duration(durationMins) * time.Minute)

	existing, err := g.slots.OccupiedSlots(ctx, vetID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("loading veterinarian schedule: %w", err)
	}

	return HasConflict(existing, start, durationMins, excludeID), nil
}
