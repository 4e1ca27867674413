package appointment

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
)

func at(hour, minute int) time.Time {
	return time.Date(2030, 3, 14, hour, minute, 0, 0, time.UTC)
}

func slot(start time.Time, mins int, status Status) Slot {
	return Slot{AppointmentID: uuid.New(), Start: start, DurationMins: mins, Status: status}
}

func TestHasConflict_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		existing  []Slot
		start     time.Time
		duration  int
		exclude   func([]Slot) *uuid.UUID
		wantClash bool
	}{
		{
			name:      "A back-to-back",
			existing:  []Slot{slot(at(10, 0), 30, StatusConfirmed)},
			start:     at(10, 30),
			duration:  20,
			wantClash: false,
		},
		{
			name:      "B starts inside existing",
			existing:  []Slot{slot(at(10, 0), 30, StatusConfirmed)},
			start:     at(10, 15),
			duration:  10,
			wantClash: true,
		},
		{
			name:      "C contains existing",
			existing:  []Slot{slot(at(10, 10), 10, StatusPending)},
			start:     at(10, 0),
			duration:  60,
			wantClash: true,
		},
		{
			name:      "D cancelled ignored",
			existing:  []Slot{slot(at(10, 0), 30, StatusCancelled)},
			start:     at(10, 10),
			duration:  10,
			wantClash: false,
		},
		{
			name:      "E reschedule excludes itself",
			existing:  []Slot{slot(at(10, 0), 30, StatusPending)},
			start:     at(10, 5),
			duration:  20,
			exclude:   func(s []Slot) *uuid.UUID { return &s[0].AppointmentID },
			wantClash: false,
		},
		{
			name:      "ends inside existing",
			existing:  []Slot{slot(at(10, 0), 30, StatusConfirmed)},
			start:     at(9, 45),
			duration:  30,
			wantClash: true,
		},
		{
			name:      "candidate ends exactly when existing starts",
			existing:  []Slot{slot(at(10, 0), 30, StatusConfirmed)},
			start:     at(9, 30),
			duration:  30,
			wantClash: false,
		},
		{
			name:      "identical interval",
			existing:  []Slot{slot(at(10, 0), 30, StatusRescheduled)},
			start:     at(10, 0),
			duration:  30,
			wantClash: true,
		},
		{
			name:      "attended still occupies the agenda",
			existing:  []Slot{slot(at(10, 0), 30, StatusAttended)},
			start:     at(10, 20),
			duration:  5,
			wantClash: true,
		},
		{
			name: "exclusion does not hide other appointments",
			existing: []Slot{
				slot(at(10, 0), 30, StatusPending),
				slot(at(10, 30), 30, StatusConfirmed),
			},
			start:     at(10, 15),
			duration:  30,
			exclude:   func(s []Slot) *uuid.UUID { return &s[0].AppointmentID },
			wantClash: true,
		},
		{
			name:      "zero-length candidate at existing start",
			existing:  []Slot{slot(at(10, 0), 30, StatusPending)},
			start:     at(10, 0),
			duration:  0,
			wantClash: true,
		},
		{
			name:      "zero-length candidate at existing end",
			existing:  []Slot{slot(at(10, 0), 30, StatusPending)},
			start:     at(10, 30),
			duration:  0,
			wantClash: false,
		},
		{
			name:      "zero-length existing at candidate start",
			existing:  []Slot{slot(at(10, 0), 0, StatusPending)},
			start:     at(10, 0),
			duration:  15,
			wantClash: true,
		},
		{
			name:      "zero-length existing at candidate end",
			existing:  []Slot{slot(at(10, 15), 0, StatusPending)},
			start:     at(10, 0),
			duration:  15,
			wantClash: false,
		},
		{
			name:      "empty agenda",
			start:     at(10, 0),
			duration:  15,
			wantClash: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var exclude *uuid.UUID
			if tt.exclude != nil {
				exclude = tt.exclude(tt.existing)
			}
			got := HasConflict(tt.existing, tt.start, tt.duration, exclude)
			if got != tt.wantClash {
				t.Fatalf("HasConflict() = %v, want %v", got, tt.wantClash)
			}
		})
	}
}

// For positive durations the three clauses agree with the plain half-open
// overlap test on every boundary combination.
func TestOverlaps_MatchesHalfOpenOverlapForPositiveDurations(t *testing.T) {
	base := at(8, 0)
	for es := 0; es <= 12; es++ {
		for ed := 1; ed <= 6; ed++ {
			for cs := 0; cs <= 12; cs++ {
				for cd := 1; cd <= 6; cd++ {
					existing := Slot{Start: base.Add(time.Duration(es) * time.Minute), DurationMins: ed, Status: StatusPending}
					start := base.Add(time.Duration(cs) * time.Minute)
					end := start.Add(time.Duration(cd) * time.Minute)

					want := start.Before(existing.End()) && existing.Start.Before(end)
					if got := Overlaps(existing, start, cd); got != want {
						t.Fatalf("existing=[%d,+%d) candidate=[%d,+%d): got %v want %v", es, ed, cs, cd, got, want)
					}
				}
			}
		}
	}
}

type memorySlots struct {
	slots []Slot
	err   error
}

func (m *memorySlots) OccupiedSlots(_ context.Context, _ uuid.UUID, _, _ time.Time, excludeID *uuid.UUID) ([]Slot, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Slot, 0, len(m.slots))
	for _, s := range m.slots {
		if excludeID != nil && s.AppointmentID == *excludeID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func TestGuard_SequentialWritesKeepAgendaDisjoint(t *testing.T) {
	src := &memorySlots{}
	guard := NewGuard(src)
	vet := uuid.New()
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		start := at(8, 0).Add(time.Duration(rng.Intn(10*60/5)) * 5 * time.Minute)
		duration := 5 * (1 + rng.Intn(12))

		// Occasionally move an existing appointment instead of adding one.
		if len(src.slots) > 0 && rng.Intn(4) == 0 {
			idx := rng.Intn(len(src.slots))
			id := src.slots[idx].AppointmentID
			clash, err := guard.CheckConflict(ctx, vet, start, src.slots[idx].DurationMins, &id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !clash {
				src.slots[idx].Start = start
				src.slots[idx].Status = StatusRescheduled
			}
			continue
		}

		clash, err := guard.CheckConflict(ctx, vet, start, duration, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !clash {
			src.slots = append(src.slots, slot(start, duration, StatusPending))
		}
	}

	for i := range src.slots {
		for j := i + 1; j < len(src.slots); j++ {
			a, b := src.slots[i], src.slots[j]
			if a.Start.Before(b.End()) && b.Start.Before(a.End()) {
				t.Fatalf("overlapping appointments committed: [%s,%s) and [%s,%s)",
					a.Start.Format("15:04"), a.End().Format("15:04"), b.Start.Format("15:04"), b.End().Format("15:04"))
			}
		}
	}
}

func TestGuard_PropagatesStorageErrors(t *testing.T) {
	boom := errors.New("connection reset")
	guard := NewGuard(&memorySlots{err: boom})

	_, err := guard.CheckConflict(context.Background(), uuid.New(), at(10, 0), 30, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}

func TestGuard_ExcludeNeverReportsOwnInterval(t *testing.T) {
	own := slot(at(14, 0), 45, StatusConfirmed)
	guard := NewGuard(&memorySlots{slots: []Slot{own}})

	for offset := -60; offset <= 60; offset += 5 {
		start := own.Start.Add(time.Duration(offset) * time.Minute)
		clash, err := guard.CheckConflict(context.Background(), uuid.New(), start, own.DurationMins, &own.AppointmentID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if clash {
			t.Fatalf("offset %d: appointment conflicted with itself", offset)
		}
	}
}
