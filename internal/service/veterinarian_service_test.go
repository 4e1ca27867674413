package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/veterinarian"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newVeterinarianService(t *testing.T, f *fixture) *VeterinarianService {
	t.Helper()
	svc := NewVeterinarianService(fakeVets{f.db}, fakeAppointments{f.db}, fakeTx{f.db}, newTestAudit(t, f.db), time.UTC, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func thursdayMorning() []veterinarian.Availability {
	return []veterinarian.Availability{
		{Weekday: 4, StartTime: "09:00", EndTime: "12:00", SlotMinutes: 30, Active: true},
	}
}

func TestAvailabilityFreeStarts(t *testing.T) {
	f := newFixture()
	svc := newVeterinarianService(t, f)
	ctx := context.Background()

	if _, err := svc.SetAvailability(ctx, f.vet.ID, thursdayMorning(), admin()); err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}
	f.seedAppointment(on14th(10, 0), 30, appointment.StatusPending)
	f.seedAppointment(on14th(11, 0), 30, appointment.StatusCancelled)

	day, err := svc.Availability(ctx, f.vet.ID, on14th(0, 0), 0)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if day.Date != "2030-03-14" || day.Weekday != 4 {
		t.Errorf("day = %s weekday %d", day.Date, day.Weekday)
	}
	if len(day.Booked) != 1 {
		t.Errorf("booked = %d, want 1 (cancelled excluded)", len(day.Booked))
	}
	want := []time.Time{on14th(9, 0), on14th(9, 30), on14th(10, 30), on14th(11, 0), on14th(11, 30)}
	assertStarts(t, day.FreeStarts, want)

	hour, err := svc.Availability(ctx, f.vet.ID, on14th(15, 0), 60)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	assertStarts(t, hour.FreeStarts, []time.Time{on14th(9, 0), on14th(10, 30), on14th(11, 0)})

	if _, err := svc.Availability(ctx, f.vet.ID, on14th(0, 0), -5); !errors.Is(err, appointment.ErrInvalidDuration) {
		t.Errorf("negative duration: err = %v", err)
	}

	friday, err := svc.Availability(ctx, f.vet.ID, on14th(0, 0).AddDate(0, 0, 1), 0)
	if err != nil {
		t.Fatalf("friday: %v", err)
	}
	if len(friday.Windows) != 0 || len(friday.FreeStarts) != 0 {
		t.Errorf("friday has %d windows", len(friday.Windows))
	}
}

func TestAvailabilitySkipsPastStarts(t *testing.T) {
	f := newFixture()
	svc := newVeterinarianService(t, f)
	svc.now = func() time.Time { return on14th(10, 45) }
	if _, err := svc.SetAvailability(context.Background(), f.vet.ID, thursdayMorning(), admin()); err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}

	day, err := svc.Availability(context.Background(), f.vet.ID, on14th(0, 0), 0)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	assertStarts(t, day.FreeStarts, []time.Time{on14th(11, 0), on14th(11, 30)})
}

func assertStarts(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("free starts = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("start[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSetAvailabilityValidation(t *testing.T) {
	f := newFixture()
	svc := newVeterinarianService(t, f)
	ctx := context.Background()

	tests := []struct {
		name    string
		windows []veterinarian.Availability
	}{
		{"bad clock", []veterinarian.Availability{{Weekday: 1, StartTime: "9:00", EndTime: "12:00", SlotMinutes: 30, Active: true}}},
		{"end before start", []veterinarian.Availability{{Weekday: 1, StartTime: "12:00", EndTime: "09:00", SlotMinutes: 30, Active: true}}},
		{"weekday", []veterinarian.Availability{{Weekday: 7, StartTime: "09:00", EndTime: "12:00", SlotMinutes: 30, Active: true}}},
		{"slot too short", []veterinarian.Availability{{Weekday: 1, StartTime: "09:00", EndTime: "12:00", SlotMinutes: 5, Active: true}}},
		{"overlap", []veterinarian.Availability{
			{Weekday: 1, StartTime: "09:00", EndTime: "12:00", SlotMinutes: 30, Active: true},
			{Weekday: 1, StartTime: "11:30", EndTime: "14:00", SlotMinutes: 30, Active: true},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetAvailability(ctx, f.vet.ID, tt.windows, admin())
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}

	ok := []veterinarian.Availability{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00", SlotMinutes: 30, Active: true},
		{Weekday: 1, StartTime: "12:00", EndTime: "14:00", SlotMinutes: 20, Active: true},
		{Weekday: 1, StartTime: "10:00", EndTime: "11:00", SlotMinutes: 20, Active: false},
	}
	if _, err := svc.SetAvailability(ctx, f.vet.ID, ok, f.vetActor()); err != nil {
		t.Fatalf("touching and inactive windows: %v", err)
	}
	if got := len(f.db.vets[f.vet.ID].Availability); got != 3 {
		t.Errorf("stored windows = %d, want 3", got)
	}

	otherVet := uuid.New()
	intruder := f.vetActor()
	intruder.VeterinarianID = &otherVet
	if _, err := svc.SetAvailability(ctx, f.vet.ID, ok, intruder); !errors.Is(err, ErrForbidden) {
		t.Errorf("other vet: err = %v", err)
	}
}

func TestDeleteVeterinarianWithUpcomingAppointments(t *testing.T) {
	f := newFixture()
	svc := newVeterinarianService(t, f)
	a := f.seedAppointment(on14th(10, 0), 30, appointment.StatusPending)

	if err := svc.Delete(context.Background(), f.vet.ID, admin()); !errors.Is(err, veterinarian.ErrHasUpcomingAppointments) {
		t.Fatalf("err = %v, want ErrHasUpcomingAppointments", err)
	}

	a.Status = appointment.StatusCancelled
	f.db.appointments[a.ID] = *a
	if err := svc.Delete(context.Background(), f.vet.ID, admin()); err != nil {
		t.Fatalf("Delete after cancel: %v", err)
	}
}
