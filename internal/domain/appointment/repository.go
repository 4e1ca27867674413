package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	SlotSource

	// Create persists the appointment together with its service lines.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Update saves schedule, status, cancellation and notes fields.
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)

	// CountUpcoming counts non-cancelled appointments starting at or after
	// now, filtered by veterinarian and/or pet.
	CountUpcoming(ctx context.Context, vetID, petID *uuid.UUID, now time.Time) (int64, error)

	// Latest returns the most recent appointments of a pet or of a client,
	// newest first.
	LatestForPet(ctx context.Context, petID uuid.UUID, limit int) ([]*Appointment, error)
	LatestForClient(ctx context.Context, clientID uuid.UUID, limit int) ([]*Appointment, error)
}
