package veterinarian

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Veterinarian) error
	GetByID(ctx context.Context, id uuid.UUID) (*Veterinarian, error)
	Update(ctx context.Context, id uuid.UUID, cmd *UpdateVeterinarianCommand) (*Veterinarian, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q *ListVeterinariansQuery) (*PagedVeterinarians, error)

	// LockForScheduling takes a row lock on the veterinarian for the rest of
	// the current transaction. Returns ErrVeterinarianNotFound if missing.
	LockForScheduling(ctx context.Context, id uuid.UUID) error

	GetAvailability(ctx context.Context, vetID uuid.UUID, weekday *int) ([]Availability, error)
	// ReplaceAvailability deletes every window of the veterinarian and stores windows.
	ReplaceAvailability(ctx context.Context, vetID uuid.UUID, windows []Availability) error
}
