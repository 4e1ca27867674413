package pet

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new pet. Returns ErrChipAlreadyAssigned on a duplicate chip id.
	Create(ctx context.Context, p *Pet) error

	// GetByID retrieves a pet by primary key. Returns ErrPetNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Pet, error)

	GetByPublicID(ctx context.Context, publicID uuid.UUID) (*Pet, error)

	Update(ctx context.Context, id uuid.UUID, cmd *UpdatePetCommand) (*Pet, error)

	SoftDelete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, q *ListPetsQuery) (*PagedPets, error)

	// CountByClient is used to refuse deleting owners that still have pets.
	CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error)

	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Pet, error)
}
