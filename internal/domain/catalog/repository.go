package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	// GetMany returns the services matching ids in the order of ids, each
	// service once even when its id repeats.
	// Returns ErrUnknownServices if any id is missing.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*Service, error)
	Update(ctx context.Context, id uuid.UUID, cmd *UpdateServiceCommand) (*Service, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q *ListServicesQuery) (*PagedServices, error)
}
