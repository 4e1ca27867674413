package client

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new client. Returns ErrClientAlreadyExists on duplicate email.
	Create(ctx context.Context, c *Client) error

	// GetByID retrieves a client by primary key. Returns ErrClientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)

	GetByPublicID(ctx context.Context, publicID uuid.UUID) (*Client, error)

	// Update applies partial updates to an existing client.
	Update(ctx context.Context, id uuid.UUID, cmd *UpdateClientCommand) (*Client, error)

	SoftDelete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, q *ListClientsQuery) (*PagedClients, error)

	// ExistsByEmail checks for uniqueness without fetching the full record.
	ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
}
