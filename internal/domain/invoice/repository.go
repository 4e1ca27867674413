package invoice

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q *ListInvoicesQuery) (*PagedInvoices, error)
	Stats(ctx context.Context, q *ListInvoicesQuery) (*Stats, error)
	ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error)

	// NextNumber atomically allocates the next counter value for year.
	NextNumber(ctx context.Context, year int) (int, error)
	// PeekNumber returns the value NextNumber would allocate without consuming it.
	PeekNumber(ctx context.Context, year int) (int, error)
}
