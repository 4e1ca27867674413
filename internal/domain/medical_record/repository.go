package medical_record

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists the record with its service lines.
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, id uuid.UUID, cmd *UpdateRecordCommand) (*MedicalRecord, error)
	List(ctx context.Context, q *ListRecordsQuery) (*PagedRecords, error)
	// LatestForPet returns the most recent records of a pet, newest first.
	LatestForPet(ctx context.Context, petID uuid.UUID, limit int) ([]*MedicalRecord, error)

	AddAttachment(ctx context.Context, a *Attachment) error
	GetAttachment(ctx context.Context, recordID, attachmentID uuid.UUID) (*Attachment, error)

	// GetManyForUpdate locks and returns the records with ids; missing ids
	// yield ErrRecordNotFound.
	GetManyForUpdate(ctx context.Context, ids []uuid.UUID) ([]*MedicalRecord, error)
	// MarkBilled links the records to an invoice.
	MarkBilled(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID) error
}
