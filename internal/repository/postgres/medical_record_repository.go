package postgres

import (
	"context"
	"fmt"

	mr "github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/medical_record"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicalRecordRepository struct {
	db *gorm.DB
}

func NewMedicalRecordRepository(db *gorm.DB) *MedicalRecordRepository {
	return &MedicalRecordRepository{db: db}
}

func (r *MedicalRecordRepository) Create(ctx context.Context, rec *mr.MedicalRecord) error {
	if err := conn(ctx, r.db).Omit("Attachments").Create(rec).Error; err != nil {
		return fmt.Errorf("inserting medical record: %w", err)
	}
	return nil
}

func (r *MedicalRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*mr.MedicalRecord, error) {
	var rec mr.MedicalRecord
	err := conn(ctx, r.db).
		Preload("Services").
		Preload("Attachments").
		Where("id = ?", id).
		First(&rec).Error
	if isNotFound(err) {
		return nil, mr.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting medical record: %w", err)
	}
	return &rec, nil
}

func (r *MedicalRecordRepository) Update(ctx context.Context, id uuid.UUID, cmd *mr.UpdateRecordCommand) (*mr.MedicalRecord, error) {
	updates := map[string]any{}
	if cmd.Type != nil {
		updates["type"] = *cmd.Type
	}
	if cmd.Diagnosis != nil {
		updates["diagnosis"] = *cmd.Diagnosis
	}
	if cmd.Treatment != nil {
		updates["treatment"] = *cmd.Treatment
	}
	if cmd.Observations != nil {
		updates["observations"] = *cmd.Observations
	}
	if len(updates) > 0 {
		res := conn(ctx, r.db).Model(&mr.MedicalRecord{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("updating medical record: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, mr.ErrRecordNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *MedicalRecordRepository) List(ctx context.Context, q *mr.ListRecordsQuery) (*mr.PagedRecords, error) {
	base := conn(ctx, r.db).Table("clinical.medical_records AS r")

	if q.PetID != nil {
		base = base.Where("r.pet_id = ?", *q.PetID)
	}
	if q.VeterinarianID != nil {
		base = base.Where("r.performed_by = ?", *q.VeterinarianID)
	}
	if q.Type != nil {
		base = base.Where("r.type = ?", *q.Type)
	}
	if q.Billed != nil {
		base = base.Where("r.billed = ?", *q.Billed)
	}
	if q.DateFrom != nil {
		base = base.Where("r.recorded_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		base = base.Where("r.recorded_at < ?", nextDay(*q.DateTo))
	}
	if q.ClientID != nil || q.PetName != "" || q.ClientName != "" {
		base = base.Joins("JOIN clinical.pets p ON p.id = r.pet_id")
		if q.ClientID != nil {
			base = base.Where("p.client_id = ?", *q.ClientID)
		}
		if q.PetName != "" {
			base = base.Where("p.name ILIKE ?", contains(q.PetName))
		}
		if q.ClientName != "" {
			base = base.Joins("JOIN clinical.clients c ON c.id = p.client_id").
				Where("c.name ILIKE ?", contains(q.ClientName))
		}
	}
	if q.Search != "" {
		like := contains(q.Search)
		base = base.Where("(r.diagnosis ILIKE ? OR r.treatment ILIKE ? OR r.observations ILIKE ?)", like, like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting medical records: %w", err)
	}

	var items []*mr.MedicalRecord
	err := base.Select("r.*").
		Preload("Services").
		Preload("Attachments").
		Order("r.recorded_at DESC").
		Scopes(paginate(q.Page, q.PageSize)).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing medical records: %w", err)
	}

	return &mr.PagedRecords{
		Records:    items,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}

func (r *MedicalRecordRepository) LatestForPet(ctx context.Context, petID uuid.UUID, limit int) ([]*mr.MedicalRecord, error) {
	var items []*mr.MedicalRecord
	err := conn(ctx, r.db).
		Where("pet_id = ?", petID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing latest medical records: %w", err)
	}
	return items, nil
}

func (r *MedicalRecordRepository) AddAttachment(ctx context.Context, a *mr.Attachment) error {
	if err := conn(ctx, r.db).Create(a).Error; err != nil {
		return fmt.Errorf("inserting attachment: %w", err)
	}
	return nil
}

func (r *MedicalRecordRepository) GetAttachment(ctx context.Context, recordID, attachmentID uuid.UUID) (*mr.Attachment, error) {
	var a mr.Attachment
	err := conn(ctx, r.db).
		Where("id = ? AND medical_record_id = ?", attachmentID, recordID).
		First(&a).Error
	if isNotFound(err) {
		return nil, mr.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting attachment: %w", err)
	}
	return &a, nil
}

func (r *MedicalRecordRepository) GetManyForUpdate(ctx context.Context, ids []uuid.UUID) ([]*mr.MedicalRecord, error) {
	db := conn(ctx, r.db)

	var locked []uuid.UUID
	if err := db.Raw(
		"SELECT id FROM clinical.medical_records WHERE id IN ? FOR UPDATE", ids,
	).Scan(&locked).Error; err != nil {
		return nil, fmt.Errorf("locking medical records: %w", err)
	}
	if len(locked) != len(uniqueIDs(ids)) {
		return nil, mr.ErrRecordNotFound
	}

	var items []*mr.MedicalRecord
	if err := db.Preload("Services").Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("loading medical records: %w", err)
	}
	return items, nil
}

func (r *MedicalRecordRepository) MarkBilled(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID) error {
	err := conn(ctx, r.db).Model(&mr.MedicalRecord{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"billed": true, "invoice_id": invoiceID}).Error
	if err != nil {
		return fmt.Errorf("marking records billed: %w", err)
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
