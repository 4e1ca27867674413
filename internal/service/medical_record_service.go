package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/catalog"
	mr "github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStore keeps attachment bytes outside the database.
type ObjectStore interface {
	Put(ctx context.Context, folder, fileName, contentType string, r io.Reader, size int64) (string, error)
	PresignGet(ctx context.Context, key, fileName string) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
}

type MedicalRecordService struct {
	repo         mr.Repository
	pets         pet.Repository
	appointments appointment.Repository
	catalog      catalog.Repository
	store        ObjectStore
	tx           Transactor
	auditSvc     *AuditService
	metrics      *metrics.Collector
	log          *zap.Logger
	now          func() time.Time
}

// NewMedicalRecordService builds the service. store may be nil, in which
// case attachment operations fail with ErrStorageUnavailable.
func NewMedicalRecordService(
	repo mr.Repository,
	pets pet.Repository,
	appointments appointment.Repository,
	catalogRepo catalog.Repository,
	store ObjectStore,
	tx Transactor,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *MedicalRecordService {
	return &MedicalRecordService{
		repo:         repo,
		pets:         pets,
		appointments: appointments,
		catalog:      catalogRepo,
		store:        store,
		tx:           tx,
		auditSvc:     auditSvc,
		metrics:      m,
		log:          log,
		now:          time.Now,
	}
}

// Create records a visit. Only veterinarians write clinical records; the
// record is attributed to the caller's veterinarian profile.
func (s *MedicalRecordService) Create(ctx context.Context, cmd *mr.CreateRecordCommand, actor Actor) (*mr.MedicalRecord, error) {
	if actor.Role != domain.RoleVeterinarian || actor.VeterinarianID == nil {
		return nil, ErrForbidden
	}

	var errs []string
	if !cmd.Type.IsValid() {
		errs = append(errs, mr.ErrInvalidRecordType.Error())
	}
	if cmd.RecordedAt != nil && cmd.RecordedAt.After(s.now()) {
		errs = append(errs, "recorded_at cannot be in the future")
	}
	for i, l := range cmd.Services {
		if l.Quantity < 1 {
			errs = append(errs, fmt.Sprintf("services[%d]: %s", i, mr.ErrInvalidQuantity))
		}
		if l.UnitPriceCents != nil && *l.UnitPriceCents < 0 {
			errs = append(errs, fmt.Sprintf("services[%d]: unit price cannot be negative", i))
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	if _, err := s.pets.GetByID(ctx, cmd.PetID); err != nil {
		return nil, err
	}
	if cmd.AppointmentID != nil {
		a, err := s.appointments.GetByID(ctx, *cmd.AppointmentID)
		if err != nil {
			return nil, err
		}
		if a.PetID != cmd.PetID {
			return nil, &ValidationError{Fields: []string{"appointment_id does not belong to the pet"}}
		}
	}

	lines, err := s.recordLines(ctx, cmd.Services)
	if err != nil {
		return nil, err
	}

	recordedAt := s.now()
	if cmd.RecordedAt != nil {
		recordedAt = *cmd.RecordedAt
	}
	rec := &mr.MedicalRecord{
		PetID:         cmd.PetID,
		AppointmentID: cmd.AppointmentID,
		PerformedBy:   *actor.VeterinarianID,
		RecordedAt:    recordedAt,
		Type:          cmd.Type,
		Diagnosis:     strings.TrimSpace(cmd.Diagnosis),
		Treatment:     strings.TrimSpace(cmd.Treatment),
		Observations:  strings.TrimSpace(cmd.Observations),
		Services:      lines,
		CreatedBy:     actor.UserID,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rec); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, AuditEntry{
			Actor:        actor,
			Action:       domain.ActionCreate,
			ResourceType: "medical_record",
			ResourceID:   rec.ID.String(),
			Changes: map[string]any{
				"pet_id":   rec.PetID,
				"type":     rec.Type,
				"services": len(rec.Services),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("medical record created",
		zap.String("record_id", rec.ID.String()),
		zap.String("pet_id", rec.PetID.String()),
		zap.String("performed_by", rec.PerformedBy.String()),
	)
	return rec, nil
}

func (s *MedicalRecordService) recordLines(ctx context.Context, in []mr.ServiceLineInput) ([]mr.ServiceLine, error) {
	if len(in) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(in))
	for i, l := range in {
		ids[i] = l.ServiceID
	}
	services, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]mr.ServiceLine, len(in))
	for i, l := range in {
		price := services[i].PriceCents
		if l.UnitPriceCents != nil {
			price = *l.UnitPriceCents
		}
		lines[i] = mr.ServiceLine{
			ServiceID:      services[i].ID,
			ServiceName:    services[i].Name,
			Quantity:       l.Quantity,
			UnitPriceCents: price,
			Notes:          l.Notes,
		}
	}
	return lines, nil
}

// readable loads a record and enforces that clients only see records of
// their own pets.
func (s *MedicalRecordService) readable(ctx context.Context, id uuid.UUID, actor Actor) (*mr.MedicalRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsClient() {
		p, err := s.pets.GetByID(ctx, rec.PetID)
		if err != nil {
			return nil, err
		}
		if !actor.OwnsClient(p.ClientID) {
			return nil, ErrForbidden
		}
	}
	return rec, nil
}

func (s *MedicalRecordService) Get(ctx context.Context, id uuid.UUID, actor Actor) (*mr.MedicalRecord, error) {
	rec, err := s.readable(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionRead,
		ResourceType: "medical_record",
		ResourceID:   id.String(),
	})
	return rec, nil
}

// Update edits the clinical text of a record. Only the veterinarian who
// performed it, or an admin, may change it.
func (s *MedicalRecordService) Update(ctx context.Context, id uuid.UUID, cmd *mr.UpdateRecordCommand, actor Actor) (*mr.MedicalRecord, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	isAuthor := actor.VeterinarianID != nil && *actor.VeterinarianID == current.PerformedBy
	if actor.Role != domain.RoleAdmin && !isAuthor {
		return nil, ErrForbidden
	}
	if cmd.Type != nil && !cmd.Type.IsValid() {
		return nil, mr.ErrInvalidRecordType
	}

	rec, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "medical_record",
		ResourceID:   id.String(),
	})
	return rec, nil
}

func (s *MedicalRecordService) List(ctx context.Context, q *mr.ListRecordsQuery, actor Actor) (*mr.PagedRecords, error) {
	if actor.IsClient() {
		if actor.ClientID == nil {
			return nil, ErrForbidden
		}
		q.ClientID = actor.ClientID
	}
	if q.Type != nil && !q.Type.IsValid() {
		return nil, mr.ErrInvalidRecordType
	}
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize, 20)
	return s.repo.List(ctx, q)
}

type AttachmentUpload struct {
	FileName string
	Size     int64
	Body     io.Reader
}

// AddAttachment stores a PDF or image for a record. The object is removed
// again when the metadata row cannot be written.
func (s *MedicalRecordService) AddAttachment(ctx context.Context, recordID uuid.UUID, up AttachmentUpload, actor Actor) (*mr.Attachment, error) {
	if actor.Role != domain.RoleVeterinarian && actor.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	if s.store == nil {
		return nil, mr.ErrStorageUnavailable
	}
	contentType, err := mr.AttachmentContentType(up.FileName)
	if err != nil {
		return nil, err
	}
	if up.Size <= 0 || up.Size > mr.MaxAttachmentBytes {
		return nil, mr.ErrAttachmentTooLarge
	}
	if _, err := s.repo.GetByID(ctx, recordID); err != nil {
		return nil, err
	}

	key, err := s.store.Put(ctx, "medical-records/"+recordID.String(), up.FileName, contentType, up.Body, up.Size)
	if err != nil {
		s.log.Error("attachment upload failed", zap.String("record_id", recordID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", mr.ErrStorageUnavailable, err)
	}

	att := &mr.Attachment{
		MedicalRecordID: recordID,
		FileName:        up.FileName,
		ContentType:     contentType,
		ObjectKey:       key,
		SizeBytes:       up.Size,
		UploadedBy:      actor.UserID,
	}
	if err := s.repo.AddAttachment(ctx, att); err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.log.Warn("orphaned attachment object", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}

	s.metrics.AttachmentsUploaded.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "medical_record_attachment",
		ResourceID:   att.ID.String(),
		Changes:      map[string]any{"record_id": recordID, "size_bytes": up.Size},
	})
	return att, nil
}

type AttachmentLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	FileName  string    `json:"file_name"`
}

// AttachmentURL returns a short-lived download link.
func (s *MedicalRecordService) AttachmentURL(ctx context.Context, recordID, attachmentID uuid.UUID, actor Actor) (*AttachmentLink, error) {
	if s.store == nil {
		return nil, mr.ErrStorageUnavailable
	}
	if _, err := s.readable(ctx, recordID, actor); err != nil {
		return nil, err
	}
	att, err := s.repo.GetAttachment(ctx, recordID, attachmentID)
	if err != nil {
		return nil, err
	}
	url, expires, err := s.store.PresignGet(ctx, att.ObjectKey, att.FileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mr.ErrStorageUnavailable, err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionRead,
		ResourceType: "medical_record_attachment",
		ResourceID:   att.ID.String(),
	})
	return &AttachmentLink{URL: url, ExpiresAt: expires, FileName: att.FileName}, nil
}
