package service

import (
	"context"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	mr "github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PetService struct {
	repo         pet.Repository
	clients      client.Repository
	appointments appointment.Repository
	records      mr.Repository
	auditSvc     *AuditService
	log          *zap.Logger
	now          func() time.Time
}

func NewPetService(
	repo pet.Repository,
	clients client.Repository,
	appointments appointment.Repository,
	records mr.Repository,
	auditSvc *AuditService,
	log *zap.Logger,
) *PetService {
	return &PetService{
		repo:         repo,
		clients:      clients,
		appointments: appointments,
		records:      records,
		auditSvc:     auditSvc,
		log:          log,
		now:          time.Now,
	}
}

// PetDetail is a pet with its computed age and latest clinical activity.
type PetDetail struct {
	*pet.Pet
	Age                string                     `json:"age,omitempty"`
	RecentAppointments []*appointment.Appointment `json:"recent_appointments"`
	RecentRecords      []*mr.MedicalRecord        `json:"recent_records"`
}

func (s *PetService) Create(ctx context.Context, cmd *pet.CreatePetCommand, actor Actor) (*pet.Pet, error) {
	if actor.IsClient() && !actor.OwnsClient(cmd.ClientID) {
		return nil, ErrForbidden
	}
	if err := s.validateCreate(cmd); err != nil {
		return nil, err
	}
	if _, err := s.clients.GetByID(ctx, cmd.ClientID); err != nil {
		return nil, err
	}

	p := &pet.Pet{
		ClientID:  cmd.ClientID,
		PublicID:  uuid.New(),
		Name:      strings.TrimSpace(cmd.Name),
		Species:   strings.ToLower(strings.TrimSpace(cmd.Species)),
		Breed:     strings.TrimSpace(cmd.Breed),
		Sex:       cmd.Sex,
		BirthDate: cmd.BirthDate,
		Color:     cmd.Color,
		ChipID:    strings.TrimSpace(cmd.ChipID),
		PhotoURL:  cmd.PhotoURL,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "pet",
		ResourceID:   p.ID.String(),
	})
	s.log.Info("pet registered",
		zap.String("pet_id", p.ID.String()),
		zap.String("client_id", p.ClientID.String()),
	)
	return p, nil
}

func (s *PetService) validateCreate(cmd *pet.CreatePetCommand) error {
	var errs []string
	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(cmd.Species) == "" {
		errs = append(errs, "species is required")
	}
	if cmd.Sex == "" {
		cmd.Sex = pet.SexUnknown
	}
	if !cmd.Sex.IsValid() {
		errs = append(errs, pet.ErrInvalidSex.Error())
	}
	if cmd.BirthDate != nil && cmd.BirthDate.After(s.now()) {
		errs = append(errs, pet.ErrInvalidBirthDate.Error())
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (s *PetService) Get(ctx context.Context, id uuid.UUID, actor Actor) (*PetDetail, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsClient() && !actor.OwnsClient(p.ClientID) {
		return nil, ErrForbidden
	}

	appts, err := s.appointments.LatestForPet(ctx, id, recentItems)
	if err != nil {
		return nil, err
	}
	records, err := s.records.LatestForPet(ctx, id, recentItems)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionRead,
		ResourceType: "pet",
		ResourceID:   id.String(),
	})
	return &PetDetail{
		Pet:                p,
		Age:                p.AgeLabel(s.now()),
		RecentAppointments: appts,
		RecentRecords:      records,
	}, nil
}

func (s *PetService) Update(ctx context.Context, id uuid.UUID, cmd *pet.UpdatePetCommand, actor Actor) (*pet.Pet, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsClient() && !actor.OwnsClient(current.ClientID) {
		return nil, ErrForbidden
	}

	var errs []string
	if cmd.Name != nil && strings.TrimSpace(*cmd.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if cmd.Sex != nil && !cmd.Sex.IsValid() {
		errs = append(errs, pet.ErrInvalidSex.Error())
	}
	if cmd.BirthDate != nil && cmd.BirthDate.After(s.now()) {
		errs = append(errs, pet.ErrInvalidBirthDate.Error())
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	p, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "pet",
		ResourceID:   id.String(),
	})
	return p, nil
}

// Delete soft-deletes a pet that has no upcoming appointments.
func (s *PetService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := requireRole(actor, domain.RoleAdmin, domain.RoleReceptionist); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.appointments.CountUpcoming(ctx, nil, &id, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		return pet.ErrPetHasAppointments
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionDelete,
		ResourceType: "pet",
		ResourceID:   id.String(),
	})
	return s.repo.SoftDelete(ctx, id)
}

func (s *PetService) List(ctx context.Context, q *pet.ListPetsQuery, actor Actor) (*pet.PagedPets, error) {
	if actor.IsClient() {
		if actor.ClientID == nil {
			return nil, ErrForbidden
		}
		q.ClientID = actor.ClientID
	}
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize, 20)
	return s.repo.List(ctx, q)
}
