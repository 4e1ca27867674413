package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var fieldCheck = validator.New()

func validEmail(email string) bool {
	return fieldCheck.Var(email, "required,email") == nil
}

// PhoneNormalizer canonicalises phone numbers to E.164.
type PhoneNormalizer interface {
	Normalize(input string) (string, error)
}

type ClientService struct {
	repo         client.Repository
	pets         pet.Repository
	appointments appointment.Repository
	phones       PhoneNormalizer
	auditSvc     *AuditService
	log          *zap.Logger
}

func NewClientService(
	repo client.Repository,
	pets pet.Repository,
	appointments appointment.Repository,
	phones PhoneNormalizer,
	auditSvc *AuditService,
	log *zap.Logger,
) *ClientService {
	return &ClientService{
		repo:         repo,
		pets:         pets,
		appointments: appointments,
		phones:       phones,
		auditSvc:     auditSvc,
		log:          log,
	}
}

// ClientDetail is a client with its pets and most recent appointments.
type ClientDetail struct {
	*client.Client
	Pets               []*pet.Pet                 `json:"pets"`
	RecentAppointments []*appointment.Appointment `json:"recent_appointments"`
}

const recentItems = 5

func (s *ClientService) Create(ctx context.Context, cmd *client.CreateClientCommand, actor Actor) (*client.Client, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	c, err := s.build(cmd)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, c.Email, nil)
	if err != nil {
		s.log.Error("failed to check client email uniqueness", zap.Error(err))
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, client.ErrClientAlreadyExists
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "client",
		ResourceID:   c.ID.String(),
	})
	s.log.Info("client created",
		zap.String("client_id", c.ID.String()),
		zap.String("created_by", actor.UserID.String()),
	)
	return c, nil
}

// build validates cmd and returns an unsaved client.
func (s *ClientService) build(cmd *client.CreateClientCommand) (*client.Client, error) {
	var errs []string

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		errs = append(errs, "name is required")
	}
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" {
		errs = append(errs, "email is required")
	} else if !validEmail(email) {
		errs = append(errs, "email is invalid")
	}
	phoneNumber := strings.TrimSpace(cmd.Phone)
	if phoneNumber != "" {
		normalized, err := s.phones.Normalize(phoneNumber)
		if err != nil {
			errs = append(errs, "phone is invalid")
		}
		phoneNumber = normalized
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	return &client.Client{
		PublicID:       uuid.New(),
		UserID:         cmd.UserID,
		Name:           name,
		DocumentType:   strings.TrimSpace(cmd.DocumentType),
		DocumentNumber: strings.TrimSpace(cmd.DocumentNumber),
		ContactInfo: client.ContactInfo{
			Phone:   phoneNumber,
			Email:   email,
			Address: cmd.Address,
		},
		Notes:     cmd.Notes,
		CreatedBy: cmd.CreatedBy,
	}, nil
}

func (s *ClientService) Get(ctx context.Context, id uuid.UUID, actor Actor) (*ClientDetail, error) {
	// RBAC: clients can only read their own profile
	if actor.IsClient() && !actor.OwnsClient(id) {
		return nil, ErrForbidden
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pets, err := s.pets.ListByClient(ctx, id)
	if err != nil {
		return nil, err
	}
	recent, err := s.appointments.LatestForClient(ctx, id, recentItems)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionRead,
		ResourceType: "client",
		ResourceID:   id.String(),
	})
	return &ClientDetail{Client: c, Pets: pets, RecentAppointments: recent}, nil
}

func (s *ClientService) Update(ctx context.Context, id uuid.UUID, cmd *client.UpdateClientCommand, actor Actor) (*client.Client, error) {
	if actor.IsClient() {
		if !actor.OwnsClient(id) {
			return nil, ErrForbidden
		}
		// A client cannot relink its own login.
		cmd.UserID = nil
	} else if !actor.IsStaff() {
		return nil, ErrForbidden
	}

	var errs []string
	if cmd.Name != nil && strings.TrimSpace(*cmd.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if cmd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*cmd.Email))
		if !validEmail(email) {
			errs = append(errs, "email is invalid")
		} else {
			cmd.Email = &email
		}
	}
	if cmd.Phone != nil && strings.TrimSpace(*cmd.Phone) != "" {
		normalized, err := s.phones.Normalize(*cmd.Phone)
		if err != nil {
			errs = append(errs, "phone is invalid")
		} else {
			cmd.Phone = &normalized
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	if cmd.Email != nil {
		exists, err := s.repo.ExistsByEmail(ctx, *cmd.Email, &id)
		if err != nil {
			return nil, fmt.Errorf("checking uniqueness: %w", err)
		}
		if exists {
			return nil, client.ErrClientAlreadyExists
		}
	}

	c, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "client",
		ResourceID:   id.String(),
	})
	return c, nil
}

// Delete soft-deletes a client that no longer owns any pet.
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := requireRole(actor, domain.RoleAdmin, domain.RoleReceptionist); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.pets.CountByClient(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return client.ErrClientHasPets
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionDelete,
		ResourceType: "client",
		ResourceID:   id.String(),
	})
	return s.repo.SoftDelete(ctx, id)
}

func (s *ClientService) List(ctx context.Context, q *client.ListClientsQuery, actor Actor) (*client.PagedClients, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize, 20)
	return s.repo.List(ctx, q)
}
