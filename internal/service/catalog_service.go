package service

import (
	"context"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/catalog"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CatalogService struct {
	repo     catalog.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewCatalogService(repo catalog.Repository, auditSvc *AuditService, log *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, auditSvc: auditSvc, log: log}
}

func (s *CatalogService) Create(ctx context.Context, svc *catalog.Service, actor Actor) (*catalog.Service, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	svc.Code = strings.ToUpper(strings.TrimSpace(svc.Code))
	svc.Name = strings.TrimSpace(svc.Name)

	var errs []string
	if svc.Code == "" {
		errs = append(errs, "code is required")
	}
	if svc.Name == "" {
		errs = append(errs, "name is required")
	}
	if err := svc.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "service",
		ResourceID:   svc.ID.String(),
	})
	s.log.Info("catalog service created", zap.String("code", svc.Code))
	return svc, nil
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*catalog.Service, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, cmd *catalog.UpdateServiceCommand, actor Actor) (*catalog.Service, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if cmd.Type != nil && !cmd.Type.IsValid() {
		return nil, catalog.ErrInvalidServiceType
	}
	if cmd.DurationMins != nil && *cmd.DurationMins < 0 {
		return nil, catalog.ErrInvalidDuration
	}
	if cmd.PriceCents != nil && *cmd.PriceCents < 0 {
		return nil, catalog.ErrInvalidPrice
	}
	if cmd.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*cmd.Code))
		cmd.Code = &code
	}

	svc, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "service",
		ResourceID:   id.String(),
	})
	return svc, nil
}

// Delete soft-deletes a service. Appointments keep their price snapshot.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionDelete,
		ResourceType: "service",
		ResourceID:   id.String(),
	})
	return nil
}

func (s *CatalogService) List(ctx context.Context, q *catalog.ListServicesQuery) (*catalog.PagedServices, error) {
	if q.Type != nil && !q.Type.IsValid() {
		return nil, catalog.ErrInvalidServiceType
	}
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize, 50)
	return s.repo.List(ctx, q)
}

func (s *CatalogService) Types() []catalog.ServiceType {
	return catalog.Types
}
