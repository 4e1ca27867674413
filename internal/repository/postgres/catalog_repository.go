package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/catalog"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) Create(ctx context.Context, s *catalog.Service) error {
	if err := conn(ctx, r.db).Create(s).Error; err != nil {
		if isUniqueViolation(err, "code") {
			return catalog.ErrServiceCodeExists
		}
		return fmt.Errorf("inserting service: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Service, error) {
	var s catalog.Service
	err := conn(ctx, r.db).Where("id = ? AND deleted_at IS NULL", id).First(&s).Error
	if isNotFound(err) {
		return nil, catalog.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting service: %w", err)
	}
	return &s, nil
}

func (r *CatalogRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]*catalog.Service, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var found []*catalog.Service
	if err := conn(ctx, r.db).Where("id IN ? AND deleted_at IS NULL", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("getting services: %w", err)
	}

	byID := make(map[uuid.UUID]*catalog.Service, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	out := make([]*catalog.Service, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, catalog.ErrUnknownServices
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *CatalogRepository) Update(ctx context.Context, id uuid.UUID, cmd *catalog.UpdateServiceCommand) (*catalog.Service, error) {
	updates := map[string]any{}
	if cmd.Code != nil {
		updates["code"] = strings.TrimSpace(*cmd.Code)
	}
	if cmd.Name != nil {
		updates["name"] = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Description != nil {
		updates["description"] = *cmd.Description
	}
	if cmd.Type != nil {
		updates["type"] = *cmd.Type
	}
	if cmd.DurationMins != nil {
		updates["duration_mins"] = *cmd.DurationMins
	}
	if cmd.PriceCents != nil {
		updates["price_cents"] = *cmd.PriceCents
	}
	if cmd.RequiresVaccineInfo != nil {
		updates["requires_vaccine_info"] = *cmd.RequiresVaccineInfo
	}

	if len(updates) > 0 {
		res := conn(ctx, r.db).Model(&catalog.Service{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Updates(updates)
		if res.Error != nil {
			if isUniqueViolation(res.Error, "code") {
				return nil, catalog.ErrServiceCodeExists
			}
			return nil, fmt.Errorf("updating service: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, catalog.ErrServiceNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func (r *CatalogRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := conn(ctx, r.db).Model(&catalog.Service{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("deleting service: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return catalog.ErrServiceNotFound
	}
	return nil
}

func (r *CatalogRepository) List(ctx context.Context, q *catalog.ListServicesQuery) (*catalog.PagedServices, error) {
	base := conn(ctx, r.db).Model(&catalog.Service{}).Where("deleted_at IS NULL")
	if q.Type != nil {
		base = base.Where("type = ?", *q.Type)
	}
	if q.Search != "" {
		like := contains(q.Search)
		base = base.Where("(code ILIKE ? OR name ILIKE ?)", like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting services: %w", err)
	}

	var items []*catalog.Service
	if err := base.Order("type ASC, name ASC").Scopes(paginate(q.Page, q.PageSize)).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}

	return &catalog.PagedServices{
		Services:   items,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}
