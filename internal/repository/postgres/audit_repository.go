package postgres

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create joins the caller's transaction when there is one, so audit rows
// of transactional writes commit or roll back with them.
func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	if entry.Changes == "" {
		entry.Changes = "{}"
	}
	return conn(ctx, r.db).Create(entry).Error
}
