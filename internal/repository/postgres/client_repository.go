package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, c *client.Client) error {
	if c.PublicID == uuid.Nil {
		c.PublicID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(c).Error; err != nil {
		if isUniqueViolation(err, "email") {
			return client.ErrClientAlreadyExists
		}
		if isUniqueViolation(err, "user_id") {
			return client.ErrUserAlreadyLinked
		}
		return fmt.Errorf("inserting client: %w", err)
	}
	return nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *ClientRepository) GetByPublicID(ctx context.Context, publicID uuid.UUID) (*client.Client, error) {
	return r.getBy(ctx, "public_id = ?", publicID)
}

func (r *ClientRepository) getBy(ctx context.Context, cond string, arg any) (*client.Client, error) {
	var c client.Client
	err := conn(ctx, r.db).Where(cond, arg).Where("deleted_at IS NULL").First(&c).Error
	if isNotFound(err) {
		return nil, client.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting client: %w", err)
	}
	return &c, nil
}

func (r *ClientRepository) Update(ctx context.Context, id uuid.UUID, cmd *client.UpdateClientCommand) (*client.Client, error) {
	updates := map[string]any{}
	if cmd.UserID != nil {
		updates["user_id"] = *cmd.UserID
	}
	if cmd.Name != nil {
		updates["name"] = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*cmd.Email))
	}
	if cmd.Phone != nil {
		updates["phone"] = *cmd.Phone
	}
	if cmd.DocumentType != nil {
		updates["document_type"] = *cmd.DocumentType
	}
	if cmd.DocumentNumber != nil {
		updates["document_number"] = *cmd.DocumentNumber
	}
	if cmd.Address != nil {
		updates["address"] = *cmd.Address
	}
	if cmd.Notes != nil {
		updates["notes"] = *cmd.Notes
	}

	if len(updates) > 0 {
		res := conn(ctx, r.db).Model(&client.Client{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Updates(updates)
		if res.Error != nil {
			if isUniqueViolation(res.Error, "email") {
				return nil, client.ErrClientAlreadyExists
			}
			if isUniqueViolation(res.Error, "user_id") {
				return nil, client.ErrUserAlreadyLinked
			}
			return nil, fmt.Errorf("updating client: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, client.ErrClientNotFound
		}
	}

	return r.GetByID(ctx, id)
}

func (r *ClientRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := conn(ctx, r.db).Model(&client.Client{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("deleting client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return client.ErrClientNotFound
	}
	return nil
}

func (r *ClientRepository) List(ctx context.Context, q *client.ListClientsQuery) (*client.PagedClients, error) {
	base := conn(ctx, r.db).Model(&client.Client{}).Where("deleted_at IS NULL")
	if q.Search != "" {
		like := contains(q.Search)
		base = base.Where("(name ILIKE ? OR email ILIKE ? OR phone ILIKE ?)", like, like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting clients: %w", err)
	}

	var items []*client.Client
	if err := base.Order("name ASC").Scopes(paginate(q.Page, q.PageSize)).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}

	return &client.PagedClients{
		Clients:    items,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}

func (r *ClientRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	query := conn(ctx, r.db).Model(&client.Client{}).
		Where("email = ? AND deleted_at IS NULL", strings.ToLower(strings.TrimSpace(email)))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking client email: %w", err)
	}
	return count > 0, nil
}
