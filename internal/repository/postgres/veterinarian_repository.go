package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/veterinarian"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VeterinarianRepository struct {
	db *gorm.DB
}

func NewVeterinarianRepository(db *gorm.DB) *VeterinarianRepository {
	return &VeterinarianRepository{db: db}
}

func (r *VeterinarianRepository) Create(ctx context.Context, v *veterinarian.Veterinarian) error {
	if err := conn(ctx, r.db).Omit("Availability").Create(v).Error; err != nil {
		if isUniqueViolation(err, "license_number") {
			return veterinarian.ErrLicenseAlreadyExists
		}
		return fmt.Errorf("inserting veterinarian: %w", err)
	}
	return nil
}

func (r *VeterinarianRepository) GetByID(ctx context.Context, id uuid.UUID) (*veterinarian.Veterinarian, error) {
	var v veterinarian.Veterinarian
	err := conn(ctx, r.db).
		Preload("Availability", func(db *gorm.DB) *gorm.DB {
			return db.Order("weekday ASC, start_time ASC")
		}).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&v).Error
	if isNotFound(err) {
		return nil, veterinarian.ErrVeterinarianNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting veterinarian: %w", err)
	}
	return &v, nil
}

func (r *VeterinarianRepository) Update(ctx context.Context, id uuid.UUID, cmd *veterinarian.UpdateVeterinarianCommand) (*veterinarian.Veterinarian, error) {
	updates := map[string]any{}
	if cmd.UserID != nil {
		updates["user_id"] = *cmd.UserID
	}
	if cmd.Name != nil {
		updates["name"] = strings.TrimSpace(*cmd.Name)
	}
	if cmd.LicenseNumber != nil {
		updates["license_number"] = strings.TrimSpace(*cmd.LicenseNumber)
	}
	if cmd.Specialty != nil {
		updates["specialty"] = *cmd.Specialty
	}
	if cmd.Phone != nil {
		updates["phone"] = *cmd.Phone
	}
	if cmd.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*cmd.Email))
	}

	if len(updates) > 0 {
		res := conn(ctx, r.db).Model(&veterinarian.Veterinarian{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Updates(updates)
		if res.Error != nil {
			if isUniqueViolation(res.Error, "license_number") {
				return nil, veterinarian.ErrLicenseAlreadyExists
			}
			return nil, fmt.Errorf("updating veterinarian: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, veterinarian.ErrVeterinarianNotFound
		}
	}

	return r.GetByID(ctx, id)
}

func (r *VeterinarianRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := conn(ctx, r.db).Model(&veterinarian.Veterinarian{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("deleting veterinarian: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return veterinarian.ErrVeterinarianNotFound
	}
	return nil
}

func (r *VeterinarianRepository) List(ctx context.Context, q *veterinarian.ListVeterinariansQuery) (*veterinarian.PagedVeterinarians, error) {
	base := conn(ctx, r.db).Model(&veterinarian.Veterinarian{}).Where("deleted_at IS NULL")
	if q.Specialty != "" {
		base = base.Where("specialty = ?", q.Specialty)
	}
	if q.Search != "" {
		like := contains(q.Search)
		base = base.Where("(name ILIKE ? OR specialty ILIKE ? OR license_number ILIKE ?)", like, like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting veterinarians: %w", err)
	}

	var items []*veterinarian.Veterinarian
	if err := base.Order("name ASC").Scopes(paginate(q.Page, q.PageSize)).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing veterinarians: %w", err)
	}

	return &veterinarian.PagedVeterinarians{
		Veterinarians: items,
		TotalCount:    total,
		Page:          q.Page,
		PageSize:      q.PageSize,
		TotalPages:    totalPages(total, q.PageSize),
	}, nil
}

// LockForScheduling takes SELECT ... FOR UPDATE on the veterinarian row. Must
// run inside a transaction; the lock is released at commit or rollback.
func (r *VeterinarianRepository) LockForScheduling(ctx context.Context, id uuid.UUID) error {
	var row struct{ ID uuid.UUID }
	err := conn(ctx, r.db).
		Model(&veterinarian.Veterinarian{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ? AND deleted_at IS NULL", id).
		Take(&row).Error
	if isNotFound(err) {
		return veterinarian.ErrVeterinarianNotFound
	}
	if err != nil {
		return fmt.Errorf("locking veterinarian: %w", err)
	}
	return nil
}

func (r *VeterinarianRepository) GetAvailability(ctx context.Context, vetID uuid.UUID, weekday *int) ([]veterinarian.Availability, error) {
	query := conn(ctx, r.db).Where("veterinarian_id = ?", vetID)
	if weekday != nil {
		query = query.Where("weekday = ?", *weekday)
	}
	var windows []veterinarian.Availability
	if err := query.Order("weekday ASC, start_time ASC").Find(&windows).Error; err != nil {
		return nil, fmt.Errorf("getting availability: %w", err)
	}
	return windows, nil
}

func (r *VeterinarianRepository) ReplaceAvailability(ctx context.Context, vetID uuid.UUID, windows []veterinarian.Availability) error {
	db := conn(ctx, r.db)
	if err := db.Where("veterinarian_id = ?", vetID).Delete(&veterinarian.Availability{}).Error; err != nil {
		return fmt.Errorf("clearing availability: %w", err)
	}
	if len(windows) == 0 {
		return nil
	}
	for i := range windows {
		windows[i].ID = uuid.Nil
		windows[i].VeterinarianID = vetID
	}
	if err := db.Create(&windows).Error; err != nil {
		return fmt.Errorf("inserting availability: %w", err)
	}
	return nil
}
