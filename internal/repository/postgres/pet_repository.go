package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PetRepository struct {
	db *gorm.DB
}

func NewPetRepository(db *gorm.DB) *PetRepository {
	return &PetRepository{db: db}
}

func (r *PetRepository) Create(ctx context.Context, p *pet.Pet) error {
	if p.PublicID == uuid.Nil {
		p.PublicID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(p).Error; err != nil {
		if isUniqueViolation(err, "chip_id") {
			return pet.ErrChipAlreadyAssigned
		}
		return fmt.Errorf("inserting pet: %w", err)
	}
	return nil
}

func (r *PetRepository) GetByID(ctx context.Context, id uuid.UUID) (*pet.Pet, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *PetRepository) GetByPublicID(ctx context.Context, publicID uuid.UUID) (*pet.Pet, error) {
	return r.getBy(ctx, "public_id = ?", publicID)
}

func (r *PetRepository) getBy(ctx context.Context, cond string, arg any) (*pet.Pet, error) {
	var p pet.Pet
	err := conn(ctx, r.db).Where(cond, arg).Where("deleted_at IS NULL").First(&p).Error
	if isNotFound(err) {
		return nil, pet.ErrPetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting pet: %w", err)
	}
	return &p, nil
}

func (r *PetRepository) Update(ctx context.Context, id uuid.UUID, cmd *pet.UpdatePetCommand) (*pet.Pet, error) {
	updates := map[string]any{}
	if cmd.Name != nil {
		updates["name"] = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Species != nil {
		updates["species"] = strings.TrimSpace(*cmd.Species)
	}
	if cmd.Breed != nil {
		updates["breed"] = *cmd.Breed
	}
	if cmd.Sex != nil {
		updates["sex"] = *cmd.Sex
	}
	if cmd.BirthDate != nil {
		updates["birth_date"] = *cmd.BirthDate
	}
	if cmd.Color != nil {
		updates["color"] = *cmd.Color
	}
	if cmd.ChipID != nil {
		updates["chip_id"] = strings.TrimSpace(*cmd.ChipID)
	}
	if cmd.PhotoURL != nil {
		updates["photo_url"] = *cmd.PhotoURL
	}

	if len(updates) > 0 {
		res := conn(ctx, r.db).Model(&pet.Pet{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Updates(updates)
		if res.Error != nil {
			if isUniqueViolation(res.Error, "chip_id") {
				return nil, pet.ErrChipAlreadyAssigned
			}
			return nil, fmt.Errorf("updating pet: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, pet.ErrPetNotFound
		}
	}

	return r.GetByID(ctx, id)
}

func (r *PetRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := conn(ctx, r.db).Model(&pet.Pet{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("deleting pet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return pet.ErrPetNotFound
	}
	return nil
}

func (r *PetRepository) List(ctx context.Context, q *pet.ListPetsQuery) (*pet.PagedPets, error) {
	base := conn(ctx, r.db).Model(&pet.Pet{}).Where("deleted_at IS NULL")
	if q.ClientID != nil {
		base = base.Where("client_id = ?", *q.ClientID)
	}
	if q.Species != "" {
		base = base.Where("species ILIKE ?", strings.TrimSpace(q.Species))
	}
	if q.Search != "" {
		like := contains(q.Search)
		base = base.Where("(name ILIKE ? OR chip_id ILIKE ?)", like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting pets: %w", err)
	}

	var items []*pet.Pet
	if err := base.Order("name ASC").Scopes(paginate(q.Page, q.PageSize)).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing pets: %w", err)
	}

	return &pet.PagedPets{
		Pets:       items,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}

func (r *PetRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&pet.Pet{}).
		Where("client_id = ? AND deleted_at IS NULL", clientID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting client pets: %w", err)
	}
	return count, nil
}

// ListByClient returns every pet of a client ordered by name.
func (r *PetRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*pet.Pet, error) {
	var items []*pet.Pet
	err := conn(ctx, r.db).
		Where("client_id = ? AND deleted_at IS NULL", clientID).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing client pets: %w", err)
	}
	return items, nil
}
