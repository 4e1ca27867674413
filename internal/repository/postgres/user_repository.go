package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := conn(ctx, r.db).Create(u).Error; err != nil {
		if isUniqueViolation(err, "email") {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := conn(ctx, r.db).
		Where("email = ? AND deleted_at IS NULL", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if isNotFound(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := conn(ctx, r.db).Where("id = ? AND deleted_at IS NULL", id).First(&u).Error
	if isNotFound(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// RecordLoginFailure increments the failure counter and locks the account
// for lockFor once it reaches maxAttempts.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, maxAttempts int, lockFor time.Duration) error {
	lockedUntil := time.Now().Add(lockFor)
	return conn(ctx, r.db).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failed_login_count": gorm.Expr("failed_login_count + 1"),
			"locked_until":       gorm.Expr("CASE WHEN failed_login_count + 1 >= ? THEN ?::timestamptz ELSE locked_until END", maxAttempts, lockedUntil),
		}).Error
}

func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"failed_login_count": 0,
			"locked_until":       nil,
			"last_login_at":      time.Now(),
		}).Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return conn(ctx, r.db).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash":       hash,
			"password_changed_at": time.Now(),
		}).Error
}
