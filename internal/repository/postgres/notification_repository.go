package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/notification"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	if err := conn(ctx, r.db).Create(n).Error; err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*notification.Notification, error) {
	var n notification.Notification
	err := conn(ctx, r.db).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if isNotFound(err) {
		return nil, notification.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	return &n, nil
}

// GetForDelivery loads a notification regardless of owner.
func (r *NotificationRepository) GetForDelivery(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	var n notification.Notification
	err := conn(ctx, r.db).Where("id = ?", id).First(&n).Error
	if isNotFound(err) {
		return nil, notification.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	return &n, nil
}

func (r *NotificationRepository) List(ctx context.Context, q *notification.ListNotificationsQuery) (*notification.PagedNotifications, error) {
	base := conn(ctx, r.db).Model(&notification.Notification{}).Where("user_id = ?", q.UserID)
	if q.UnreadOnly {
		base = base.Where("is_read = false")
	}
	if q.Type != nil {
		base = base.Where("type = ?", *q.Type)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting notifications: %w", err)
	}

	var items []*notification.Notification
	if err := base.Order("created_at DESC").Scopes(paginate(q.Page, q.PageSize)).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	return &notification.PagedNotifications{
		Notifications: items,
		TotalCount:    total,
		Page:          q.Page,
		PageSize:      q.PageSize,
		TotalPages:    totalPages(total, q.PageSize),
	}, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&notification.Notification{}).
		Where("user_id = ? AND is_read = false", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	res := conn(ctx, r.db).Model(&notification.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"is_read": true, "read_at": gorm.Expr("COALESCE(read_at, ?)", at)})
	if res.Error != nil {
		return fmt.Errorf("marking notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := conn(ctx, r.db).Model(&notification.Notification{}).
		Where("user_id = ? AND is_read = false", userID).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return 0, fmt.Errorf("marking notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return conn(ctx, r.db).Model(&notification.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"sent_at": at, "channel": notification.ChannelEmail}).Error
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := conn(ctx, r.db).Where("id = ? AND user_id = ?", id, userID).Delete(&notification.Notification{})
	if res.Error != nil {
		return fmt.Errorf("deleting notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) DeleteRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := conn(ctx, r.db).Where("user_id = ? AND is_read = true", userID).Delete(&notification.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting read notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

type DeviceTokenRepository struct {
	db *gorm.DB
}

func NewDeviceTokenRepository(db *gorm.DB) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

func (r *DeviceTokenRepository) Upsert(ctx context.Context, t *notification.DeviceToken) error {
	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "last_seen_at"}),
	}).Create(t).Error
	if err != nil {
		return fmt.Errorf("upserting device token: %w", err)
	}
	return nil
}

func (r *DeviceTokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*notification.DeviceToken, error) {
	var items []*notification.DeviceToken
	err := conn(ctx, r.db).Where("user_id = ?", userID).Order("last_seen_at DESC").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing device tokens: %w", err)
	}
	return items, nil
}

func (r *DeviceTokenRepository) Delete(ctx context.Context, userID uuid.UUID, token string) error {
	res := conn(ctx, r.db).Where("user_id = ? AND token = ?", userID, token).Delete(&notification.DeviceToken{})
	if res.Error != nil {
		return fmt.Errorf("deleting device token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notification.ErrDeviceTokenNotFound
	}
	return nil
}

func (r *DeviceTokenRepository) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := conn(ctx, r.db).Where("user_id = ?", userID).Delete(&notification.DeviceToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("deleting device tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
