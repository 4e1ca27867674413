package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// GetByID returns the notification only if it belongs to userID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Notification, error)
	// GetForDelivery loads a notification regardless of owner.
	GetForDelivery(ctx context.Context, id uuid.UUID) (*Notification, error)
	List(ctx context.Context, q *ListNotificationsQuery) (*PagedNotifications, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type DeviceTokenRepository interface {
	// Upsert inserts the token or moves it to userID, refreshing platform and last_seen_at.
	Upsert(ctx context.Context, t *DeviceToken) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*DeviceToken, error)
	Delete(ctx context.Context, userID uuid.UUID, token string) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
}
