package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/mailer"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserReader is the part of the user store needed to address a notification.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type NotificationService struct {
	repo    notification.Repository
	tokens  notification.DeviceTokenRepository
	users   UserReader
	mail    mailer.Sender
	metrics *metrics.Collector
	log     *zap.Logger
	now     func() time.Time
}

func NewNotificationService(
	repo notification.Repository,
	tokens notification.DeviceTokenRepository,
	users UserReader,
	mail mailer.Sender,
	m *metrics.Collector,
	log *zap.Logger,
) *NotificationService {
	return &NotificationService{
		repo:    repo,
		tokens:  tokens,
		users:   users,
		mail:    mail,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func newNotification(userID uuid.UUID, t notification.Type, title, body string, meta map[string]string) *notification.Notification {
	return &notification.Notification{
		UserID:  userID,
		Type:    t,
		Title:   title,
		Body:    body,
		Meta:    meta,
		Channel: notification.ChannelEmail,
	}
}

func (s *NotificationService) List(ctx context.Context, q *notification.ListNotificationsQuery, actor Actor) (*notification.PagedNotifications, error) {
	q.UserID = actor.UserID
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize, 20)
	if q.Type != nil && !q.Type.IsValid() {
		return nil, notification.ErrInvalidType
	}
	return s.repo.List(ctx, q)
}

func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	return s.repo.CountUnread(ctx, actor.UserID)
}

func (s *NotificationService) Types() []notification.Type {
	return notification.Types
}

func (s *NotificationService) Get(ctx context.Context, id uuid.UUID, actor Actor) (*notification.Notification, error) {
	return s.repo.GetByID(ctx, actor.UserID, id)
}

func (s *NotificationService) MarkRead(ctx context.Context, id uuid.UUID, actor Actor) error {
	return s.repo.MarkRead(ctx, actor.UserID, id, s.now())
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	return s.repo.MarkAllRead(ctx, actor.UserID, s.now())
}

func (s *NotificationService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	return s.repo.Delete(ctx, actor.UserID, id)
}

func (s *NotificationService) DeleteRead(ctx context.Context, actor Actor) (int64, error) {
	return s.repo.DeleteRead(ctx, actor.UserID)
}

// Deliver e-mails a stored notification to its recipient. Delivery is
// idempotent: a notification already marked as sent is skipped. Returned
// errors are retryable.
func (s *NotificationService) Deliver(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.GetForDelivery(ctx, id)
	if errors.Is(err, notification.ErrNotificationNotFound) {
		s.log.Warn("notification vanished before delivery", zap.String("notification_id", id.String()))
		return nil
	}
	if err != nil {
		return err
	}
	if n.SentAt != nil {
		return nil
	}

	u, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("loading recipient: %w", err)
	}

	err = s.mail.Send(ctx, mailer.Message{
		To:      u.Email,
		Subject: n.Title,
		Text:    n.Body,
	})
	if err != nil {
		result := "failed"
		if errors.Is(err, mailer.ErrUnavailable) {
			result = "circuit_open"
		}
		s.metrics.NotificationsTotal.WithLabelValues(notification.ChannelEmail, result).Inc()
		return fmt.Errorf("sending notification %s: %w", n.ID, err)
	}
	s.metrics.NotificationsTotal.WithLabelValues(notification.ChannelEmail, "sent").Inc()

	if err := s.repo.MarkSent(ctx, n.ID, s.now()); err != nil {
		return fmt.Errorf("marking notification sent: %w", err)
	}
	s.log.Info("notification delivered",
		zap.String("notification_id", n.ID.String()),
		zap.String("type", string(n.Type)),
	)
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, token string, platform notification.Platform, actor Actor) (*notification.DeviceToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &ValidationError{Fields: []string{"token is required"}}
	}
	if !platform.IsValid() {
		return nil, notification.ErrInvalidPlatform
	}
	t := &notification.DeviceToken{
		UserID:     actor.UserID,
		Token:      token,
		Platform:   platform,
		LastSeenAt: s.now(),
	}
	if err := s.tokens.Upsert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *NotificationService) ListDevices(ctx context.Context, actor Actor) ([]*notification.DeviceToken, error) {
	return s.tokens.ListByUser(ctx, actor.UserID)
}

func (s *NotificationService) RemoveDevice(ctx context.Context, token string, actor Actor) error {
	return s.tokens.Delete(ctx, actor.UserID, token)
}

func (s *NotificationService) RemoveAllDevices(ctx context.Context, actor Actor) (int64, error) {
	return s.tokens.DeleteAll(ctx, actor.UserID)
}
