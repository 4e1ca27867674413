package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/mailer"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type recordingSender struct {
	sent []mailer.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, m mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

func newNotificationService(f *fixture, mail mailer.Sender) *NotificationService {
	svc := NewNotificationService(fakeNotifications{f.db}, fakeTokens{f.db}, fakeUsers{f.db}, mail, newTestMetrics(), zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) seedNotification() *notification.Notification {
	n := newNotification(f.ownerUID, notification.TypeGeneral, "Hello", "Body", nil)
	n.ID = uuid.New()
	f.db.notifications[n.ID] = *n
	return n
}

func TestDeliverSendsOnce(t *testing.T) {
	f := newFixture()
	mail := &recordingSender{}
	svc := newNotificationService(f, mail)
	ctx := context.Background()
	n := f.seedNotification()

	if err := svc.Deliver(ctx, n.ID); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(mail.sent) != 1 || mail.sent[0].To != "ana@example.com" || mail.sent[0].Subject != "Hello" {
		t.Fatalf("sent = %+v", mail.sent)
	}
	if sentAt := f.db.notifications[n.ID].SentAt; sentAt == nil || !sentAt.Equal(testNow) {
		t.Errorf("SentAt = %v", sentAt)
	}

	if err := svc.Deliver(ctx, n.ID); err != nil {
		t.Fatalf("second Deliver: %v", err)
	}
	if len(mail.sent) != 1 {
		t.Errorf("redelivered: %d messages", len(mail.sent))
	}

	if err := svc.Deliver(ctx, uuid.New()); err != nil {
		t.Errorf("vanished notification: %v", err)
	}
}

func TestDeliverFailureIsRetryable(t *testing.T) {
	f := newFixture()
	n := f.seedNotification()

	for _, cause := range []error{errors.New("smtp: 421"), fmt.Errorf("breaker: %w", mailer.ErrUnavailable)} {
		svc := newNotificationService(f, &recordingSender{err: cause})
		err := svc.Deliver(context.Background(), n.ID)
		if !errors.Is(err, cause) {
			t.Errorf("err = %v, want wrapping %v", err, cause)
		}
		if f.db.notifications[n.ID].SentAt != nil {
			t.Error("marked sent after failure")
		}
	}
}

func TestNotificationsAreScopedToTheUser(t *testing.T) {
	f := newFixture()
	svc := newNotificationService(f, &recordingSender{})
	ctx := context.Background()
	n := f.seedNotification()
	f.seedNotification()

	stranger := Actor{UserID: uuid.New()}
	if err := svc.MarkRead(ctx, n.ID, stranger); !errors.Is(err, notification.ErrNotificationNotFound) {
		t.Errorf("stranger MarkRead: err = %v", err)
	}

	owner := f.ownerActor()
	if err := svc.MarkRead(ctx, n.ID, owner); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	unread, err := svc.UnreadCount(ctx, owner)
	if err != nil || unread != 1 {
		t.Errorf("UnreadCount = %d, %v", unread, err)
	}

	q := &notification.ListNotificationsQuery{UserID: stranger.UserID}
	page, err := svc.List(ctx, q, owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.TotalCount != 2 || page.PageSize != 20 {
		t.Errorf("List = %d items page size %d", page.TotalCount, page.PageSize)
	}

	removed, err := svc.DeleteRead(ctx, owner)
	if err != nil || removed != 1 {
		t.Errorf("DeleteRead = %d, %v", removed, err)
	}
}

func TestRegisterDevice(t *testing.T) {
	f := newFixture()
	svc := newNotificationService(f, &recordingSender{})
	ctx := context.Background()
	owner := f.ownerActor()

	if _, err := svc.RegisterDevice(ctx, "tok-1", "blackberry", owner); !errors.Is(err, notification.ErrInvalidPlatform) {
		t.Errorf("platform: err = %v", err)
	}
	var verr *ValidationError
	if _, err := svc.RegisterDevice(ctx, "  ", notification.PlatformIOS, owner); !errors.As(err, &verr) {
		t.Errorf("blank token: err = %v", err)
	}

	first, err := svc.RegisterDevice(ctx, "tok-1", notification.PlatformIOS, owner)
	if err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}
	again, err := svc.RegisterDevice(ctx, "tok-1", notification.PlatformIOS, owner)
	if err != nil {
		t.Fatalf("RegisterDevice again: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("re-registering created a new device")
	}

	devices, _ := svc.ListDevices(ctx, owner)
	if len(devices) != 1 {
		t.Errorf("devices = %d, want 1", len(devices))
	}
	if err := svc.RemoveDevice(ctx, "tok-1", Actor{UserID: uuid.New()}); !errors.Is(err, notification.ErrDeviceTokenNotFound) {
		t.Errorf("foreign remove: err = %v", err)
	}
	if n, err := svc.RemoveAllDevices(ctx, owner); err != nil || n != 1 {
		t.Errorf("RemoveAllDevices = %d, %v", n, err)
	}
}
