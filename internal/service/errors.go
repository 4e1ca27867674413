package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/google/uuid"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID         uuid.UUID
	Role           domain.Role
	ClientID       *uuid.UUID
	VeterinarianID *uuid.UUID
	IP             string
	RequestID      string
}

func ActorFromClaims(c *domain.Claims, ip, requestID string) Actor {
	return Actor{
		UserID:         c.UserID,
		Role:           c.Role,
		ClientID:       c.ClientID,
		VeterinarianID: c.VeterinarianID,
		IP:             ip,
		RequestID:      requestID,
	}
}

func (a Actor) IsStaff() bool { return a.Role.IsStaff() }

func (a Actor) IsClient() bool { return a.Role == domain.RoleClient }

// OwnsClient reports whether a client-role actor is the given client.
func (a Actor) OwnsClient(clientID uuid.UUID) bool {
	return a.ClientID != nil && *a.ClientID == clientID
}

// requireRole returns ErrForbidden unless the actor has one of roles.
func requireRole(a Actor, roles ...domain.Role) error {
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// Transactor runs fn in a single database transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// JobScheduler hands work to the background worker.
type JobScheduler interface {
	EnqueueDelivery(ctx context.Context, notificationID uuid.UUID) error
	ScheduleReminder(ctx context.Context, appointmentID uuid.UUID, startsAt, runAt time.Time) error
}

// NopScheduler is used when no queue is configured.
type NopScheduler struct{}

func (NopScheduler) EnqueueDelivery(context.Context, uuid.UUID) error { return nil }

func (NopScheduler) ScheduleReminder(context.Context, uuid.UUID, time.Time, time.Time) error {
	return nil
}

func normalizePage(page, pageSize, def int) (int, int) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = def
	}
	if page <= 0 {
		page = 1
	}
	return page, pageSize
}
