package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type Deliverer interface {
	Deliver(ctx context.Context, notificationID uuid.UUID) error
}

type ReminderPreparer interface {
	PrepareReminder(ctx context.Context, appointmentID uuid.UUID, startsAt time.Time) (*notification.Notification, error)
}

// Processor handles the tasks produced by Client.
type Processor struct {
	notifications Deliverer
	reminders     ReminderPreparer
	jobs          service.JobScheduler
	log           *zap.Logger
}

func NewProcessor(n Deliverer, r ReminderPreparer, jobs service.JobScheduler, log *zap.Logger) *Processor {
	if jobs == nil {
		jobs = service.NopScheduler{}
	}
	return &Processor{notifications: n, reminders: r, jobs: jobs, log: log}
}

func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskNotificationDeliver, p.HandleDeliver)
	mux.HandleFunc(TaskAppointmentReminder, p.HandleReminder)
	return mux
}

func (p *Processor) HandleDeliver(ctx context.Context, t *asynq.Task) error {
	payload, err := ParseDeliverPayload(t)
	if err != nil {
		return err
	}
	return p.notifications.Deliver(ctx, payload.NotificationID)
}

// HandleReminder stores the reminder notification and queues its delivery.
// A reminder whose appointment was cancelled or moved produces nothing.
func (p *Processor) HandleReminder(ctx context.Context, t *asynq.Task) error {
	payload, err := ParseReminderPayload(t)
	if err != nil {
		return err
	}

	notice, err := p.reminders.PrepareReminder(ctx, payload.AppointmentID, payload.StartsAt)
	if err != nil {
		return err
	}
	if notice == nil {
		p.log.Debug("stale reminder skipped", zap.String("appointment_id", payload.AppointmentID.String()))
		return nil
	}

	// The notification row exists now, so a retry of this task would
	// duplicate it. Fall back to inline delivery instead of failing.
	if err := p.jobs.EnqueueDelivery(ctx, notice.ID); err != nil {
		p.log.Warn("enqueueing reminder delivery failed, delivering inline",
			zap.String("notification_id", notice.ID.String()),
			zap.Error(err),
		)
		if err := p.notifications.Deliver(ctx, notice.ID); err != nil {
			p.log.Error("reminder delivery failed",
				zap.String("notification_id", notice.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}
