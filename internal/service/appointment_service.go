package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/veterinarian"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/lock"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const appointmentsPageSize = 15

type AppointmentServiceDeps struct {
	Appointments  appointment.Repository
	Veterinarians veterinarian.Repository
	Clients       client.Repository
	Pets          pet.Repository
	Catalog       catalog.Repository
	Notifications notification.Repository
	Tx            Transactor
	Locker        lock.Locker
	Jobs          JobScheduler
	Audit         *AuditService
	Metrics       *metrics.Collector
	Log           *zap.Logger
	ReminderLead  time.Duration
	Location      *time.Location
}

type AppointmentService struct {
	repo          appointment.Repository
	guard         *appointment.Guard
	vets          veterinarian.Repository
	clients       client.Repository
	pets          pet.Repository
	catalog       catalog.Repository
	notifications notification.Repository
	tx            Transactor
	locker        lock.Locker
	jobs          JobScheduler
	auditSvc      *AuditService
	metrics       *metrics.Collector
	log           *zap.Logger
	tracer        trace.Tracer
	reminderLead  time.Duration
	loc           *time.Location
	now           func() time.Time
}

func NewAppointmentService(d AppointmentServiceDeps) *AppointmentService {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	jobs := d.Jobs
	if jobs == nil {
		jobs = NopScheduler{}
	}
	return &AppointmentService{
		repo:          d.Appointments,
		guard:         appointment.NewGuard(d.Appointments),
		vets:          d.Veterinarians,
		clients:       d.Clients,
		pets:          d.Pets,
		catalog:       d.Catalog,
		notifications: d.Notifications,
		tx:            d.Tx,
		locker:        d.Locker,
		jobs:          jobs,
		auditSvc:      d.Audit,
		metrics:       d.Metrics,
		log:           d.Log,
		tracer:        otel.Tracer("vetclinic/service/appointment"),
		reminderLead:  d.ReminderLead,
		loc:           loc,
		now:           time.Now,
	}
}

func scheduleLockKey(vetID uuid.UUID) string {
	return "schedule:vet:" + vetID.String()
}

// acquireSchedule serialises writers of one veterinarian's agenda across
// every API instance. The row lock taken later inside the transaction covers
// the same critical section when the distributed lock is unavailable.
func (s *AppointmentService) acquireSchedule(ctx context.Context, vetID uuid.UUID) (lock.Unlock, error) {
	start := time.Now()
	unlock, err := s.locker.Acquire(ctx, scheduleLockKey(vetID))
	s.metrics.ScheduleLockWait.Observe(time.Since(start).Seconds())
	if errors.Is(err, lock.ErrBusy) {
		s.metrics.AppointmentsTotal.WithLabelValues(metrics.OutcomeBusy).Inc()
		return nil, appointment.ErrScheduleBusy
	}
	if err != nil {
		return nil, fmt.Errorf("acquiring schedule lock: %w", err)
	}
	return unlock, nil
}

// checkAndLock must run inside a transaction.
func (s *AppointmentService) checkAndLock(ctx context.Context, vetID uuid.UUID, start time.Time, durationMins int, excludeID *uuid.UUID) error {
	if err := s.vets.LockForScheduling(ctx, vetID); err != nil {
		return err
	}
	conflict, err := s.guard.CheckConflict(ctx, vetID, start, durationMins, excludeID)
	if err != nil {
		return err
	}
	if conflict {
		return appointment.ErrAppointmentConflict
	}
	return nil
}

func (s *AppointmentService) validateCreate(cmd *appointment.CreateAppointmentCommand) error {
	if !cmd.ScheduledAt.After(s.now()) {
		return appointment.ErrScheduledInPast
	}
	if cmd.Location == "" {
		cmd.Location = appointment.LocationClinic
	}
	if !cmd.Location.IsValid() {
		return appointment.ErrInvalidLocation
	}
	if cmd.Location == appointment.LocationHomeVisit && cmd.Address == "" {
		return appointment.ErrAddressRequired
	}
	cmd.ServiceIDs = distinctIDs(cmd.ServiceIDs)
	if len(cmd.ServiceIDs) == 0 {
		return appointment.ErrNoServices
	}
	return nil
}

// distinctIDs drops repeated ids, keeping first-seen order. A service listed
// twice is booked once.
func distinctIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// serviceLines snapshots the catalog services and sums their durations.
func serviceLines(services []*catalog.Service) ([]appointment.ServiceLine, int) {
	lines := make([]appointment.ServiceLine, 0, len(services))
	total := 0
	for _, svc := range services {
		lines = append(lines, appointment.ServiceLine{
			ServiceID:      svc.ID,
			ServiceName:    svc.Name,
			Quantity:       1,
			UnitPriceCents: svc.PriceCents,
			DurationMins:   svc.DurationMins,
		})
		total += svc.DurationMins
	}
	return lines, total
}

func (s *AppointmentService) Schedule(ctx context.Context, cmd *appointment.CreateAppointmentCommand, actor Actor) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.Schedule",
		trace.WithAttributes(attribute.String("veterinarian.id", cmd.VeterinarianID.String())),
	)
	defer span.End()

	if actor.IsClient() && !actor.OwnsClient(cmd.ClientID) {
		return nil, ErrForbidden
	}
	if err := s.validateCreate(cmd); err != nil {
		return nil, err
	}

	p, err := s.pets.GetByID(ctx, cmd.PetID)
	if err != nil {
		return nil, err
	}
	if p.ClientID != cmd.ClientID {
		return nil, appointment.ErrPetNotOwnedByClient
	}
	owner, err := s.clients.GetByID(ctx, cmd.ClientID)
	if err != nil {
		return nil, err
	}
	vet, err := s.vets.GetByID(ctx, cmd.VeterinarianID)
	if err != nil {
		return nil, err
	}
	services, err := s.catalog.GetMany(ctx, cmd.ServiceIDs)
	if err != nil {
		return nil, err
	}
	lines, duration := serviceLines(services)

	a := &appointment.Appointment{
		ClientID:       cmd.ClientID,
		PetID:          cmd.PetID,
		VeterinarianID: cmd.VeterinarianID,
		ScheduledAt:    cmd.ScheduledAt,
		DurationMins:   duration,
		Status:         appointment.StatusPending,
		Location:       cmd.Location,
		Address:        cmd.Address,
		Reason:         cmd.Reason,
		Notes:          cmd.Notes,
		CreatedBy:      actor.UserID,
		Services:       lines,
	}

	unlock, err := s.acquireSchedule(ctx, a.VeterinarianID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var notice *notification.Notification
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkAndLock(ctx, a.VeterinarianID, a.ScheduledAt, a.DurationMins, nil); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		var err error
		if notice, err = s.notifyOwner(ctx, owner, notification.TypeAppointmentCreated, a, p, vet); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, AuditEntry{
			Actor:        actor,
			Action:       domain.ActionCreate,
			ResourceType: "appointment",
			ResourceID:   a.ID.String(),
			Changes: map[string]any{
				"veterinarian_id": a.VeterinarianID,
				"scheduled_at":    a.ScheduledAt,
				"duration_mins":   a.DurationMins,
			},
		})
	})
	if errors.Is(err, appointment.ErrAppointmentConflict) {
		s.metrics.AppointmentsTotal.WithLabelValues(metrics.OutcomeConflict).Inc()
		span.SetAttributes(attribute.Bool("schedule.conflict", true))
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scheduling failed")
		return nil, err
	}

	s.metrics.AppointmentsTotal.WithLabelValues(metrics.OutcomeCreated).Inc()
	s.log.Info("appointment scheduled",
		zap.String("appointment_id", a.ID.String()),
		zap.String("veterinarian_id", a.VeterinarianID.String()),
		zap.Time("scheduled_at", a.ScheduledAt),
		zap.Int("duration_mins", a.DurationMins),
	)
	s.afterCommit(ctx, notice, a)
	return a, nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID, actor Actor) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsClient() && !actor.OwnsClient(a.ClientID) {
		return nil, ErrForbidden
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionRead,
		ResourceType: "appointment",
		ResourceID:   id.String(),
	})
	return a, nil
}

// Update reschedules, changes status and/or edits notes. A new start time is
// checked against the veterinarian's agenda ignoring the appointment itself,
// keeps the stored duration and leaves the appointment rescheduled unless
// cmd.Status moves it further.
func (s *AppointmentService) Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand, actor Actor) (*appointment.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "AppointmentService.Update",
		trace.WithAttributes(attribute.String("appointment.id", id.String())),
	)
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsClient() {
		if !actor.OwnsClient(current.ClientID) {
			return nil, ErrForbidden
		}
		if cmd.Status != nil && *cmd.Status != appointment.StatusCancelled {
			return nil, ErrForbidden
		}
	}
	if cmd.Status != nil && !cmd.Status.IsValid() {
		return nil, appointment.ErrInvalidStatus
	}
	if cmd.ScheduledAt != nil && !cmd.ScheduledAt.After(s.now()) {
		return nil, appointment.ErrScheduledInPast
	}

	rescheduling := cmd.ScheduledAt != nil && !cmd.ScheduledAt.Equal(current.ScheduledAt)
	if rescheduling {
		unlock, err := s.acquireSchedule(ctx, current.VeterinarianID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	var (
		a      *appointment.Appointment
		notice *notification.Notification
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if rescheduling {
			if err := s.vets.LockForScheduling(ctx, current.VeterinarianID); err != nil {
				return err
			}
		}
		// Re-read under the lock so the duration and status are current.
		if a, err = s.repo.GetByID(ctx, id); err != nil {
			return err
		}
		before := a.Status

		if rescheduling {
			conflict, err := s.guard.CheckConflict(ctx, a.VeterinarianID, *cmd.ScheduledAt, a.DurationMins, &a.ID)
			if err != nil {
				return err
			}
			if conflict {
				return appointment.ErrAppointmentConflict
			}
			if err := a.Reschedule(*cmd.ScheduledAt); err != nil {
				return err
			}
		}
		if cmd.Status != nil && *cmd.Status != a.Status {
			if err := a.SetStatus(*cmd.Status, actor.UserID); err != nil {
				return err
			}
		}
		if cmd.Notes != nil {
			a.Notes = *cmd.Notes
		}

		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}

		if t, ok := noticeFor(before, a.Status, rescheduling); ok {
			if notice, err = s.notifyAbout(ctx, t, a); err != nil {
				return err
			}
		}

		changes := map[string]any{"status": a.Status}
		if rescheduling {
			changes["scheduled_at"] = a.ScheduledAt
		}
		if cmd.Notes != nil {
			changes["notes"] = true
		}
		return s.auditSvc.Record(ctx, AuditEntry{
			Actor:        actor,
			Action:       auditActionFor(a.Status, before),
			ResourceType: "appointment",
			ResourceID:   a.ID.String(),
			Changes:      changes,
		})
	})
	if errors.Is(err, appointment.ErrAppointmentConflict) {
		s.metrics.AppointmentsTotal.WithLabelValues(metrics.OutcomeConflict).Inc()
		span.SetAttributes(attribute.Bool("schedule.conflict", true))
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, err
	}

	switch {
	case a.Status == appointment.StatusCancelled && current.Status != appointment.StatusCancelled:
		s.metrics.AppointmentsTotal.WithLabelValues(metrics.OutcomeCancelled).Inc()
	case rescheduling:
		s.metrics.AppointmentsTotal.WithLabelValues(metrics.OutcomeRescheduled).Inc()
	}
	if rescheduling {
		s.afterCommit(ctx, notice, a)
	} else {
		s.deliver(ctx, notice)
	}
	return a, nil
}

// Cancel is a soft delete: the appointment stays stored but stops occupying
// the veterinarian's agenda.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*appointment.Appointment, error) {
	status := appointment.StatusCancelled
	return s.Update(ctx, id, &appointment.UpdateAppointmentCommand{Status: &status, UpdatedBy: actor.UserID}, actor)
}

func (s *AppointmentService) List(ctx context.Context, q *appointment.ListAppointmentsQuery, actor Actor) (*appointment.PagedAppointments, error) {
	if actor.IsClient() {
		if actor.ClientID == nil {
			return nil, ErrForbidden
		}
		q.ClientID = actor.ClientID
	}
	if q.Status != nil && !q.Status.IsValid() {
		return nil, appointment.ErrInvalidStatus
	}
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize, appointmentsPageSize)
	return s.repo.List(ctx, q)
}

// PrepareReminder creates the reminder notification for an appointment.
// It returns nil when the appointment was cancelled, moved away from
// startsAt, or its owner has no login.
func (s *AppointmentService) PrepareReminder(ctx context.Context, id uuid.UUID, startsAt time.Time) (*notification.Notification, error) {
	a, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, appointment.ErrAppointmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !a.Status.OccupiesSchedule() || a.Status == appointment.StatusAttended || !a.ScheduledAt.Equal(startsAt) {
		return nil, nil
	}
	return s.notifyAbout(ctx, notification.TypeAppointmentReminder, a)
}

func (s *AppointmentService) notifyAbout(ctx context.Context, t notification.Type, a *appointment.Appointment) (*notification.Notification, error) {
	owner, err := s.clients.GetByID(ctx, a.ClientID)
	if err != nil {
		return nil, err
	}
	p, err := s.pets.GetByID(ctx, a.PetID)
	if err != nil {
		return nil, err
	}
	vet, err := s.vets.GetByID(ctx, a.VeterinarianID)
	if err != nil {
		return nil, err
	}
	return s.notifyOwner(ctx, owner, t, a, p, vet)
}

func (s *AppointmentService) notifyOwner(
	ctx context.Context,
	owner *client.Client,
	t notification.Type,
	a *appointment.Appointment,
	p *pet.Pet,
	vet *veterinarian.Veterinarian,
) (*notification.Notification, error) {
	if owner.UserID == nil {
		return nil, nil
	}
	when := a.ScheduledAt.In(s.loc).Format("Mon 02 Jan 2006 15:04")

	var title, body string
	switch t {
	case notification.TypeAppointmentCreated:
		title = "Appointment booked"
		body = fmt.Sprintf("%s has an appointment with %s on %s.", p.Name, vet.Name, when)
	case notification.TypeAppointmentRescheduled:
		title = "Appointment rescheduled"
		body = fmt.Sprintf("The appointment of %s with %s was moved to %s.", p.Name, vet.Name, when)
	case notification.TypeAppointmentCancelled:
		title = "Appointment cancelled"
		body = fmt.Sprintf("The appointment of %s with %s on %s was cancelled.", p.Name, vet.Name, when)
	case notification.TypeAppointmentReminder:
		title = "Appointment reminder"
		body = fmt.Sprintf("Reminder: %s sees %s on %s.", p.Name, vet.Name, when)
	default:
		return nil, notification.ErrInvalidType
	}

	n := newNotification(*owner.UserID, t, title, body, map[string]string{
		"appointment_id": a.ID.String(),
		"pet_id":         a.PetID.String(),
	})
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// afterCommit hands delivery and the reminder to the worker. Queue failures
// are logged only: the appointment is already committed.
func (s *AppointmentService) afterCommit(ctx context.Context, notice *notification.Notification, a *appointment.Appointment) {
	s.deliver(ctx, notice)

	if a.Status == appointment.StatusCancelled {
		return
	}
	runAt := a.ScheduledAt.Add(-s.reminderLead)
	if now := s.now(); runAt.Before(now) {
		runAt = now
	}
	if err := s.jobs.ScheduleReminder(ctx, a.ID, a.ScheduledAt, runAt); err != nil {
		s.log.Warn("failed to schedule reminder",
			zap.String("appointment_id", a.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *AppointmentService) deliver(ctx context.Context, notice *notification.Notification) {
	if notice == nil {
		return
	}
	if err := s.jobs.EnqueueDelivery(ctx, notice.ID); err != nil {
		s.log.Warn("failed to enqueue notification delivery",
			zap.String("notification_id", notice.ID.String()),
			zap.Error(err),
		)
	}
}

func noticeFor(before, after appointment.Status, rescheduled bool) (notification.Type, bool) {
	switch {
	case after == appointment.StatusCancelled && before != appointment.StatusCancelled:
		return notification.TypeAppointmentCancelled, true
	case rescheduled:
		return notification.TypeAppointmentRescheduled, true
	}
	return "", false
}

func auditActionFor(after, before appointment.Status) domain.AuditAction {
	if after == appointment.StatusCancelled && before != appointment.StatusCancelled {
		return domain.ActionCancel
	}
	return domain.ActionUpdate
}
