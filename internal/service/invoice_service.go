package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/invoice"
	mr "github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InvoiceServiceDeps struct {
	Invoices       invoice.Repository
	Appointments   appointment.Repository
	Records        mr.Repository
	Pets           pet.Repository
	Clients        client.Repository
	Notifications  notification.Repository
	Tx             Transactor
	Jobs           JobScheduler
	Audit          *AuditService
	Metrics        *metrics.Collector
	Log            *zap.Logger
	DefaultTaxRate float64
	Prefix         string
	Location       *time.Location
}

type InvoiceService struct {
	repo          invoice.Repository
	appointments  appointment.Repository
	records       mr.Repository
	pets          pet.Repository
	clients       client.Repository
	notifications notification.Repository
	tx            Transactor
	jobs          JobScheduler
	auditSvc      *AuditService
	metrics       *metrics.Collector
	log           *zap.Logger
	taxRate       float64
	prefix        string
	loc           *time.Location
	now           func() time.Time
}

func NewInvoiceService(d InvoiceServiceDeps) *InvoiceService {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	jobs := d.Jobs
	if jobs == nil {
		jobs = NopScheduler{}
	}
	return &InvoiceService{
		repo:          d.Invoices,
		appointments:  d.Appointments,
		records:       d.Records,
		pets:          d.Pets,
		clients:       d.Clients,
		notifications: d.Notifications,
		tx:            d.Tx,
		jobs:          jobs,
		auditSvc:      d.Audit,
		metrics:       d.Metrics,
		log:           d.Log,
		taxRate:       d.DefaultTaxRate,
		prefix:        d.Prefix,
		loc:           loc,
		now:           time.Now,
	}
}

func (s *InvoiceService) rate(r *float64) (float64, error) {
	if r == nil {
		return s.taxRate, nil
	}
	if *r < 0 || *r > 100 {
		return 0, invoice.ErrInvalidTaxRate
	}
	return *r, nil
}

// issue allocates the next number, stores inv and queues the client's
// notification. Must run inside a transaction.
func (s *InvoiceService) issue(ctx context.Context, inv *invoice.Invoice, actor Actor, source string) (*notification.Notification, error) {
	issuedAt := s.now()
	year := issuedAt.In(s.loc).Year()
	n, err := s.repo.NextNumber(ctx, year)
	if err != nil {
		return nil, err
	}
	inv.Number = invoice.FormatNumber(s.prefix, year, n)
	inv.IssuedAt = issuedAt
	inv.Status = invoice.StatusPending
	inv.CreatedBy = actor.UserID

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	var notice *notification.Notification
	owner, err := s.clients.GetByID(ctx, inv.ClientID)
	if err != nil {
		return nil, err
	}
	if owner.UserID != nil {
		notice = newNotification(*owner.UserID, notification.TypeInvoiceIssued,
			"Invoice "+inv.Number,
			fmt.Sprintf("Invoice %s for %s was issued.", inv.Number, formatCents(inv.TotalCents)),
			map[string]string{"invoice_id": inv.ID.String()},
		)
		if err := s.notifications.Create(ctx, notice); err != nil {
			return nil, err
		}
	}

	if err := s.auditSvc.Record(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "invoice",
		ResourceID:   inv.ID.String(),
		Changes: map[string]any{
			"number":      inv.Number,
			"source":      source,
			"total_cents": inv.TotalCents,
		},
	}); err != nil {
		return nil, err
	}
	return notice, nil
}

func (s *InvoiceService) afterIssue(ctx context.Context, inv *invoice.Invoice, notice *notification.Notification, source string) {
	s.metrics.InvoicesIssuedTotal.WithLabelValues(source).Inc()
	s.log.Info("invoice issued",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number),
		zap.Int64("total_cents", inv.TotalCents),
	)
	if notice == nil {
		return
	}
	if err := s.jobs.EnqueueDelivery(ctx, notice.ID); err != nil {
		s.log.Warn("failed to enqueue invoice notification", zap.Error(err))
	}
}

// CreateFromAppointment bills the service lines booked on an appointment.
func (s *InvoiceService) CreateFromAppointment(ctx context.Context, cmd *invoice.CreateFromAppointmentCommand, actor Actor) (*invoice.Invoice, error) {
	if err := requireRole(actor, domain.RoleAdmin, domain.RoleReceptionist); err != nil {
		return nil, err
	}
	rate, err := s.rate(cmd.TaxRate)
	if err != nil {
		return nil, err
	}

	var (
		inv    *invoice.Invoice
		notice *notification.Notification
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		a, err := s.appointments.GetByID(ctx, cmd.AppointmentID)
		if err != nil {
			return err
		}
		if a.Status == appointment.StatusCancelled {
			return invoice.ErrAppointmentNotBillable
		}
		exists, err := s.repo.ExistsForAppointment(ctx, a.ID)
		if err != nil {
			return err
		}
		if exists {
			return invoice.ErrAppointmentInvoiced
		}

		inv = &invoice.Invoice{
			ClientID:      a.ClientID,
			AppointmentID: &a.ID,
			Notes:         cmd.Notes,
		}
		inv.ApplyTotals(a.TotalCents(), rate)
		notice, err = s.issue(ctx, inv, actor, "appointment")
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterIssue(ctx, inv, notice, "appointment")
	return inv, nil
}

// CreateFromRecords bills unbilled medical records of one client's pets and
// marks them billed.
func (s *InvoiceService) CreateFromRecords(ctx context.Context, cmd *invoice.CreateFromRecordsCommand, actor Actor) (*invoice.Invoice, error) {
	if err := requireRole(actor, domain.RoleAdmin, domain.RoleReceptionist); err != nil {
		return nil, err
	}
	if len(cmd.RecordIDs) == 0 {
		return nil, invoice.ErrNoRecords
	}
	rate, err := s.rate(cmd.TaxRate)
	if err != nil {
		return nil, err
	}

	var (
		inv    *invoice.Invoice
		notice *notification.Notification
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.clients.GetByID(ctx, cmd.ClientID); err != nil {
			return err
		}
		pets, err := s.pets.ListByClient(ctx, cmd.ClientID)
		if err != nil {
			return err
		}
		owned := make(map[uuid.UUID]bool, len(pets))
		for _, p := range pets {
			owned[p.ID] = true
		}

		records, err := s.records.GetManyForUpdate(ctx, cmd.RecordIDs)
		if err != nil {
			return err
		}
		var subtotal int64
		ids := make([]uuid.UUID, 0, len(records))
		for _, r := range records {
			if !owned[r.PetID] {
				return invoice.ErrRecordsNotOwned
			}
			if r.Billed {
				return mr.ErrRecordAlreadyBilled
			}
			subtotal += r.TotalServicesCents()
			ids = append(ids, r.ID)
		}

		inv = &invoice.Invoice{ClientID: cmd.ClientID, Notes: cmd.Notes}
		inv.ApplyTotals(subtotal, rate)
		if notice, err = s.issue(ctx, inv, actor, "records"); err != nil {
			return err
		}
		return s.records.MarkBilled(ctx, ids, inv.ID)
	})
	if err != nil {
		return nil, err
	}
	s.afterIssue(ctx, inv, notice, "records")
	return inv, nil
}

// visible enforces read access: clients see their own invoices and
// veterinarians those of their appointments.
func (s *InvoiceService) visible(ctx context.Context, inv *invoice.Invoice, actor Actor) error {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleReceptionist:
		return nil
	case domain.RoleClient:
		if actor.OwnsClient(inv.ClientID) {
			return nil
		}
	case domain.RoleVeterinarian:
		if inv.AppointmentID == nil || actor.VeterinarianID == nil {
			return ErrForbidden
		}
		a, err := s.appointments.GetByID(ctx, *inv.AppointmentID)
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return ErrForbidden
		}
		if err != nil {
			return err
		}
		if a.VeterinarianID == *actor.VeterinarianID {
			return nil
		}
	}
	return ErrForbidden
}

func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID, actor Actor) (*invoice.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.visible(ctx, inv, actor); err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionRead,
		ResourceType: "invoice",
		ResourceID:   id.String(),
	})
	return inv, nil
}

func (s *InvoiceService) scope(q *invoice.ListInvoicesQuery, actor Actor) error {
	switch actor.Role {
	case domain.RoleClient:
		if actor.ClientID == nil {
			return ErrForbidden
		}
		q.ClientID = actor.ClientID
	case domain.RoleVeterinarian:
		if actor.VeterinarianID == nil {
			return ErrForbidden
		}
		q.VeterinarianID = actor.VeterinarianID
	}
	if q.Status != nil && !q.Status.IsValid() {
		return invoice.ErrInvalidStatus
	}
	return nil
}

func (s *InvoiceService) List(ctx context.Context, q *invoice.ListInvoicesQuery, actor Actor) (*invoice.PagedInvoices, error) {
	if err := s.scope(q, actor); err != nil {
		return nil, err
	}
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize, 20)
	return s.repo.List(ctx, q)
}

// Stats aggregates the invoices matching the same filters List accepts.
func (s *InvoiceService) Stats(ctx context.Context, q *invoice.ListInvoicesQuery, actor Actor) (*invoice.Stats, error) {
	if err := s.scope(q, actor); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx, q)
}

// NextNumber previews the number the next invoice would get.
func (s *InvoiceService) NextNumber(ctx context.Context) (string, error) {
	year := s.now().In(s.loc).Year()
	n, err := s.repo.PeekNumber(ctx, year)
	if err != nil {
		return "", err
	}
	return invoice.FormatNumber(s.prefix, year, n), nil
}

func (s *InvoiceService) Update(ctx context.Context, id uuid.UUID, cmd *invoice.UpdateInvoiceCommand, actor Actor) (*invoice.Invoice, error) {
	if err := requireRole(actor, domain.RoleAdmin, domain.RoleReceptionist); err != nil {
		return nil, err
	}
	if cmd.PaymentMethod != nil && !cmd.PaymentMethod.IsValid() {
		return nil, invoice.ErrInvalidPaymentMethod
	}

	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.Status != nil {
		if err := inv.SetStatus(*cmd.Status, s.now()); err != nil {
			return nil, err
		}
	}
	if cmd.PaymentMethod != nil {
		inv.PaymentMethod = cmd.PaymentMethod
	}
	if cmd.Notes != nil {
		inv.Notes = *cmd.Notes
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "invoice",
		ResourceID:   id.String(),
		Changes:      map[string]any{"status": inv.Status},
	})
	return inv, nil
}

// Delete soft-deletes an unpaid invoice.
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status == invoice.StatusPaid {
		return invoice.ErrPaidInvoiceDelete
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SoftDelete(ctx, id); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, AuditEntry{
			Actor:        actor,
			Action:       domain.ActionDelete,
			ResourceType: "invoice",
			ResourceID:   id.String(),
			Changes:      map[string]any{"number": inv.Number},
		})
	})
}

func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
