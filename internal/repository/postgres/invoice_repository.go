package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/invoice"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	if err := conn(ctx, r.db).Create(inv).Error; err != nil {
		if isUniqueViolation(err, "appointment_id") {
			return invoice.ErrAppointmentInvoiced
		}
		return fmt.Errorf("inserting invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := conn(ctx, r.db).Where("id = ? AND deleted_at IS NULL", id).First(&inv).Error
	if isNotFound(err) {
		return nil, invoice.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	res := conn(ctx, r.db).Model(inv).
		Select("status", "payment_method", "paid_at", "notes", "updated_at").
		Updates(inv)
	if res.Error != nil {
		return fmt.Errorf("updating invoice: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return invoice.ErrInvoiceNotFound
	}
	return nil
}

// SoftDelete frees the appointment and the billed records of the invoice so
// they can be invoiced again.
func (r *InvoiceRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	res := db.Model(&invoice.Invoice{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{"deleted_at": time.Now(), "appointment_id": nil})
	if res.Error != nil {
		return fmt.Errorf("deleting invoice: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return invoice.ErrInvoiceNotFound
	}
	err := db.Table("clinical.medical_records").
		Where("invoice_id = ?", id).
		Updates(map[string]any{"billed": false, "invoice_id": nil}).Error
	if err != nil {
		return fmt.Errorf("releasing billed records: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) filtered(ctx context.Context, q *invoice.ListInvoicesQuery) *gorm.DB {
	base := conn(ctx, r.db).Table("billing.invoices AS i").Where("i.deleted_at IS NULL")
	if q.ClientID != nil {
		base = base.Where("i.client_id = ?", *q.ClientID)
	}
	if q.VeterinarianID != nil {
		base = base.Joins("JOIN clinical.appointments a ON a.id = i.appointment_id").
			Where("a.veterinarian_id = ?", *q.VeterinarianID)
	}
	if q.Status != nil {
		base = base.Where("i.status = ?", *q.Status)
	}
	if q.DateFrom != nil {
		base = base.Where("i.issued_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		base = base.Where("i.issued_at < ?", nextDay(*q.DateTo))
	}
	if q.Number != "" {
		base = base.Where("i.number ILIKE ?", contains(q.Number))
	}
	return base
}

func (r *InvoiceRepository) List(ctx context.Context, q *invoice.ListInvoicesQuery) (*invoice.PagedInvoices, error) {
	base := r.filtered(ctx, q)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting invoices: %w", err)
	}

	var items []*invoice.Invoice
	err := base.Select("i.*").
		Order("i.issued_at DESC").
		Scopes(paginate(q.Page, q.PageSize)).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	return &invoice.PagedInvoices{
		Invoices:   items,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}

func (r *InvoiceRepository) Stats(ctx context.Context, q *invoice.ListInvoicesQuery) (*invoice.Stats, error) {
	var s invoice.Stats
	err := r.filtered(ctx, q).Select(`
		COUNT(*) AS total_invoices,
		COUNT(*) FILTER (WHERE i.status = 'pending') AS pending_count,
		COUNT(*) FILTER (WHERE i.status = 'paid') AS paid_count,
		COUNT(*) FILTER (WHERE i.status = 'void') AS void_count,
		COALESCE(SUM(i.total_cents) FILTER (WHERE i.status = 'pending'), 0) AS pending_cents,
		COALESCE(SUM(i.total_cents) FILTER (WHERE i.status = 'paid'), 0) AS paid_cents,
		COALESCE(ROUND(AVG(i.total_cents) FILTER (WHERE i.status = 'paid')), 0)::bigint AS average_paid_cents`).
		Scan(&s).Error
	if err != nil {
		return nil, fmt.Errorf("computing invoice stats: %w", err)
	}
	return &s, nil
}

func (r *InvoiceRepository) ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&invoice.Invoice{}).
		Where("appointment_id = ? AND deleted_at IS NULL", appointmentID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking appointment invoice: %w", err)
	}
	return count > 0, nil
}

// NextNumber increments the year's counter with a single upsert so
// concurrent invoices never share a number.
func (r *InvoiceRepository) NextNumber(ctx context.Context, year int) (int, error) {
	var n int
	err := conn(ctx, r.db).Raw(`
		INSERT INTO billing.invoice_sequences (year, last_number) VALUES (?, 1)
		ON CONFLICT (year) DO UPDATE SET last_number = billing.invoice_sequences.last_number + 1
		RETURNING last_number`, year).Scan(&n).Error
	if err != nil {
		return 0, fmt.Errorf("allocating invoice number: %w", err)
	}
	return n, nil
}

func (r *InvoiceRepository) PeekNumber(ctx context.Context, year int) (int, error) {
	var seq invoice.Sequence
	err := conn(ctx, r.db).Where("year = ?", year).Take(&seq).Error
	if isNotFound(err) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading invoice sequence: %w", err)
	}
	return seq.LastNumber + 1, nil
}
