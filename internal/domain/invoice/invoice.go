package invoice

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusVoid    Status = "void"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusVoid:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentOther    PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentOther:
		return true
	}
	return false
}

// Invoice amounts are in cents.
type Invoice struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	Number   string    `gorm:"column:number;type:varchar(30);uniqueIndex;not null" json:"number"`
	IssuedAt time.Time `gorm:"column:issued_at;not null;index" json:"issued_at"`

	ClientID uuid.UUID `gorm:"column:client_id;type:uuid;not null;index" json:"client_id"`
	// Set for invoices generated from an appointment; one invoice per appointment.
	AppointmentID *uuid.UUID `gorm:"column:appointment_id;type:uuid;uniqueIndex" json:"appointment_id,omitempty"`

	SubtotalCents int64   `gorm:"column:subtotal_cents;not null" json:"subtotal_cents"`
	TaxRate       float64 `gorm:"column:tax_rate;type:numeric(5,2);not null" json:"tax_rate"`
	TaxCents      int64   `gorm:"column:tax_cents;not null" json:"tax_cents"`
	TotalCents    int64   `gorm:"column:total_cents;not null" json:"total_cents"`

	Status        Status         `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod *PaymentMethod `gorm:"column:payment_method;type:varchar(20)" json:"payment_method,omitempty"`
	PaidAt        *time.Time     `gorm:"column:paid_at" json:"paid_at,omitempty"`
	Notes         string         `gorm:"column:notes;type:text" json:"notes,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"-"`
}

func (Invoice) TableName() string {
	return "billing.invoices"
}

// ApplyTotals fills tax and total from subtotal and rate (a percentage).
// Tax is rounded half away from zero to the cent.
func (i *Invoice) ApplyTotals(subtotalCents int64, rate float64) {
	i.SubtotalCents = subtotalCents
	i.TaxRate = rate
	i.TaxCents = int64(math.Round(float64(subtotalCents) * rate / 100))
	i.TotalCents = i.SubtotalCents + i.TaxCents
}

// SetStatus moves the invoice between states, stamping PaidAt on payment and
// clearing it otherwise.
func (i *Invoice) SetStatus(s Status, now time.Time) error {
	if !s.IsValid() {
		return ErrInvalidStatus
	}
	i.Status = s
	if s == StatusPaid {
		if i.PaidAt == nil {
			i.PaidAt = &now
		}
	} else {
		i.PaidAt = nil
	}
	return nil
}

// Sequence is the per-year invoice counter.
type Sequence struct {
	Year       int `gorm:"column:year;primaryKey;autoIncrement:false"`
	LastNumber int `gorm:"column:last_number;not null;default:0"`
}

func (Sequence) TableName() string {
	return "billing.invoice_sequences"
}

// FormatNumber renders prefix-YYYY-NNNNN.
func FormatNumber(prefix string, year, n int) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, n)
}

type CreateFromAppointmentCommand struct {
	AppointmentID uuid.UUID
	TaxRate       *float64
	Notes         string
	CreatedBy     uuid.UUID
}

type CreateFromRecordsCommand struct {
	ClientID  uuid.UUID
	RecordIDs []uuid.UUID
	TaxRate   *float64
	Notes     string
	CreatedBy uuid.UUID
}

type UpdateInvoiceCommand struct {
	Status        *Status
	PaymentMethod *PaymentMethod
	Notes         *string
}

type ListInvoicesQuery struct {
	ClientID       *uuid.UUID
	VeterinarianID *uuid.UUID // invoices of the veterinarian's appointments
	Status         *Status
	DateFrom       *time.Time
	DateTo         *time.Time
	Number         string
	Page           int
	PageSize       int
}

type PagedInvoices struct {
	Invoices   []*Invoice `json:"invoices"`
	TotalCount int64      `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

type Stats struct {
	TotalInvoices    int64 `json:"total_invoices"`
	PendingCount     int64 `json:"pending_count"`
	PaidCount        int64 `json:"paid_count"`
	VoidCount        int64 `json:"void_count"`
	PendingCents     int64 `json:"pending_cents"`
	PaidCents        int64 `json:"paid_cents"`
	AveragePaidCents int64 `json:"average_paid_cents"`
}
