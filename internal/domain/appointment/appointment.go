package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status transitions:
//
//	pending     → confirmed | attended | cancelled | rescheduled
//	confirmed   → attended | cancelled | rescheduled
//	rescheduled → confirmed | attended | cancelled | rescheduled
//
// attended and cancelled are terminal. rescheduled is only reachable by
// moving the appointment to a new start time.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusAttended    Status = "attended"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusAttended, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// OccupiesSchedule reports whether an appointment in this status blocks the
// veterinarian's agenda.
func (s Status) OccupiesSchedule() bool {
	return s != StatusCancelled
}

type Location string

const (
	LocationClinic      Location = "clinic"
	LocationHomeVisit   Location = "home_visit"
	LocationTeleconsult Location = "teleconsult"
)

func (l Location) IsValid() bool {
	switch l {
	case LocationClinic, LocationHomeVisit, LocationTeleconsult:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending:     {StatusConfirmed, StatusAttended, StatusCancelled, StatusRescheduled},
	StatusConfirmed:   {StatusAttended, StatusCancelled, StatusRescheduled},
	StatusRescheduled: {StatusConfirmed, StatusAttended, StatusCancelled, StatusRescheduled},
	StatusAttended:    {},
	StatusCancelled:   {},
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	ClientID       uuid.UUID `gorm:"column:client_id;type:uuid;not null;index" json:"client_id"`
	PetID          uuid.UUID `gorm:"column:pet_id;type:uuid;not null;index" json:"pet_id"`
	VeterinarianID uuid.UUID `gorm:"column:veterinarian_id;type:uuid;not null;index" json:"veterinarian_id"`

	// End is derived from ScheduledAt + DurationMins and never stored.
	ScheduledAt  time.Time `gorm:"column:scheduled_at;not null;index" json:"scheduled_at"`
	DurationMins int       `gorm:"column:duration_mins;not null;default:0" json:"duration_mins"`
	Status       Status    `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	Location Location `gorm:"column:location;type:varchar(20);not null;default:'clinic'" json:"location"`
	Address  string   `gorm:"column:address;type:text" json:"address,omitempty"`
	Reason   string   `gorm:"column:reason;type:varchar(255)" json:"reason,omitempty"`
	Notes    string   `gorm:"column:notes;type:text" json:"notes,omitempty"`

	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy *uuid.UUID `gorm:"column:cancelled_by;type:uuid" json:"cancelled_by,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null" json:"created_by"`

	Services []ServiceLine `gorm:"foreignKey:AppointmentID" json:"services,omitempty"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMins) * time.Minute)
}

func (a *Appointment) Slot() Slot {
	return Slot{
		AppointmentID: a.ID,
		Start:         a.ScheduledAt,
		DurationMins:  a.DurationMins,
		Status:        a.Status,
	}
}

func (a *Appointment) CanTransitionTo(newStatus Status) bool {
	for _, s := range transitions[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// SetStatus applies a plain status change. Moving to rescheduled requires a
// new start time and goes through Reschedule instead.
func (a *Appointment) SetStatus(newStatus Status, by uuid.UUID) error {
	if newStatus == a.Status {
		return nil
	}
	if newStatus == StatusRescheduled || !a.CanTransitionTo(newStatus) {
		return ErrInvalidStatusTransition
	}
	if newStatus == StatusCancelled {
		return a.Cancel(by)
	}
	a.Status = newStatus
	return nil
}

func (a *Appointment) Cancel(cancelledBy uuid.UUID) error {
	if !a.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	now := time.Now()
	a.Status = StatusCancelled
	a.CancelledAt = &now
	a.CancelledBy = &cancelledBy
	return nil
}

// Reschedule moves the appointment keeping its stored duration.
func (a *Appointment) Reschedule(newStart time.Time) error {
	if !a.CanTransitionTo(StatusRescheduled) {
		return ErrInvalidStatusTransition
	}
	a.ScheduledAt = newStart
	a.Status = StatusRescheduled
	return nil
}

// TotalCents sums the price snapshot of every service line.
func (a *Appointment) TotalCents() int64 {
	var total int64
	for _, l := range a.Services {
		total += l.LineTotalCents()
	}
	return total
}

// ServiceLine is a catalog service attached to an appointment. Name, price
// and duration are copied at booking time and never re-read from the catalog.
type ServiceLine struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"-"`
	AppointmentID uuid.UUID `gorm:"column:appointment_id;type:uuid;not null;index" json:"-"`
	ServiceID     uuid.UUID `gorm:"column:service_id;type:uuid;not null;index" json:"service_id"`

	ServiceName    string `gorm:"column:service_name;type:varchar(150);not null" json:"service_name"`
	Quantity       int    `gorm:"column:quantity;not null;default:1" json:"quantity"`
	UnitPriceCents int64  `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	DurationMins   int    `gorm:"column:duration_mins;not null" json:"duration_mins"`
	Notes          string `gorm:"column:notes;type:text" json:"notes,omitempty"`
}

func (ServiceLine) TableName() string {
	return "clinical.appointment_services"
}

func (l ServiceLine) LineTotalCents() int64 {
	return int64(l.Quantity) * l.UnitPriceCents
}

type CreateAppointmentCommand struct {
	ClientID       uuid.UUID
	PetID          uuid.UUID
	VeterinarianID uuid.UUID
	ScheduledAt    time.Time
	Location       Location
	Address        string
	Reason         string
	Notes          string
	ServiceIDs     []uuid.UUID
	CreatedBy      uuid.UUID
}

type UpdateAppointmentCommand struct {
	ScheduledAt *time.Time
	Status      *Status
	Notes       *string
	UpdatedBy   uuid.UUID
}

type ListAppointmentsQuery struct {
	VeterinarianID *uuid.UUID
	ClientID       *uuid.UUID
	PetID          *uuid.UUID
	Status         *Status
	// Date restricts to a single calendar day; DateFrom/DateTo are inclusive days.
	Date     *time.Time
	DateFrom *time.Time
	DateTo   *time.Time

	PetName          string
	ClientName       string
	VeterinarianName string
	Search           string // reason or notes

	Page     int
	PageSize int
}

type PagedAppointments struct {
	Appointments []*Appointment `json:"appointments"`
	TotalCount   int64          `json:"total_count"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	TotalPages   int            `json:"total_pages"`
}
