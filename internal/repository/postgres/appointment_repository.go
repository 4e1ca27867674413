package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// OccupiedSlots narrows the scan to appointments that can satisfy one of the
// overlap clauses against [from, to); the exact decision is made in Go.
func (r *AppointmentRepository) OccupiedSlots(ctx context.Context, vetID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]appointment.Slot, error) {
	query := conn(ctx, r.db).
		Model(&appointment.Appointment{}).
		Select("id", "scheduled_at", "duration_mins", "status").
		Where("veterinarian_id = ?", vetID).
		Where("status <> ?", appointment.StatusCancelled).
		Where("scheduled_at <= ?", to).
		Where("(scheduled_at + duration_mins * interval '1 minute' > ? OR scheduled_at >= ?)", from, from)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var rows []struct {
		ID           uuid.UUID
		ScheduledAt  time.Time
		DurationMins int
		Status       appointment.Status
	}
	if err := query.Order("scheduled_at ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying occupied slots: %w", err)
	}

	slots := make([]appointment.Slot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, appointment.Slot{
			AppointmentID: row.ID,
			Start:         row.ScheduledAt,
			DurationMins:  row.DurationMins,
			Status:        row.Status,
		})
	}
	return slots, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := conn(ctx, r.db).Create(a).Error; err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := conn(ctx, r.db).Preload("Services").Where("id = ?", id).First(&a).Error
	if isNotFound(err) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting appointment: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, a *appointment.Appointment) error {
	res := conn(ctx, r.db).Model(a).
		Select("scheduled_at", "status", "notes", "cancelled_at", "cancelled_by", "updated_at").
		Updates(a)
	if res.Error != nil {
		return fmt.Errorf("updating appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	base := conn(ctx, r.db).Table("clinical.appointments AS a")

	if q.VeterinarianID != nil {
		base = base.Where("a.veterinarian_id = ?", *q.VeterinarianID)
	}
	if q.ClientID != nil {
		base = base.Where("a.client_id = ?", *q.ClientID)
	}
	if q.PetID != nil {
		base = base.Where("a.pet_id = ?", *q.PetID)
	}
	if q.Status != nil {
		base = base.Where("a.status = ?", *q.Status)
	}
	if q.Date != nil {
		base = base.Where("a.scheduled_at >= ? AND a.scheduled_at < ?", *q.Date, nextDay(*q.Date))
	}
	if q.DateFrom != nil {
		base = base.Where("a.scheduled_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		base = base.Where("a.scheduled_at < ?", nextDay(*q.DateTo))
	}
	if q.PetName != "" {
		base = base.Joins("JOIN clinical.pets p ON p.id = a.pet_id").
			Where("p.name ILIKE ?", contains(q.PetName))
	}
	if q.ClientName != "" {
		base = base.Joins("JOIN clinical.clients c ON c.id = a.client_id").
			Where("c.name ILIKE ?", contains(q.ClientName))
	}
	if q.VeterinarianName != "" {
		base = base.Joins("JOIN clinical.veterinarians v ON v.id = a.veterinarian_id").
			Where("v.name ILIKE ?", contains(q.VeterinarianName))
	}
	if q.Search != "" {
		like := contains(q.Search)
		base = base.Where("(a.reason ILIKE ? OR a.notes ILIKE ?)", like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting appointments: %w", err)
	}

	var items []*appointment.Appointment
	err := base.Select("a.*").
		Preload("Services").
		Order("a.scheduled_at DESC").
		Scopes(paginate(q.Page, q.PageSize)).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}

	return &appointment.PagedAppointments{
		Appointments: items,
		TotalCount:   total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   totalPages(total, q.PageSize),
	}, nil
}

func (r *AppointmentRepository) CountUpcoming(ctx context.Context, vetID, petID *uuid.UUID, now time.Time) (int64, error) {
	query := conn(ctx, r.db).Model(&appointment.Appointment{}).
		Where("status <> ? AND scheduled_at >= ?", appointment.StatusCancelled, now)
	if vetID != nil {
		query = query.Where("veterinarian_id = ?", *vetID)
	}
	if petID != nil {
		query = query.Where("pet_id = ?", *petID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting upcoming appointments: %w", err)
	}
	return count, nil
}

func (r *AppointmentRepository) LatestForPet(ctx context.Context, petID uuid.UUID, limit int) ([]*appointment.Appointment, error) {
	return r.latest(ctx, "pet_id = ?", petID, limit)
}

func (r *AppointmentRepository) LatestForClient(ctx context.Context, clientID uuid.UUID, limit int) ([]*appointment.Appointment, error) {
	return r.latest(ctx, "client_id = ?", clientID, limit)
}

func (r *AppointmentRepository) latest(ctx context.Context, cond string, arg any, limit int) ([]*appointment.Appointment, error) {
	var items []*appointment.Appointment
	err := conn(ctx, r.db).
		Where(cond, arg).
		Order("scheduled_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing latest appointments: %w", err)
	}
	return items, nil
}
