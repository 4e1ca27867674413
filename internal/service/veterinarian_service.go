package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/veterinarian"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VeterinarianService struct {
	repo         veterinarian.Repository
	appointments appointment.Repository
	tx           Transactor
	auditSvc     *AuditService
	log          *zap.Logger
	loc          *time.Location
	now          func() time.Time
}

func NewVeterinarianService(
	repo veterinarian.Repository,
	appointments appointment.Repository,
	tx Transactor,
	auditSvc *AuditService,
	loc *time.Location,
	log *zap.Logger,
) *VeterinarianService {
	if loc == nil {
		loc = time.UTC
	}
	return &VeterinarianService{
		repo:         repo,
		appointments: appointments,
		tx:           tx,
		auditSvc:     auditSvc,
		log:          log,
		loc:          loc,
		now:          time.Now,
	}
}

func (s *VeterinarianService) Create(ctx context.Context, cmd *veterinarian.CreateVeterinarianCommand, actor Actor) (*veterinarian.Veterinarian, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	var errs []string
	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	v := &veterinarian.Veterinarian{
		UserID:        cmd.UserID,
		Name:          strings.TrimSpace(cmd.Name),
		LicenseNumber: strings.TrimSpace(cmd.LicenseNumber),
		Specialty:     cmd.Specialty,
		Phone:         cmd.Phone,
		Email:         strings.ToLower(strings.TrimSpace(cmd.Email)),
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: "veterinarian",
		ResourceID:   v.ID.String(),
	})
	s.log.Info("veterinarian created", zap.String("veterinarian_id", v.ID.String()))
	return v, nil
}

func (s *VeterinarianService) Get(ctx context.Context, id uuid.UUID) (*veterinarian.Veterinarian, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *VeterinarianService) Update(ctx context.Context, id uuid.UUID, cmd *veterinarian.UpdateVeterinarianCommand, actor Actor) (*veterinarian.Veterinarian, error) {
	if err := s.canManage(actor, id); err != nil {
		return nil, err
	}
	if cmd.Name != nil && strings.TrimSpace(*cmd.Name) == "" {
		return nil, &ValidationError{Fields: []string{"name must not be empty"}}
	}
	v, err := s.repo.Update(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionUpdate,
		ResourceType: "veterinarian",
		ResourceID:   id.String(),
	})
	return v, nil
}

// Delete soft-deletes a veterinarian with no upcoming appointments.
func (s *VeterinarianService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.appointments.CountUpcoming(ctx, &id, nil, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		return veterinarian.ErrHasUpcomingAppointments
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionDelete,
		ResourceType: "veterinarian",
		ResourceID:   id.String(),
	})
	return nil
}

func (s *VeterinarianService) List(ctx context.Context, q *veterinarian.ListVeterinariansQuery) (*veterinarian.PagedVeterinarians, error) {
	q.Page, q.PageSize = normalizePage(q.Page, q.PageSize, 20)
	return s.repo.List(ctx, q)
}

// canManage allows admins, and veterinarians acting on their own profile.
func (s *VeterinarianService) canManage(actor Actor, vetID uuid.UUID) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	if actor.Role == domain.RoleVeterinarian && actor.VeterinarianID != nil && *actor.VeterinarianID == vetID {
		return nil
	}
	return ErrForbidden
}

// SetAvailability replaces the weekly windows of a veterinarian. Windows on
// the same weekday must not overlap.
func (s *VeterinarianService) SetAvailability(ctx context.Context, vetID uuid.UUID, windows []veterinarian.Availability, actor Actor) ([]veterinarian.Availability, error) {
	if err := s.canManage(actor, vetID); err != nil {
		return nil, err
	}

	var errs []string
	for i := range windows {
		windows[i].VeterinarianID = vetID
		windows[i].ID = uuid.Nil
		if err := windows[i].Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("availability[%d]: %s", i, err))
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if err := overlappingWindows(windows); err != nil {
		return nil, err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, vetID); err != nil {
			return err
		}
		if err := s.repo.ReplaceAvailability(ctx, vetID, windows); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, AuditEntry{
			Actor:        actor,
			Action:       domain.ActionUpdate,
			ResourceType: "veterinarian_availability",
			ResourceID:   vetID.String(),
			Changes:      map[string]any{"windows": len(windows)},
		})
	})
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func overlappingWindows(windows []veterinarian.Availability) error {
	byDay := make(map[int][]veterinarian.Availability)
	for _, w := range windows {
		if w.Active {
			byDay[w.Weekday] = append(byDay[w.Weekday], w)
		}
	}
	for day, ws := range byDay {
		sort.Slice(ws, func(i, j int) bool { return ws[i].StartTime < ws[j].StartTime })
		for i := 1; i < len(ws); i++ {
			// HH:MM strings order the same way as the clock.
			if ws[i].StartTime < ws[i-1].EndTime {
				return &ValidationError{Fields: []string{
					fmt.Sprintf("availability: windows overlap on weekday %d (%s-%s and %s-%s)",
						day, ws[i-1].StartTime, ws[i-1].EndTime, ws[i].StartTime, ws[i].EndTime),
				}}
			}
		}
	}
	return nil
}

type DayAvailability struct {
	Date         string                      `json:"date"`
	Weekday      int                         `json:"weekday"`
	DurationMins int                         `json:"duration_mins"`
	Windows      []veterinarian.Availability `json:"windows"`
	Booked       []appointment.Slot          `json:"booked"`
	FreeStarts   []time.Time                 `json:"free_starts"`
}

// Availability lists the booked slots and the free start times of a
// veterinarian on one calendar day in the clinic's time zone. durationMins
// of 0 uses each window's slot length.
func (s *VeterinarianService) Availability(ctx context.Context, vetID uuid.UUID, date time.Time, durationMins int) (*DayAvailability, error) {
	if durationMins < 0 {
		return nil, appointment.ErrInvalidDuration
	}
	if _, err := s.repo.GetByID(ctx, vetID); err != nil {
		return nil, err
	}

	local := date.In(s.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	weekday := int(day.Weekday())

	windows, err := s.repo.GetAvailability(ctx, vetID, &weekday)
	if err != nil {
		return nil, err
	}
	booked, err := s.appointments.OccupiedSlots(ctx, vetID, day, day.AddDate(0, 0, 1), nil)
	if err != nil {
		return nil, err
	}

	out := &DayAvailability{
		Date:         day.Format("2006-01-02"),
		Weekday:      weekday,
		DurationMins: durationMins,
		Windows:      []veterinarian.Availability{},
		Booked:       booked,
		FreeStarts:   []time.Time{},
	}
	if out.Booked == nil {
		out.Booked = []appointment.Slot{}
	}

	now := s.now()
	for _, w := range windows {
		if !w.Active {
			continue
		}
		out.Windows = append(out.Windows, w)
		start, end, err := w.Window(day)
		if err != nil {
			return nil, err
		}
		length := durationMins
		if length == 0 {
			length = w.SlotMinutes
		}
		step := time.Duration(w.SlotMinutes) * time.Minute
		out.FreeStarts = append(out.FreeStarts, appointment.FreeStarts(start, end, length, step, booked, now)...)
	}
	sort.Slice(out.FreeStarts, func(i, j int) bool { return out.FreeStarts[i].Before(out.FreeStarts[j]) })
	return out, nil
}
