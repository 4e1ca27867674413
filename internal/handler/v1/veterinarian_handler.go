package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/veterinarian"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type VeterinarianService interface {
	Create(ctx context.Context, cmd *veterinarian.CreateVeterinarianCommand, actor service.Actor) (*veterinarian.Veterinarian, error)
	Get(ctx context.Context, id uuid.UUID) (*veterinarian.Veterinarian, error)
	Update(ctx context.Context, id uuid.UUID, cmd *veterinarian.UpdateVeterinarianCommand, actor service.Actor) (*veterinarian.Veterinarian, error)
	Delete(ctx context.Context, id uuid.UUID, actor service.Actor) error
	List(ctx context.Context, q *veterinarian.ListVeterinariansQuery) (*veterinarian.PagedVeterinarians, error)
	SetAvailability(ctx context.Context, vetID uuid.UUID, windows []veterinarian.Availability, actor service.Actor) ([]veterinarian.Availability, error)
	Availability(ctx context.Context, vetID uuid.UUID, date time.Time, durationMins int) (*service.DayAvailability, error)
}

type VeterinarianHandler struct {
	svc VeterinarianService
	loc *time.Location
	now func() time.Time
}

func NewVeterinarianHandler(svc VeterinarianService, loc *time.Location) *VeterinarianHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &VeterinarianHandler{svc: svc, loc: loc, now: time.Now}
}

func (h *VeterinarianHandler) Routes(rg *gin.RouterGroup) {
	admin := middleware.RequireRoles(domain.RoleAdmin)

	g := rg.Group("/veterinarians")
	g.POST("", admin, h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", admin, h.Update)
	g.DELETE("/:id", admin, h.Delete)
	g.GET("/:id/availability", h.Availability)
	g.PUT("/:id/availability", h.SetAvailability)
}

type veterinarianRequest struct {
	UserID        *uuid.UUID `json:"user_id"`
	Name          string     `json:"name" binding:"required,max=150"`
	LicenseNumber string     `json:"license_number" binding:"required,max=50"`
	Specialty     string     `json:"specialty" binding:"max=100"`
	Phone         string     `json:"phone" binding:"omitempty,phone"`
	Email         string     `json:"email" binding:"omitempty,email"`
}

func (h *VeterinarianHandler) Create(c *gin.Context) {
	var req veterinarianRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.Create(c.Request.Context(), &veterinarian.CreateVeterinarianCommand{
		UserID:        req.UserID,
		Name:          req.Name,
		LicenseNumber: req.LicenseNumber,
		Specialty:     req.Specialty,
		Phone:         req.Phone,
		Email:         req.Email,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, v)
}

func (h *VeterinarianHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, v)
}

type updateVeterinarianRequest struct {
	UserID        *uuid.UUID `json:"user_id"`
	Name          *string    `json:"name" binding:"omitempty,min=1,max=150"`
	LicenseNumber *string    `json:"license_number" binding:"omitempty,min=1,max=50"`
	Specialty     *string    `json:"specialty" binding:"omitempty,max=100"`
	Phone         *string    `json:"phone" binding:"omitempty,phone"`
	Email         *string    `json:"email" binding:"omitempty,email"`
}

func (h *VeterinarianHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateVeterinarianRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.Update(c.Request.Context(), id, &veterinarian.UpdateVeterinarianCommand{
		UserID:        req.UserID,
		Name:          req.Name,
		LicenseNumber: req.LicenseNumber,
		Specialty:     req.Specialty,
		Phone:         req.Phone,
		Email:         req.Email,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, v)
}

func (h *VeterinarianHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "veterinarian deleted")
}

func (h *VeterinarianHandler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context(), &veterinarian.ListVeterinariansQuery{
		Search:    c.Query("search"),
		Specialty: c.Query("specialty"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 0),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}

type availabilityWindow struct {
	Weekday     *int   `json:"weekday" binding:"required,min=0,max=6"`
	StartTime   string `json:"start_time" binding:"required,hhmm"`
	EndTime     string `json:"end_time" binding:"required,hhmm"`
	SlotMinutes int    `json:"slot_minutes" binding:"required,min=10,max=120"`
	Active      *bool  `json:"active"`
}

type setAvailabilityRequest struct {
	Windows []availabilityWindow `json:"windows" binding:"max=50,dive"`
}

func (h *VeterinarianHandler) SetAvailability(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req setAvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}

	windows := make([]veterinarian.Availability, 0, len(req.Windows))
	for _, w := range req.Windows {
		active := true
		if w.Active != nil {
			active = *w.Active
		}
		windows = append(windows, veterinarian.Availability{
			Weekday:     *w.Weekday,
			StartTime:   w.StartTime,
			EndTime:     w.EndTime,
			SlotMinutes: w.SlotMinutes,
			Active:      active,
		})
	}

	saved, err := h.svc.SetAvailability(c.Request.Context(), id, windows, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, saved)
}

// Availability answers GET /veterinarians/:id/availability?date=YYYY-MM-DD&duration=N.
// date defaults to today in the clinic's zone; duration 0 uses the slot length.
func (h *VeterinarianHandler) Availability(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	date, ok := parseQueryDate(c, "date", h.loc)
	if !ok {
		return
	}
	day := h.now().In(h.loc)
	if date != nil {
		day = *date
	}
	duration := 0
	if raw := c.Query("duration"); raw != "" {
		d, err := parseNonNegative(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid duration: must be a non-negative number of minutes")
			return
		}
		duration = d
	}

	result, err := h.svc.Availability(c.Request.Context(), id, day, duration)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}
