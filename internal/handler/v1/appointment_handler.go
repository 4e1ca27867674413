package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type AppointmentService interface {
	Schedule(ctx context.Context, cmd *appointment.CreateAppointmentCommand, actor service.Actor) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID, actor service.Actor) (*appointment.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, cmd *appointment.UpdateAppointmentCommand, actor service.Actor) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, actor service.Actor) (*appointment.Appointment, error)
	List(ctx context.Context, q *appointment.ListAppointmentsQuery, actor service.Actor) (*appointment.PagedAppointments, error)
}

type AppointmentHandler struct {
	svc AppointmentService
	loc *time.Location
}

func NewAppointmentHandler(svc AppointmentService, loc *time.Location) *AppointmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentHandler{svc: svc, loc: loc}
}

func (h *AppointmentHandler) Routes(rg *gin.RouterGroup) {
	g := rg.Group("/appointments")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.POST("/:id/cancel", h.Cancel)
	g.DELETE("/:id", h.Cancel)
}

type createAppointmentRequest struct {
	// Optional for client users, who always book for themselves.
	ClientID       *uuid.UUID           `json:"client_id"`
	PetID          uuid.UUID            `json:"pet_id" binding:"required"`
	VeterinarianID uuid.UUID            `json:"veterinarian_id" binding:"required"`
	ScheduledAt    time.Time            `json:"scheduled_at" binding:"required"`
	Location       appointment.Location `json:"location" binding:"omitempty,oneof=clinic home_visit teleconsult"`
	Address        string               `json:"address" binding:"max=300"`
	Reason         string               `json:"reason" binding:"max=500"`
	Notes          string               `json:"notes" binding:"max=2000"`
	ServiceIDs     []uuid.UUID          `json:"service_ids" binding:"required,min=1,max=20"`
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	actor := middleware.Actor(c)

	clientID := req.ClientID
	if clientID == nil {
		clientID = actor.ClientID
	}
	if clientID == nil {
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{Error: "validation failed", Fields: []string{"client_id is required"}})
		return
	}

	a, err := h.svc.Schedule(c.Request.Context(), &appointment.CreateAppointmentCommand{
		ClientID:       *clientID,
		PetID:          req.PetID,
		VeterinarianID: req.VeterinarianID,
		ScheduledAt:    req.ScheduledAt,
		Location:       req.Location,
		Address:        req.Address,
		Reason:         req.Reason,
		Notes:          req.Notes,
		ServiceIDs:     req.ServiceIDs,
		CreatedBy:      actor.UserID,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

type updateAppointmentRequest struct {
	ScheduledAt *time.Time          `json:"scheduled_at"`
	Status      *appointment.Status `json:"status" binding:"omitempty,oneof=pending confirmed attended cancelled rescheduled"`
	Notes       *string             `json:"notes" binding:"omitempty,max=2000"`
}

func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ScheduledAt == nil && req.Status == nil && req.Notes == nil {
		respondError(c, http.StatusBadRequest, "nothing to update")
		return
	}

	actor := middleware.Actor(c)
	a, err := h.svc.Update(c.Request.Context(), id, &appointment.UpdateAppointmentCommand{
		ScheduledAt: req.ScheduledAt,
		Status:      req.Status,
		Notes:       req.Notes,
		UpdatedBy:   actor.UserID,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

// Cancel backs both POST /:id/cancel and DELETE /:id. Appointments are never
// removed.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.Cancel(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AppointmentHandler) List(c *gin.Context) {
	q := &appointment.ListAppointmentsQuery{
		Status:           optional[appointment.Status](c, "status"),
		PetName:          c.Query("pet_name"),
		ClientName:       c.Query("client_name"),
		VeterinarianName: c.Query("veterinarian_name"),
		Search:           c.Query("search"),
		Page:             parseQueryInt(c, "page", 1),
		PageSize:         parseQueryInt(c, "page_size", 0),
	}

	var ok bool
	if q.VeterinarianID, ok = parseQueryUUID(c, "veterinarian_id"); !ok {
		return
	}
	if q.ClientID, ok = parseQueryUUID(c, "client_id"); !ok {
		return
	}
	if q.PetID, ok = parseQueryUUID(c, "pet_id"); !ok {
		return
	}
	if q.Date, ok = parseQueryDate(c, "date", h.loc); !ok {
		return
	}
	if q.DateFrom, ok = parseQueryDate(c, "date_from", h.loc); !ok {
		return
	}
	if q.DateTo, ok = parseQueryDate(c, "date_to", h.loc); !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), q, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}
