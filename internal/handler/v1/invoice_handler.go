package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/invoice"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type InvoiceService interface {
	CreateFromAppointment(ctx context.Context, cmd *invoice.CreateFromAppointmentCommand, actor service.Actor) (*invoice.Invoice, error)
	CreateFromRecords(ctx context.Context, cmd *invoice.CreateFromRecordsCommand, actor service.Actor) (*invoice.Invoice, error)
	Get(ctx context.Context, id uuid.UUID, actor service.Actor) (*invoice.Invoice, error)
	List(ctx context.Context, q *invoice.ListInvoicesQuery, actor service.Actor) (*invoice.PagedInvoices, error)
	Stats(ctx context.Context, q *invoice.ListInvoicesQuery, actor service.Actor) (*invoice.Stats, error)
	NextNumber(ctx context.Context) (string, error)
	Update(ctx context.Context, id uuid.UUID, cmd *invoice.UpdateInvoiceCommand, actor service.Actor) (*invoice.Invoice, error)
	Delete(ctx context.Context, id uuid.UUID, actor service.Actor) error
}

type InvoiceHandler struct {
	svc InvoiceService
	loc *time.Location
}

func NewInvoiceHandler(svc InvoiceService, loc *time.Location) *InvoiceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &InvoiceHandler{svc: svc, loc: loc}
}

func (h *InvoiceHandler) Routes(rg *gin.RouterGroup) {
	billing := middleware.RequireRoles(domain.RoleAdmin, domain.RoleReceptionist)

	g := rg.Group("/invoices")
	g.POST("/from-appointment", billing, h.CreateFromAppointment)
	g.POST("/from-records", billing, h.CreateFromRecords)
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/next-number", billing, h.NextNumber)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", billing, h.Update)
	g.DELETE("/:id", middleware.RequireRoles(domain.RoleAdmin), h.Delete)
}

type fromAppointmentRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" binding:"required"`
	TaxRate       *float64  `json:"tax_rate" binding:"omitempty,min=0,max=100"`
	Notes         string    `json:"notes" binding:"max=2000"`
}

func (h *InvoiceHandler) CreateFromAppointment(c *gin.Context) {
	var req fromAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	actor := middleware.Actor(c)
	inv, err := h.svc.CreateFromAppointment(c.Request.Context(), &invoice.CreateFromAppointmentCommand{
		AppointmentID: req.AppointmentID,
		TaxRate:       req.TaxRate,
		Notes:         req.Notes,
		CreatedBy:     actor.UserID,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, inv)
}

type fromRecordsRequest struct {
	ClientID  uuid.UUID   `json:"client_id" binding:"required"`
	RecordIDs []uuid.UUID `json:"record_ids" binding:"required,min=1,max=100"`
	TaxRate   *float64    `json:"tax_rate" binding:"omitempty,min=0,max=100"`
	Notes     string      `json:"notes" binding:"max=2000"`
}

func (h *InvoiceHandler) CreateFromRecords(c *gin.Context) {
	var req fromRecordsRequest
	if !bindJSON(c, &req) {
		return
	}
	actor := middleware.Actor(c)
	inv, err := h.svc.CreateFromRecords(c.Request.Context(), &invoice.CreateFromRecordsCommand{
		ClientID:  req.ClientID,
		RecordIDs: req.RecordIDs,
		TaxRate:   req.TaxRate,
		Notes:     req.Notes,
		CreatedBy: actor.UserID,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, inv)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	inv, err := h.svc.Get(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, inv)
}

func (h *InvoiceHandler) listQuery(c *gin.Context) (*invoice.ListInvoicesQuery, bool) {
	q := &invoice.ListInvoicesQuery{
		Status:   optional[invoice.Status](c, "status"),
		Number:   c.Query("number"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 0),
	}
	var ok bool
	if q.ClientID, ok = parseQueryUUID(c, "client_id"); !ok {
		return nil, false
	}
	if q.DateFrom, ok = parseQueryDate(c, "date_from", h.loc); !ok {
		return nil, false
	}
	if q.DateTo, ok = parseQueryDate(c, "date_to", h.loc); !ok {
		return nil, false
	}
	return q, true
}

func (h *InvoiceHandler) List(c *gin.Context) {
	q, ok := h.listQuery(c)
	if !ok {
		return
	}
	result, err := h.svc.List(c.Request.Context(), q, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *InvoiceHandler) Stats(c *gin.Context) {
	q, ok := h.listQuery(c)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), q, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, stats)
}

func (h *InvoiceHandler) NextNumber(c *gin.Context) {
	n, err := h.svc.NextNumber(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"number": n})
}

type updateInvoiceRequest struct {
	Status        *invoice.Status        `json:"status" binding:"omitempty,oneof=pending paid void"`
	PaymentMethod *invoice.PaymentMethod `json:"payment_method" binding:"omitempty,oneof=cash card transfer other"`
	Notes         *string                `json:"notes" binding:"omitempty,max=2000"`
}

func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.svc.Update(c.Request.Context(), id, &invoice.UpdateInvoiceCommand{
		Status:        req.Status,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, inv)
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "invoice deleted")
}
