package v1

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/catalog"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type CatalogService interface {
	Create(ctx context.Context, svc *catalog.Service, actor service.Actor) (*catalog.Service, error)
	Get(ctx context.Context, id uuid.UUID) (*catalog.Service, error)
	Update(ctx context.Context, id uuid.UUID, cmd *catalog.UpdateServiceCommand, actor service.Actor) (*catalog.Service, error)
	Delete(ctx context.Context, id uuid.UUID, actor service.Actor) error
	List(ctx context.Context, q *catalog.ListServicesQuery) (*catalog.PagedServices, error)
	Types() []catalog.ServiceType
}

// CatalogHandler serves the clinic's billable services under /services.
type CatalogHandler struct {
	svc CatalogService
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) Routes(rg *gin.RouterGroup) {
	admin := middleware.RequireRoles(domain.RoleAdmin)

	g := rg.Group("/services")
	g.GET("", h.List)
	g.GET("/types", h.Types)
	g.GET("/:id", h.Get)
	g.POST("", admin, h.Create)
	g.PUT("/:id", admin, h.Update)
	g.DELETE("/:id", admin, h.Delete)
}

type serviceRequest struct {
	Code                string              `json:"code" binding:"required,max=30"`
	Name                string              `json:"name" binding:"required,max=150"`
	Description         string              `json:"description" binding:"max=2000"`
	Type                catalog.ServiceType `json:"type" binding:"required"`
	DurationMins        int                 `json:"duration_mins" binding:"min=0,max=1440"`
	PriceCents          int64               `json:"price_cents" binding:"min=0"`
	RequiresVaccineInfo bool                `json:"requires_vaccine_info"`
}

func (h *CatalogHandler) Create(c *gin.Context) {
	var req serviceRequest
	if !bindJSON(c, &req) {
		return
	}
	svc, err := h.svc.Create(c.Request.Context(), &catalog.Service{
		Code:                req.Code,
		Name:                req.Name,
		Description:         req.Description,
		Type:                req.Type,
		DurationMins:        req.DurationMins,
		PriceCents:          req.PriceCents,
		RequiresVaccineInfo: req.RequiresVaccineInfo,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, svc)
}

func (h *CatalogHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	svc, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, svc)
}

type updateServiceRequest struct {
	Code                *string              `json:"code" binding:"omitempty,min=1,max=30"`
	Name                *string              `json:"name" binding:"omitempty,min=1,max=150"`
	Description         *string              `json:"description" binding:"omitempty,max=2000"`
	Type                *catalog.ServiceType `json:"type"`
	DurationMins        *int                 `json:"duration_mins" binding:"omitempty,min=0,max=1440"`
	PriceCents          *int64               `json:"price_cents" binding:"omitempty,min=0"`
	RequiresVaccineInfo *bool                `json:"requires_vaccine_info"`
}

func (h *CatalogHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateServiceRequest
	if !bindJSON(c, &req) {
		return
	}
	svc, err := h.svc.Update(c.Request.Context(), id, &catalog.UpdateServiceCommand{
		Code:                req.Code,
		Name:                req.Name,
		Description:         req.Description,
		Type:                req.Type,
		DurationMins:        req.DurationMins,
		PriceCents:          req.PriceCents,
		RequiresVaccineInfo: req.RequiresVaccineInfo,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, svc)
}

func (h *CatalogHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "service deleted")
}

func (h *CatalogHandler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context(), &catalog.ListServicesQuery{
		Type:     optional[catalog.ServiceType](c, "type"),
		Search:   c.Query("search"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 0),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *CatalogHandler) Types(c *gin.Context) {
	respondOK(c, h.svc.Types())
}
