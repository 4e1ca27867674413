package v1

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type ClientService interface {
	Create(ctx context.Context, cmd *client.CreateClientCommand, actor service.Actor) (*client.Client, error)
	Get(ctx context.Context, id uuid.UUID, actor service.Actor) (*service.ClientDetail, error)
	Update(ctx context.Context, id uuid.UUID, cmd *client.UpdateClientCommand, actor service.Actor) (*client.Client, error)
	Delete(ctx context.Context, id uuid.UUID, actor service.Actor) error
	List(ctx context.Context, q *client.ListClientsQuery, actor service.Actor) (*client.PagedClients, error)
}

type ClientHandler struct {
	svc ClientService
	qr  QRService
}

func NewClientHandler(svc ClientService, qr QRService) *ClientHandler {
	return &ClientHandler{svc: svc, qr: qr}
}

func (h *ClientHandler) Routes(rg *gin.RouterGroup) {
	staff := middleware.RequireRoles(domain.RoleAdmin, domain.RoleReceptionist, domain.RoleVeterinarian)

	g := rg.Group("/clients")
	g.POST("", staff, h.Create)
	g.GET("", staff, h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", middleware.RequireRoles(domain.RoleAdmin, domain.RoleReceptionist), h.Delete)
	g.GET("/:id/qr", h.QR)
}

type clientRequest struct {
	UserID         *uuid.UUID `json:"user_id"`
	Name           string     `json:"name" binding:"required,max=150"`
	Email          string     `json:"email" binding:"required,email"`
	Phone          string     `json:"phone" binding:"required,phone"`
	DocumentType   string     `json:"document_type" binding:"max=20"`
	DocumentNumber string     `json:"document_number" binding:"max=50"`
	Address        string     `json:"address" binding:"max=300"`
	Notes          string     `json:"notes" binding:"max=2000"`
}

func (h *ClientHandler) Create(c *gin.Context) {
	var req clientRequest
	if !bindJSON(c, &req) {
		return
	}
	actor := middleware.Actor(c)
	cl, err := h.svc.Create(c.Request.Context(), &client.CreateClientCommand{
		UserID:         req.UserID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		Address:        req.Address,
		Notes:          req.Notes,
		CreatedBy:      &actor.UserID,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, cl)
}

func (h *ClientHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.svc.Get(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, detail)
}

type updateClientRequest struct {
	UserID         *uuid.UUID `json:"user_id"`
	Name           *string    `json:"name" binding:"omitempty,min=1,max=150"`
	Email          *string    `json:"email" binding:"omitempty,email"`
	Phone          *string    `json:"phone" binding:"omitempty,phone"`
	DocumentType   *string    `json:"document_type" binding:"omitempty,max=20"`
	DocumentNumber *string    `json:"document_number" binding:"omitempty,max=50"`
	Address        *string    `json:"address" binding:"omitempty,max=300"`
	Notes          *string    `json:"notes" binding:"omitempty,max=2000"`
}

func (h *ClientHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateClientRequest
	if !bindJSON(c, &req) {
		return
	}
	cl, err := h.svc.Update(c.Request.Context(), id, &client.UpdateClientCommand{
		UserID:         req.UserID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
		Address:        req.Address,
		Notes:          req.Notes,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, cl)
}

func (h *ClientHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "client deleted")
}

func (h *ClientHandler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context(), &client.ListClientsQuery{
		Search:   c.Query("search"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 0),
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *ClientHandler) QR(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	code, err := h.qr.ClientCode(c.Request.Context(), id, middleware.Actor(c))
	respondQR(c, code, err)
}
