package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/pet"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type PetService interface {
	Create(ctx context.Context, cmd *pet.CreatePetCommand, actor service.Actor) (*pet.Pet, error)
	Get(ctx context.Context, id uuid.UUID, actor service.Actor) (*service.PetDetail, error)
	Update(ctx context.Context, id uuid.UUID, cmd *pet.UpdatePetCommand, actor service.Actor) (*pet.Pet, error)
	Delete(ctx context.Context, id uuid.UUID, actor service.Actor) error
	List(ctx context.Context, q *pet.ListPetsQuery, actor service.Actor) (*pet.PagedPets, error)
}

type PetHandler struct {
	svc PetService
	qr  QRService
}

func NewPetHandler(svc PetService, qr QRService) *PetHandler {
	return &PetHandler{svc: svc, qr: qr}
}

func (h *PetHandler) Routes(rg *gin.RouterGroup) {
	g := rg.Group("/pets")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/qr", h.QR)
}

type petRequest struct {
	ClientID  *uuid.UUID `json:"client_id"`
	Name      string     `json:"name" binding:"required,max=100"`
	Species   string     `json:"species" binding:"required,max=50"`
	Breed     string     `json:"breed" binding:"max=100"`
	Sex       pet.Sex    `json:"sex" binding:"omitempty,oneof=male female unknown"`
	BirthDate string     `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	Color     string     `json:"color" binding:"max=50"`
	ChipID    string     `json:"chip_id" binding:"max=50"`
	PhotoURL  string     `json:"photo_url" binding:"omitempty,url,max=500"`
}

func (h *PetHandler) Create(c *gin.Context) {
	var req petRequest
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

	p, err := h.svc.Create(c.Request.Context(), &pet.CreatePetCommand{
		ClientID:  *clientID,
		Name:      req.Name,
		Species:   req.Species,
		Breed:     req.Breed,
		Sex:       req.Sex,
		BirthDate: parseDate(req.BirthDate),
		Color:     req.Color,
		ChipID:    req.ChipID,
		PhotoURL:  req.PhotoURL,
		CreatedBy: actor.UserID,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *PetHandler) Get(c *gin.Context) {
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

type updatePetRequest struct {
	Name      *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Species   *string  `json:"species" binding:"omitempty,min=1,max=50"`
	Breed     *string  `json:"breed" binding:"omitempty,max=100"`
	Sex       *pet.Sex `json:"sex" binding:"omitempty,oneof=male female unknown"`
	BirthDate *string  `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	Color     *string  `json:"color" binding:"omitempty,max=50"`
	ChipID    *string  `json:"chip_id" binding:"omitempty,max=50"`
	PhotoURL  *string  `json:"photo_url" binding:"omitempty,max=500"`
}

func (h *PetHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updatePetRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := &pet.UpdatePetCommand{
		Name:     req.Name,
		Species:  req.Species,
		Breed:    req.Breed,
		Sex:      req.Sex,
		Color:    req.Color,
		ChipID:   req.ChipID,
		PhotoURL: req.PhotoURL,
	}
	if req.BirthDate != nil {
		cmd.BirthDate = parseDate(*req.BirthDate)
	}

	p, err := h.svc.Update(c.Request.Context(), id, cmd, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PetHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "pet deleted")
}

func (h *PetHandler) List(c *gin.Context) {
	q := &pet.ListPetsQuery{
		Species:  c.Query("species"),
		Search:   c.Query("search"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 0),
	}
	var ok bool
	if q.ClientID, ok = parseQueryUUID(c, "client_id"); !ok {
		return
	}
	result, err := h.svc.List(c.Request.Context(), q, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *PetHandler) QR(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	code, err := h.qr.PetCode(c.Request.Context(), id, middleware.Actor(c))
	respondQR(c, code, err)
}

// parseDate expects a value already checked by the datetime binding.
func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil
	}
	return &d
}
