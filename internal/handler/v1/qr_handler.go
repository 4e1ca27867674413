package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type QRService interface {
	PetCode(ctx context.Context, petID uuid.UUID, actor service.Actor) (*service.QRCode, error)
	ClientCode(ctx context.Context, clientID uuid.UUID, actor service.Actor) (*service.QRCode, error)
	Lookup(ctx context.Context, t service.LookupType, publicID uuid.UUID) (any, error)
}

type QRHandler struct {
	svc QRService
}

func NewQRHandler(svc QRService) *QRHandler {
	return &QRHandler{svc: svc}
}

// PublicRoutes mounts the lookup a scanned code points at. It needs no token.
func (h *QRHandler) PublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/qr/lookup/:token", h.Lookup)
}

func (h *QRHandler) Lookup(c *gin.Context) {
	publicID, ok := parseUUID(c, "token")
	if !ok {
		return
	}
	t := service.LookupType(c.DefaultQuery("type", string(service.LookupPet)))
	card, err := h.svc.Lookup(c.Request.Context(), t, publicID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, card)
}

// respondQR writes the code as JSON, or as the raw image with ?format=png.
func respondQR(c *gin.Context, code *service.QRCode, err error) {
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if c.Query("format") == "png" {
		c.Header("Cache-Control", "private, max-age=3600")
		c.Data(http.StatusOK, "image/png", code.PNG)
		return
	}
	respondOK(c, code)
}
