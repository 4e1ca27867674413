package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	mr "github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type MedicalRecordService interface {
	Create(ctx context.Context, cmd *mr.CreateRecordCommand, actor service.Actor) (*mr.MedicalRecord, error)
	Get(ctx context.Context, id uuid.UUID, actor service.Actor) (*mr.MedicalRecord, error)
	Update(ctx context.Context, id uuid.UUID, cmd *mr.UpdateRecordCommand, actor service.Actor) (*mr.MedicalRecord, error)
	List(ctx context.Context, q *mr.ListRecordsQuery, actor service.Actor) (*mr.PagedRecords, error)
	AddAttachment(ctx context.Context, recordID uuid.UUID, up service.AttachmentUpload, actor service.Actor) (*mr.Attachment, error)
	AttachmentURL(ctx context.Context, recordID, attachmentID uuid.UUID, actor service.Actor) (*service.AttachmentLink, error)
}

type MedicalRecordHandler struct {
	svc MedicalRecordService
	loc *time.Location
	// Upper bound on the multipart body, a little above the per-file limit
	// so the service can report the size error itself.
	maxBody int64
}

func NewMedicalRecordHandler(svc MedicalRecordService, loc *time.Location, maxUploadBytes int64) *MedicalRecordHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &MedicalRecordHandler{svc: svc, loc: loc, maxBody: maxUploadBytes + 1<<20}
}

func (h *MedicalRecordHandler) Routes(rg *gin.RouterGroup) {
	g := rg.Group("/medical-records")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.POST("/:id/attachments", h.UploadAttachment)
	g.GET("/:id/attachments/:attachmentId", h.AttachmentURL)
}

type recordServiceLine struct {
	ServiceID      uuid.UUID `json:"service_id" binding:"required"`
	Quantity       int       `json:"quantity" binding:"omitempty,min=1,max=1000"`
	UnitPriceCents *int64    `json:"unit_price_cents" binding:"omitempty,min=0"`
	Notes          string    `json:"notes" binding:"max=500"`
}

type createRecordRequest struct {
	PetID         uuid.UUID           `json:"pet_id" binding:"required"`
	AppointmentID *uuid.UUID          `json:"appointment_id"`
	RecordedAt    *time.Time          `json:"recorded_at"`
	Type          mr.RecordType       `json:"type" binding:"required,oneof=consultation vaccine procedure checkup other"`
	Diagnosis     string              `json:"diagnosis" binding:"max=5000"`
	Treatment     string              `json:"treatment" binding:"max=5000"`
	Observations  string              `json:"observations" binding:"max=5000"`
	Services      []recordServiceLine `json:"services" binding:"max=50,dive"`
}

func (h *MedicalRecordHandler) Create(c *gin.Context) {
	var req createRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	actor := middleware.Actor(c)

	lines := make([]mr.ServiceLineInput, 0, len(req.Services))
	for _, l := range req.Services {
		qty := l.Quantity
		if qty == 0 {
			qty = 1
		}
		lines = append(lines, mr.ServiceLineInput{
			ServiceID:      l.ServiceID,
			Quantity:       qty,
			UnitPriceCents: l.UnitPriceCents,
			Notes:          l.Notes,
		})
	}

	rec, err := h.svc.Create(c.Request.Context(), &mr.CreateRecordCommand{
		PetID:         req.PetID,
		AppointmentID: req.AppointmentID,
		RecordedAt:    req.RecordedAt,
		Type:          req.Type,
		Diagnosis:     req.Diagnosis,
		Treatment:     req.Treatment,
		Observations:  req.Observations,
		Services:      lines,
		CreatedBy:     actor.UserID,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, rec)
}

func (h *MedicalRecordHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rec)
}

type updateRecordRequest struct {
	Type         *mr.RecordType `json:"type" binding:"omitempty,oneof=consultation vaccine procedure checkup other"`
	Diagnosis    *string        `json:"diagnosis" binding:"omitempty,max=5000"`
	Treatment    *string        `json:"treatment" binding:"omitempty,max=5000"`
	Observations *string        `json:"observations" binding:"omitempty,max=5000"`
}

func (h *MedicalRecordHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.svc.Update(c.Request.Context(), id, &mr.UpdateRecordCommand{
		Type:         req.Type,
		Diagnosis:    req.Diagnosis,
		Treatment:    req.Treatment,
		Observations: req.Observations,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rec)
}

func (h *MedicalRecordHandler) List(c *gin.Context) {
	q := &mr.ListRecordsQuery{
		Type:       optional[mr.RecordType](c, "type"),
		PetName:    c.Query("pet_name"),
		ClientName: c.Query("client_name"),
		Search:     c.Query("search"),
		Page:       parseQueryInt(c, "page", 1),
		PageSize:   parseQueryInt(c, "page_size", 0),
	}
	var ok bool
	if q.PetID, ok = parseQueryUUID(c, "pet_id"); !ok {
		return
	}
	if q.ClientID, ok = parseQueryUUID(c, "client_id"); !ok {
		return
	}
	if q.VeterinarianID, ok = parseQueryUUID(c, "veterinarian_id"); !ok {
		return
	}
	if q.Billed, ok = parseQueryBool(c, "billed"); !ok {
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

// UploadAttachment expects a multipart form with the file in the "file" field.
func (h *MedicalRecordHandler) UploadAttachment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondServiceError(c, mr.ErrAttachmentTooLarge)
			return
		}
		respondError(c, http.StatusBadRequest, "a file must be sent in the \"file\" form field")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable upload")
		return
	}
	defer f.Close()

	att, err := h.svc.AddAttachment(c.Request.Context(), id, service.AttachmentUpload{
		FileName: fh.Filename,
		Size:     fh.Size,
		Body:     f,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, att)
}

func (h *MedicalRecordHandler) AttachmentURL(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	attID, ok := parseUUID(c, "attachmentId")
	if !ok {
		return
	}
	link, err := h.svc.AttachmentURL(c.Request.Context(), id, attID, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusFound, link.URL)
		return
	}
	respondOK(c, link)
}
