package v1

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type NotificationService interface {
	List(ctx context.Context, q *notification.ListNotificationsQuery, actor service.Actor) (*notification.PagedNotifications, error)
	UnreadCount(ctx context.Context, actor service.Actor) (int64, error)
	Types() []notification.Type
	Get(ctx context.Context, id uuid.UUID, actor service.Actor) (*notification.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, actor service.Actor) error
	MarkAllRead(ctx context.Context, actor service.Actor) (int64, error)
	Delete(ctx context.Context, id uuid.UUID, actor service.Actor) error
	DeleteRead(ctx context.Context, actor service.Actor) (int64, error)

	RegisterDevice(ctx context.Context, token string, platform notification.Platform, actor service.Actor) (*notification.DeviceToken, error)
	ListDevices(ctx context.Context, actor service.Actor) ([]*notification.DeviceToken, error)
	RemoveDevice(ctx context.Context, token string, actor service.Actor) error
	RemoveAllDevices(ctx context.Context, actor service.Actor) (int64, error)
}

type NotificationHandler struct {
	svc NotificationService
}

func NewNotificationHandler(svc NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) Routes(rg *gin.RouterGroup) {
	g := rg.Group("/notifications")
	g.GET("", h.List)
	g.GET("/unread-count", h.UnreadCount)
	g.GET("/types", h.Types)
	g.POST("/read-all", h.MarkAllRead)
	g.DELETE("/read", h.DeleteRead)
	g.GET("/:id", h.Get)
	g.POST("/:id/read", h.MarkRead)
	g.DELETE("/:id", h.Delete)

	d := rg.Group("/devices")
	d.POST("", h.RegisterDevice)
	d.GET("", h.ListDevices)
	d.DELETE("", h.RemoveAllDevices)
	d.DELETE("/:token", h.RemoveDevice)
}

func (h *NotificationHandler) List(c *gin.Context) {
	unread, ok := parseQueryBool(c, "unread")
	if !ok {
		return
	}
	q := &notification.ListNotificationsQuery{
		UnreadOnly: unread != nil && *unread,
		Type:       optional[notification.Type](c, "type"),
		Page:       parseQueryInt(c, "page", 1),
		PageSize:   parseQueryInt(c, "page_size", 0),
	}
	result, err := h.svc.List(c.Request.Context(), q, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"unread": n})
}

func (h *NotificationHandler) Types(c *gin.Context) {
	respondOK(c, h.svc.Types())
}

func (h *NotificationHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.Get(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, n)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "notification marked as read")
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"updated": n})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, middleware.Actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "notification deleted")
}

func (h *NotificationHandler) DeleteRead(c *gin.Context) {
	n, err := h.svc.DeleteRead(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": n})
}

type deviceRequest struct {
	Token    string                `json:"token" binding:"required,max=512"`
	Platform notification.Platform `json:"platform" binding:"required,oneof=android ios web"`
}

func (h *NotificationHandler) RegisterDevice(c *gin.Context) {
	var req deviceRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.svc.RegisterDevice(c.Request.Context(), req.Token, req.Platform, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, t)
}

func (h *NotificationHandler) ListDevices(c *gin.Context) {
	tokens, err := h.svc.ListDevices(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, tokens)
}

func (h *NotificationHandler) RemoveDevice(c *gin.Context) {
	if err := h.svc.RemoveDevice(c.Request.Context(), c.Param("token"), middleware.Actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "device removed")
}

func (h *NotificationHandler) RemoveAllDevices(c *gin.Context) {
	n, err := h.svc.RemoveAllDevices(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": n})
}
