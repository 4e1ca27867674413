package v1

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, cmd *service.RegisterCommand, ip string) (*domain.TokenPair, error)
	Login(ctx context.Context, email, password, ip string) (*domain.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	Me(ctx context.Context, userID uuid.UUID) (*service.UserProfile, error)
	CreateUser(ctx context.Context, cmd *service.CreateUserCommand, actor service.Actor) (*service.UserProfile, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// PublicRoutes mounts the unauthenticated endpoints behind limit.
func (h *AuthHandler) PublicRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	g := rg.Group("/auth", limit)
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
}

func (h *AuthHandler) Routes(rg *gin.RouterGroup) {
	rg.GET("/auth/me", h.Me)
	rg.POST("/auth/change-password", h.ChangePassword)
	rg.POST("/users", middleware.RequireRoles(domain.RoleAdmin), h.CreateUser)
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=150"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,phone"`
	Address  string `json:"address" binding:"max=300"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.svc.Register(c.Request.Context(), &service.RegisterCommand{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Password: req.Password,
	}, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, pair)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, pair)
}

func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.svc.Me(c.Request.Context(), middleware.Actor(c).UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.svc.ChangePassword(c.Request.Context(), middleware.Actor(c).UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, "password changed")
}

type createUserRequest struct {
	Name           string      `json:"name" binding:"required,max=150"`
	Email          string      `json:"email" binding:"required,email"`
	Phone          string      `json:"phone" binding:"omitempty,phone"`
	Password       string      `json:"password" binding:"required"`
	Role           domain.Role `json:"role" binding:"required,oneof=admin receptionist veterinarian client"`
	VeterinarianID *uuid.UUID  `json:"veterinarian_id"`
	ClientID       *uuid.UUID  `json:"client_id"`
}

func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.svc.CreateUser(c.Request.Context(), &service.CreateUserCommand{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Password:       req.Password,
		Role:           req.Role,
		VeterinarianID: req.VeterinarianID,
		ClientID:       req.ClientID,
	}, middleware.Actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, profile)
}
