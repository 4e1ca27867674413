package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/client"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain/veterinarian"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidRole        = errors.New("invalid role")
)

const maxFailedAttempts = 5

const lockDuration = 15 * time.Minute

const minPasswordLength = 8

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	RecordLoginFailure(ctx context.Context, id uuid.UUID, maxAttempts int, lockFor time.Duration) error
	RecordLoginSuccess(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type AuthService struct {
	userRepo   UserRepository
	clients    client.Repository
	vets       veterinarian.Repository
	tx         Transactor
	phones     PhoneNormalizer
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	log        *zap.Logger
	bcryptCost int
}

func NewAuthService(
	userRepo UserRepository,
	clients client.Repository,
	vets veterinarian.Repository,
	tx Transactor,
	phones PhoneNormalizer,
	jwtManager *auth.JWTManager,
	auditSvc *AuditService,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		clients:    clients,
		vets:       vets,
		tx:         tx,
		phones:     phones,
		jwtManager: jwtManager,
		auditSvc:   auditSvc,
		log:        log,
		bcryptCost: bcrypt.DefaultCost,
	}
}

type RegisterCommand struct {
	Name     string
	Email    string
	Phone    string
	Address  string
	Password string
}

// Register signs up a pet owner: it creates the login and the client
// profile, linked to each other, in one transaction.
func (s *AuthService) Register(ctx context.Context, cmd *RegisterCommand, ip string) (*domain.TokenPair, error) {
	var errs []string
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		errs = append(errs, "name is required")
	}
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if !validEmail(email) {
		errs = append(errs, "email is invalid")
	}
	phoneNumber := strings.TrimSpace(cmd.Phone)
	if phoneNumber != "" {
		normalized, err := s.phones.Normalize(phoneNumber)
		if err != nil {
			errs = append(errs, "phone is invalid")
		}
		phoneNumber = normalized
	}
	if err := validatePasswordStrength(cmd.Password); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	userID, clientID := uuid.New(), uuid.New()
	u := &domain.User{
		ID:                userID,
		Email:             email,
		PasswordHash:      string(hash),
		Name:              name,
		Phone:             phoneNumber,
		Role:              domain.RoleClient,
		ClientID:          &clientID,
		IsActive:          true,
		PasswordChangedAt: time.Now(),
	}
	c := &client.Client{
		ID:       clientID,
		PublicID: uuid.New(),
		UserID:   &userID,
		Name:     name,
		ContactInfo: client.ContactInfo{
			Phone:   phoneNumber,
			Email:   email,
			Address: cmd.Address,
		},
		CreatedBy: &userID,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, u); err != nil {
			return err
		}
		if err := s.clients.Create(ctx, c); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, AuditEntry{
			Actor:        Actor{UserID: userID, Role: domain.RoleClient, IP: ip},
			Action:       domain.ActionCreate,
			ResourceType: "user",
			ResourceID:   userID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("client registered",
		zap.String("user_id", userID.String()),
		zap.String("client_id", clientID.String()),
	)
	return s.jwtManager.GenerateTokenPair(u.Claims())
}

type CreateUserCommand struct {
	Name           string
	Email          string
	Phone          string
	Password       string
	Role           domain.Role
	VeterinarianID *uuid.UUID
	ClientID       *uuid.UUID
}

// CreateUser lets an admin open an account for any role and link it to an
// existing veterinarian or client profile.
func (s *AuthService) CreateUser(ctx context.Context, cmd *CreateUserCommand, actor Actor) (*UserProfile, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	var errs []string
	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if !validEmail(email) {
		errs = append(errs, "email is invalid")
	}
	if !cmd.Role.IsValid() {
		errs = append(errs, ErrInvalidRole.Error())
	}
	if cmd.VeterinarianID != nil && cmd.Role != domain.RoleVeterinarian {
		errs = append(errs, "veterinarian_id requires the veterinarian role")
	}
	if cmd.ClientID != nil && cmd.Role != domain.RoleClient {
		errs = append(errs, "client_id requires the client role")
	}
	if err := validatePasswordStrength(cmd.Password); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := &domain.User{
		ID:                uuid.New(),
		Email:             email,
		PasswordHash:      string(hash),
		Name:              strings.TrimSpace(cmd.Name),
		Phone:             strings.TrimSpace(cmd.Phone),
		Role:              cmd.Role,
		VeterinarianID:    cmd.VeterinarianID,
		ClientID:          cmd.ClientID,
		IsActive:          true,
		PasswordChangedAt: time.Now(),
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, u); err != nil {
			return err
		}
		if u.VeterinarianID != nil {
			if _, err := s.vets.Update(ctx, *u.VeterinarianID, &veterinarian.UpdateVeterinarianCommand{UserID: &u.ID}); err != nil {
				return err
			}
		}
		if u.ClientID != nil {
			if _, err := s.clients.Update(ctx, *u.ClientID, &client.UpdateClientCommand{UserID: &u.ID}); err != nil {
				return err
			}
		}
		return s.auditSvc.Record(ctx, AuditEntry{
			Actor:        actor,
			Action:       domain.ActionCreate,
			ResourceType: "user",
			ResourceID:   u.ID.String(),
			Changes:      map[string]any{"role": u.Role},
		})
	})
	if err != nil {
		return nil, err
	}
	return profileOf(u), nil
}

func (s *AuthService) Login(ctx context.Context, email, password string, ip string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Hash anyway so response time does not reveal whether the email exists.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if user.IsLocked(time.Now()) {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if err := s.userRepo.RecordLoginFailure(ctx, user.ID, maxFailedAttempts, lockDuration); err != nil {
			s.log.Error("failed to record login failure", zap.Error(err))
		}
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.RecordLoginSuccess(ctx, user.ID); err != nil {
		s.log.Error("failed to record login", zap.Error(err))
	}

	pair, err := s.jwtManager.GenerateTokenPair(user.Claims())
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        Actor{UserID: user.ID, Role: user.Role, IP: ip},
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
	})
	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)

	return pair, nil
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Re-validate user is still active
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(user.Claims())
}

// ChangePassword updates a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if err := validatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

type UserProfile struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	Name           string      `json:"name"`
	Phone          string      `json:"phone,omitempty"`
	Role           domain.Role `json:"role"`
	VeterinarianID *uuid.UUID  `json:"veterinarian_id,omitempty"`
	ClientID       *uuid.UUID  `json:"client_id,omitempty"`
	LastLoginAt    *time.Time  `json:"last_login_at,omitempty"`
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileOf(u), nil
}

func profileOf(u *domain.User) *UserProfile {
	return &UserProfile{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Phone:          u.Phone,
		Role:           u.Role,
		VeterinarianID: u.VeterinarianID,
		ClientID:       u.ClientID,
		LastLoginAt:    u.LastLoginAt,
	}
}

func validatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
