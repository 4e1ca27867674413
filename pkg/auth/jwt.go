// Package auth issues and verifies the HS256 tokens used by the API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/config"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Access and refresh tokens are told apart by audience.
const (
	accessAudience  = "vetclinic:access"
	refreshAudience = "vetclinic:refresh"

	clockSkew = 10 * time.Second
)

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalid      = errors.New("token is invalid")
	ErrTokenTypeMismatch = errors.New("wrong token type")
)

// profileClaims carries the caller's role and the profile a role is tied to.
type profileClaims struct {
	jwt.RegisteredClaims
	Email          string      `json:"email"`
	Role           domain.Role `json:"role"`
	VeterinarianID *uuid.UUID  `json:"vet,omitempty"`
	ClientID       *uuid.UUID  `json:"cli,omitempty"`
}

type JWTManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}
}

func (m *JWTManager) GenerateTokenPair(claims *domain.Claims) (*domain.TokenPair, error) {
	issuedAt := m.now()

	access, err := m.sign(claims, accessAudience, issuedAt, m.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := m.sign(claims, refreshAudience, issuedAt, m.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    issuedAt.Add(m.accessTTL),
		TokenType:    "Bearer",
	}, nil
}

func (m *JWTManager) ValidateAccessToken(token string) (*domain.Claims, error) {
	return m.verify(token, accessAudience)
}

func (m *JWTManager) ValidateRefreshToken(token string) (*domain.Claims, error) {
	return m.verify(token, refreshAudience)
}

func (m *JWTManager) sign(c *domain.Claims, audience string, issuedAt time.Time, ttl time.Duration) (string, error) {
	pc := profileClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   c.UserID.String(),
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Email:          c.Email,
		Role:           c.Role,
		VeterinarianID: c.VeterinarianID,
		ClientID:       c.ClientID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, pc).SignedString(m.secret)
}

func (m *JWTManager) verify(raw, audience string) (*domain.Claims, error) {
	var pc profileClaims
	_, err := jwt.ParseWithClaims(raw, &pc,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return nil, ErrTokenTypeMismatch
	default:
		return nil, ErrTokenInvalid
	}

	if !pc.Role.IsValid() {
		return nil, ErrTokenInvalid
	}
	userID, err := uuid.Parse(pc.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return &domain.Claims{
		UserID:         userID,
		Email:          pc.Email,
		Role:           pc.Role,
		VeterinarianID: pc.VeterinarianID,
		ClientID:       pc.ClientID,
	}, nil
}
