package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/internal/service"
	"github.com/dmehra2102/prod-golang-projects/vetclinic/pkg/auth"
)

type TokenValidator interface {
	ValidateAccessToken(token string) (*domain.Claims, error)
}

// Authenticate requires a valid Bearer access token and stores its claims
// on the gin context.
func Authenticate(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := v.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			body := gin.H{"error": "invalid token"}
			if errors.Is(err, auth.ErrTokenExpired) {
				body = gin.H{"error": "token has expired", "code": "TOKEN_EXPIRED"}
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, body)
			return
		}

		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// RequireRoles must run after Authenticate.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}

func GetClaims(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok && claims != nil
}

// Actor builds the service actor for the authenticated caller. It returns
// the zero Actor on unauthenticated routes.
func Actor(c *gin.Context) service.Actor {
	claims, ok := GetClaims(c)
	if !ok {
		return service.Actor{IP: c.ClientIP(), RequestID: GetRequestID(c)}
	}
	return service.ActorFromClaims(claims, c.ClientIP(), GetRequestID(c))
}
