package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bildout/bildout-api/internal/handler"
	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
	"github.com/bildout/bildout-api/internal/service/auth"
)

const (
	// ContextClaims holds the *model.TokenClaims for the authenticated user
	ContextClaims = "claims"
)

type AuthMiddleware struct {
	authService auth.AuthServicer
	orgRepo     repository.OrganizationRepository
}

func NewAuthMiddleware(authService auth.AuthServicer, orgRepo repository.OrganizationRepository) *AuthMiddleware {
	return &AuthMiddleware{authService: authService, orgRepo: orgRepo}
}

// Authenticate verifies the bearer token and rejects suspended tenants.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.authService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		org, err := m.orgRepo.Get(c.Request.Context(), claims.OrganizationID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unknown organization"))
			c.Abort()
			return
		}
		if org.Suspended() && !claims.IsAdmin {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("organization is suspended"))
			c.Abort()
			return
		}

		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireAdmin gates the back-office routes. Must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil || !claims.IsAdmin {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the authenticated claims, or nil outside Authenticate.
func ClaimsFrom(c *gin.Context) *model.TokenClaims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*model.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
