package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/katalog-materi-api/internal/middleware"
	"github.com/noah-isme/katalog-materi-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// callerRole returns the caller's role, defaulting to guest when no claims
// are attached.
func callerRole(c *gin.Context) models.UserRole {
	if claims := claimsFromContext(c); claims != nil {
		return claims.Role
	}
	return models.RoleGuest
}
