package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/learnsphere/academy-api/internal/middleware"
	"github.com/learnsphere/academy-api/internal/models"
)

// claimsFromContext reads the authenticated caller set by the JWT
// middleware. Nil means the request is anonymous.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	if claims, ok := value.(*models.JWTClaims); ok {
		return claims
	}
	return nil
}
