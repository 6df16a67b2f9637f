package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/techlyn/academy-api/internal/middleware"
	"github.com/techlyn/academy-api/internal/models"
)

// claimsFromContext reads the claims the JWT middleware stored. Nil
// means the request came in anonymously.
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
