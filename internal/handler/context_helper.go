package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fees-api/internal/middleware"
	"github.com/noah-isme/sma-fees-api/internal/models"
)

// tillHeader identifies the cashier till a queue request belongs to.
const tillHeader = "X-Till-ID"

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

// tillFromContext returns the till id for queue operations. Tills without a
// configured id share the "default" queue.
func tillFromContext(c *gin.Context) string {
	if till := c.GetHeader(tillHeader); till != "" {
		return till
	}
	return "default"
}
