package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kitcycle/kitcycle-api/internal/middleware"
	"github.com/kitcycle/kitcycle-api/internal/models"
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

// intQuery reads a numeric query parameter, treating absent or
// malformed values as zero so list endpoints fall back to defaults.
func intQuery(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
