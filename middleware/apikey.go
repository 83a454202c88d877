package middleware

import (
	"crypto/subtle"
	"net/http"

	"brightcall/config"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware guards the call-trigger endpoint. When no API_KEY is
// configured the check is disabled, which is only sensible in development.
func APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := config.AppConfig.APIKey
		if expected == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			return
		}
		c.Next()
	}
}
