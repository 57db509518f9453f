package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bildout/bildout-api/internal/handler"
)

// CronAuth guards the internal cron trigger routes with a shared secret
// carried as a bearer token, compared in constant time.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("cron endpoint disabled"))
			c.Abort()
			return
		}

		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("forbidden"))
			c.Abort()
			return
		}
		c.Next()
	}
}
