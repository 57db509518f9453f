package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func cronRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/cron/overdue", CronAuth(secret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestCronAuth(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
	}{
		{"valid secret", "s3cret", "Bearer s3cret", http.StatusOK},
		{"wrong secret", "s3cret", "Bearer nope", http.StatusForbidden},
		{"bare secret without scheme", "s3cret", "s3cret", http.StatusOK},
		{"missing header", "s3cret", "", http.StatusForbidden},
		{"empty configured secret disables the route", "", "", http.StatusForbidden},
		{"empty configured secret rejects any header", "", "Bearer anything", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := cronRouter(tt.secret)
			req := httptest.NewRequest(http.MethodPost, "/cron/overdue", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
