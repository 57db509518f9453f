package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/bildout/bildout-api/internal/handler"
)

type Handler struct {
	db *sqlx.DB
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	}))
}

// Ready verifies the database connection.
func (h *Handler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, handler.NewErrorResponse("database unavailable"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "ready"}))
}
