package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/handler"
	"github.com/bildout/bildout-api/internal/middleware"
	"github.com/bildout/bildout-api/internal/model"
	adminService "github.com/bildout/bildout-api/internal/service/admin"
)

type Handler struct {
	service adminService.AdminServicer
}

func NewHandler(service adminService.AdminServicer) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the back-office. The group must already be gated by
// RequireAdmin.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	merchants := r.Group("/merchants")
	{
		merchants.GET("", h.ListMerchants)
		merchants.GET("/:id", h.GetMerchant)
		merchants.POST("/:id/suspend", h.Suspend)
		merchants.POST("/:id/resume", h.Resume)
		merchants.POST("/:id/override", h.SetOverride)
		merchants.DELETE("/:id/override", h.ClearOverride)
		merchants.POST("/:id/sync", h.SyncSubscription)
		merchants.POST("/:id/login-link", h.ConnectLoginLink)
		merchants.POST("/:id/invoices/:invoiceId/remind", h.SendReminder)
	}
	r.GET("/audit", h.ListAudit)
}

func (h *Handler) ListMerchants(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	orgs, total, err := h.service.ListMerchants(c.Request.Context(), c.Query("search"), p)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"merchants": orgs,
		"total":     total,
	}))
}

func (h *Handler) GetMerchant(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid merchant ID"))
		return
	}

	detail, err := h.service.GetMerchant(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) Suspend(c *gin.Context) {
	h.action(c, h.service.Suspend)
}

func (h *Handler) Resume(c *gin.Context) {
	h.action(c, h.service.Resume)
}

func (h *Handler) action(c *gin.Context, fn func(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid merchant ID"))
		return
	}

	if err := fn(c.Request.Context(), id, middleware.ClaimsFrom(c), c.ClientIP()); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) SetOverride(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid merchant ID"))
		return
	}

	var req adminService.OverrideInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.SetOverride(c.Request.Context(), id, &req, middleware.ClaimsFrom(c), c.ClientIP()); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ClearOverride(c *gin.Context) {
	h.action(c, h.service.ClearOverride)
}

func (h *Handler) SyncSubscription(c *gin.Context) {
	h.action(c, h.service.SyncSubscription)
}

func (h *Handler) ConnectLoginLink(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid merchant ID"))
		return
	}

	url, err := h.service.ConnectLoginLink(c.Request.Context(), id, middleware.ClaimsFrom(c), c.ClientIP())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"url": url}))
}

func (h *Handler) SendReminder(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid merchant ID"))
		return
	}
	invoiceID, err := uuid.Parse(c.Param("invoiceId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	if err := h.service.SendReminder(c.Request.Context(), orgID, invoiceID, middleware.ClaimsFrom(c), c.ClientIP()); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListAudit(c *gin.Context) {
	var filter model.AuditFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	entries, err := h.service.ListAudit(c.Request.Context(), &filter)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}
