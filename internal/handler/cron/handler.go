package cron

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bildout/bildout-api/internal/handler"
	adminService "github.com/bildout/bildout-api/internal/service/admin"
	invoiceService "github.com/bildout/bildout-api/internal/service/invoice"
)

// Handler exposes the scheduled sweeps as HTTP triggers for external
// schedulers. The group must be gated by the cron secret middleware.
type Handler struct {
	invoices invoiceService.InvoiceServicer
	admin    adminService.AdminServicer
}

func NewHandler(invoices invoiceService.InvoiceServicer, admin adminService.AdminServicer) *Handler {
	return &Handler{invoices: invoices, admin: admin}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	cron := r.Group("/cron")
	{
		cron.POST("/overdue", h.SweepOverdue)
		cron.POST("/expire-overrides", h.ExpireOverrides)
	}
}

func (h *Handler) SweepOverdue(c *gin.Context) {
	result, err := h.invoices.SweepOverdue(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) ExpireOverrides(c *gin.Context) {
	cleared, err := h.admin.ExpireOverrides(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"cleared": cleared}))
}
