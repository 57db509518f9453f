package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bildout/bildout-api/internal/handler"
	"github.com/bildout/bildout-api/internal/middleware"
	"github.com/bildout/bildout-api/internal/model"
	billingService "github.com/bildout/bildout-api/internal/service/billing"
)

type Handler struct {
	service billingService.BillingServicer
}

func NewHandler(service billingService.BillingServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	b := r.Group("/billing")
	{
		b.GET("/plan", h.GetPlan)
		b.POST("/checkout", h.CreateCheckout)
		b.POST("/portal", h.CreatePortal)

		b.POST("/connect/onboard", h.StartOnboarding)
		b.POST("/connect/sync", h.SyncConnect)
	}
}

type checkoutRequest struct {
	Plan model.Plan `json:"plan" binding:"required"`
}

// GetPlan returns the effective plan and its limits.
func (h *Handler) GetPlan(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	plan, err := h.service.EffectivePlanByID(c.Request.Context(), claims.OrganizationID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"plan":   plan,
		"limits": model.LimitsFor(plan),
	}))
}

func (h *Handler) CreateCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	claims := middleware.ClaimsFrom(c)
	url, err := h.service.CreateCheckoutSession(c.Request.Context(), claims.OrganizationID, req.Plan)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"url": url}))
}

func (h *Handler) CreatePortal(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	url, err := h.service.CreatePortalSession(c.Request.Context(), claims.OrganizationID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"url": url}))
}

func (h *Handler) StartOnboarding(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	url, err := h.service.StartConnectOnboarding(c.Request.Context(), claims.UserID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"url": url}))
}

func (h *Handler) SyncConnect(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	user, err := h.service.SyncConnectStatus(c.Request.Context(), claims.UserID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(user))
}
