package organization

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bildout/bildout-api/internal/handler"
	"github.com/bildout/bildout-api/internal/middleware"
	orgService "github.com/bildout/bildout-api/internal/service/organization"
)

type Handler struct {
	service orgService.OrganizationServicer
}

func NewHandler(service orgService.OrganizationServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	org := r.Group("/organization")
	{
		org.GET("", h.Get)
		org.PUT("", h.Update)
		org.PUT("/branding", h.UpdateBranding)
	}
}

func (h *Handler) Get(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	org, err := h.service.Get(c.Request.Context(), claims.OrganizationID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(org))
}

func (h *Handler) Update(c *gin.Context) {
	var req orgService.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	claims := middleware.ClaimsFrom(c)
	org, err := h.service.Update(c.Request.Context(), claims.OrganizationID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(org))
}

func (h *Handler) UpdateBranding(c *gin.Context) {
	var req orgService.BrandingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	claims := middleware.ClaimsFrom(c)
	org, err := h.service.UpdateBranding(c.Request.Context(), claims.OrganizationID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(org))
}
