package client

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/handler"
	"github.com/bildout/bildout-api/internal/middleware"
	"github.com/bildout/bildout-api/internal/model"
	clientService "github.com/bildout/bildout-api/internal/service/client"
)

type Handler struct {
	service clientService.ClientServicer
}

func NewHandler(service clientService.ClientServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clients := r.Group("/clients")
	{
		clients.POST("", h.Create)
		clients.GET("", h.List)
		clients.GET("/:id", h.Get)
		clients.PUT("/:id", h.Update)
		clients.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req clientService.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	claims := middleware.ClaimsFrom(c)
	created, err := h.service.Create(c.Request.Context(), claims.OrganizationID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) List(c *gin.Context) {
	var filter model.ClientFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	claims := middleware.ClaimsFrom(c)
	clients, err := h.service.List(c.Request.Context(), claims.OrganizationID, &filter)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(clients))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid client ID"))
		return
	}

	claims := middleware.ClaimsFrom(c)
	found, err := h.service.Get(c.Request.Context(), claims.OrganizationID, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid client ID"))
		return
	}

	var req clientService.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	claims := middleware.ClaimsFrom(c)
	updated, err := h.service.Update(c.Request.Context(), claims.OrganizationID, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid client ID"))
		return
	}

	claims := middleware.ClaimsFrom(c)
	if err := h.service.Delete(c.Request.Context(), claims.OrganizationID, id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
