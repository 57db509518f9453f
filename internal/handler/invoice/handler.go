package invoice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/handler"
	"github.com/bildout/bildout-api/internal/middleware"
	"github.com/bildout/bildout-api/internal/model"
	invoiceService "github.com/bildout/bildout-api/internal/service/invoice"
)

type Handler struct {
	service invoiceService.InvoiceServicer
}

func NewHandler(service invoiceService.InvoiceServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	invoices := r.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/export", h.ExportCSV)
		invoices.GET("/:id", h.Get)
		invoices.PUT("/:id", h.Update)
		invoices.DELETE("/:id", h.Delete)

		invoices.PATCH("/:id/status", h.PatchStatus)
		invoices.POST("/:id/send", h.Send)
		invoices.POST("/:id/mark-paid", h.MarkPaid)
		invoices.POST("/:id/void", h.Void)
		invoices.POST("/:id/cancel", h.Cancel)
		invoices.POST("/:id/duplicate", h.Duplicate)
		invoices.GET("/:id/history", h.History)
		invoices.GET("/:id/pdf", h.PDF)
	}
}

var errInvalidStatus = errors.New("invalid invoice status")

type listQuery struct {
	Status   string     `form:"status"`
	ClientID *uuid.UUID `form:"client_id"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
}

type terminateRequest struct {
	Notes *string `json:"notes"`
}

func (q *listQuery) filter() (*model.InvoiceFilter, error) {
	f := &model.InvoiceFilter{
		ClientID: q.ClientID,
		From:     q.From,
		To:       q.To,
	}
	f.Page = q.Page
	f.PageSize = q.PageSize
	if q.Status != "" {
		status := model.InvoiceStatus(q.Status)
		if !status.Valid() {
			return nil, errInvalidStatus
		}
		f.Status = status
	}
	return f, nil
}

func (h *Handler) Create(c *gin.Context) {
	var req invoiceService.CreateInput
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
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	filter, err := q.filter()
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	claims := middleware.ClaimsFrom(c)
	invoices, err := h.service.List(c.Request.Context(), claims.OrganizationID, filter)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(invoices))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
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
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	var req invoiceService.CreateInput
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
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	claims := middleware.ClaimsFrom(c)
	if err := h.service.Delete(c.Request.Context(), claims.OrganizationID, id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	claims := middleware.ClaimsFrom(c)
	sent, err := h.service.Send(c.Request.Context(), claims.OrganizationID, id, &claims.UserID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(sent))
}

func (h *Handler) MarkPaid(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	claims := middleware.ClaimsFrom(c)
	paid, err := h.service.MarkPaid(c.Request.Context(), claims.OrganizationID, id, &claims.UserID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(paid))
}

func (h *Handler) Void(c *gin.Context) {
	h.terminate(c, h.service.Void)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.terminate(c, h.service.Cancel)
}

func (h *Handler) terminate(c *gin.Context, fn func(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID, notes *string) (*model.Invoice, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	var req terminateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	claims := middleware.ClaimsFrom(c)
	updated, err := fn(c.Request.Context(), claims.OrganizationID, id, &claims.UserID, req.Notes)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

type statusPatchRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// PatchStatus dispatches a requested status to the matching transition.
// There is no generic state machine; each transition keeps its own rules.
func (h *Handler) PatchStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	var req statusPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	claims := middleware.ClaimsFrom(c)
	ctx := c.Request.Context()

	var updated *model.Invoice
	switch model.InvoiceStatus(req.Status) {
	case model.InvoiceStatusSent:
		updated, err = h.service.Send(ctx, claims.OrganizationID, id, &claims.UserID)
	case model.InvoiceStatusPaid:
		updated, err = h.service.MarkPaid(ctx, claims.OrganizationID, id, &claims.UserID)
	case model.InvoiceStatusVoid:
		updated, err = h.service.Void(ctx, claims.OrganizationID, id, &claims.UserID, req.Notes)
	case model.InvoiceStatusCancelled:
		updated, err = h.service.Cancel(ctx, claims.OrganizationID, id, &claims.UserID, req.Notes)
	default:
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("status cannot be set directly"))
		return
	}
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) Duplicate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	claims := middleware.ClaimsFrom(c)
	dup, err := h.service.Duplicate(c.Request.Context(), claims.OrganizationID, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(dup))
}

func (h *Handler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	claims := middleware.ClaimsFrom(c)
	history, err := h.service.History(c.Request.Context(), claims.OrganizationID, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(history))
}

func (h *Handler) ExportCSV(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	filter, err := q.filter()
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	claims := middleware.ClaimsFrom(c)
	data, err := h.service.ExportCSV(c.Request.Context(), claims.OrganizationID, filter)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invoices.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// PDF rendering is not implemented server-side.
func (h *Handler) PDF(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, handler.NewErrorResponse("PDF rendering is not available"))
}
