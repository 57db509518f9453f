package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bildout/bildout-api/config"
	"github.com/bildout/bildout-api/internal/handler"
	"github.com/bildout/bildout-api/internal/middleware"
	"github.com/bildout/bildout-api/internal/payments/stripe"
	invoiceService "github.com/bildout/bildout-api/internal/service/invoice"
	paymentService "github.com/bildout/bildout-api/internal/service/payment"
	"github.com/bildout/bildout-api/pkg/logger"
)

// webhookBodyLimit caps the webhook payload we will buffer.
const webhookBodyLimit = 1 << 16

type Handler struct {
	service  paymentService.PaymentServicer
	invoices invoiceService.InvoiceServicer
	cfg      config.StripeConfig
	log      *logger.Logger
}

func NewHandler(service paymentService.PaymentServicer, invoices invoiceService.InvoiceServicer, cfg config.StripeConfig, log *logger.Logger) *Handler {
	return &Handler{service: service, invoices: invoices, cfg: cfg, log: log}
}

// RegisterPublicRoutes mounts the unauthenticated payment surface: the
// token-addressed pay page and the Stripe webhook.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	pay := r.Group("/pay")
	{
		pay.GET("/:token", h.GetByToken)
		pay.POST("/:token/intent", h.CreateIntent)
	}
	r.POST("/webhooks/stripe", h.Webhook)
}

// RegisterRoutes mounts the authenticated payment listing.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/invoices/:id/payments", h.ListByInvoice)
}

type intentRequest struct {
	AmountCents *int64 `json:"amount_cents" binding:"omitempty,gt=0"`
}

// GetByToken serves the public payment page data and records the first view.
func (h *Handler) GetByToken(c *gin.Context) {
	invoice, err := h.invoices.MarkViewed(c.Request.Context(), c.Param("token"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(invoice))
}

// CreateIntent opens a payment intent for the pay page. The amount is
// optional; omitting it pays the full outstanding balance.
func (h *Handler) CreateIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	var amount int64
	if req.AmountCents != nil {
		amount = *req.AmountCents
	}

	result, err := h.service.CreateIntent(c.Request.Context(), c.Param("token"), amount)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

// Webhook verifies the Stripe signature and dispatches the event. Processing
// failures return 500 so Stripe retries.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("could not read payload"))
		return
	}

	event, err := stripe.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"), h.cfg.WebhookSecret)
	if err != nil {
		h.log.Warn("webhook signature verification failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid signature"))
		return
	}

	if err := h.service.HandleWebhookEvent(c.Request.Context(), event); err != nil {
		h.log.Error(err, "webhook processing failed", "event_type", string(event.Type))
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("processing failed"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListByInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice ID"))
		return
	}

	claims := middleware.ClaimsFrom(c)
	payments, err := h.service.ListByInvoice(c.Request.Context(), claims.OrganizationID, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(payments))
}
