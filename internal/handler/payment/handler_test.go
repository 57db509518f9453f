package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripesdk "github.com/stripe/stripe-go/v78"

	"github.com/bildout/bildout-api/config"
	"github.com/bildout/bildout-api/internal/model"
	invoiceService "github.com/bildout/bildout-api/internal/service/invoice"
	"github.com/bildout/bildout-api/pkg/logger"
)

type fakePaymentService struct {
	called     bool
	gotToken   string
	gotAmount  int64
	result     *model.PaymentIntentResult
	intentErr  error
	webhookErr error
}

func (f *fakePaymentService) CreateIntent(ctx context.Context, token string, amountCents int64) (*model.PaymentIntentResult, error) {
	f.called = true
	f.gotToken = token
	f.gotAmount = amountCents
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	return f.result, nil
}

func (f *fakePaymentService) HandleWebhookEvent(ctx context.Context, event stripesdk.Event) error {
	return f.webhookErr
}

func (f *fakePaymentService) ListByInvoice(ctx context.Context, orgID, invoiceID uuid.UUID) ([]*model.Payment, error) {
	return nil, nil
}

type fakeInvoiceService struct {
	invoiceService.InvoiceServicer
}

func intentRouter(svc *fakePaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc, &fakeInvoiceService{}, config.StripeConfig{}, logger.NewLogger(nil))
	h.RegisterPublicRoutes(r.Group("/api/v1"))
	return r
}

func TestCreateIntentHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCalled bool
		wantAmount int64
	}{
		{"explicit amount", `{"amount_cents": 5000}`, http.StatusOK, true, 5000},
		{"empty object pays full balance", `{}`, http.StatusOK, true, 0},
		{"empty body pays full balance", ``, http.StatusOK, true, 0},
		{"zero amount rejected by binding", `{"amount_cents": 0}`, http.StatusBadRequest, false, 0},
		{"negative amount rejected by binding", `{"amount_cents": -100}`, http.StatusBadRequest, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakePaymentService{result: &model.PaymentIntentResult{ClientSecret: "pi_secret"}}
			r := intentRouter(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/pay/tok_abc/intent", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCalled, svc.called)
			if tt.wantCalled {
				assert.Equal(t, "tok_abc", svc.gotToken)
				assert.Equal(t, tt.wantAmount, svc.gotAmount)
			}
		})
	}
}
