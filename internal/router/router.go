package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bildout/bildout-api/config"
	adminHandler "github.com/bildout/bildout-api/internal/handler/admin"
	authHandler "github.com/bildout/bildout-api/internal/handler/auth"
	billingHandler "github.com/bildout/bildout-api/internal/handler/billing"
	clientHandler "github.com/bildout/bildout-api/internal/handler/client"
	cronHandler "github.com/bildout/bildout-api/internal/handler/cron"
	healthHandler "github.com/bildout/bildout-api/internal/handler/health"
	invoiceHandler "github.com/bildout/bildout-api/internal/handler/invoice"
	itemHandler "github.com/bildout/bildout-api/internal/handler/item"
	orgHandler "github.com/bildout/bildout-api/internal/handler/organization"
	paymentHandler "github.com/bildout/bildout-api/internal/handler/payment"
	"github.com/bildout/bildout-api/internal/middleware"
)

type Handlers struct {
	Auth         *authHandler.Handler
	Organization *orgHandler.Handler
	Client       *clientHandler.Handler
	Item         *itemHandler.Handler
	Invoice      *invoiceHandler.Handler
	Payment      *paymentHandler.Handler
	Billing      *billingHandler.Handler
	Admin        *adminHandler.Handler
	Cron         *cronHandler.Handler
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	cfg      *config.Config
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, cfg *config.Config, log *zerolog.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		cfg:      cfg,
		metrics:  initRouterMetrics(),
	}

	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Logger(log),
		r.metricsMiddleware(),
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.RateLimit(cfg.RateLimit),
	)

	return r
}

func initRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed",
		}, []string{"method", "path", "status"}),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// Setup mounts all route groups.
func (r *Router) Setup(db *sqlx.DB) {
	healthHandler.NewHandler(db).RegisterRoutes(r.engine)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")

	// Public surface: registration, login, the pay page, webhooks.
	r.handlers.Auth.RegisterRoutes(api)
	r.handlers.Payment.RegisterPublicRoutes(api)

	// Scheduled sweeps, shared-secret gated.
	cron := api.Group("")
	cron.Use(middleware.CronAuth(r.cfg.Cron.Secret))
	r.handlers.Cron.RegisterRoutes(cron)

	// Tenant surface.
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	{
		r.handlers.Auth.RegisterProtectedRoutes(protected)
		r.handlers.Organization.RegisterRoutes(protected)
		r.handlers.Client.RegisterRoutes(protected)
		r.handlers.Item.RegisterRoutes(protected)
		r.handlers.Invoice.RegisterRoutes(protected)
		r.handlers.Payment.RegisterRoutes(protected)
		r.handlers.Billing.RegisterRoutes(protected)
	}

	// Back-office.
	admin := api.Group("/admin")
	admin.Use(r.auth.Authenticate(), r.auth.RequireAdmin())
	r.handlers.Admin.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
