package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/bildout/bildout-api/config"
	adminHandler "github.com/bildout/bildout-api/internal/handler/admin"
	authHandler "github.com/bildout/bildout-api/internal/handler/auth"
	billingHandler "github.com/bildout/bildout-api/internal/handler/billing"
	clientHandler "github.com/bildout/bildout-api/internal/handler/client"
	cronHandler "github.com/bildout/bildout-api/internal/handler/cron"
	invoiceHandler "github.com/bildout/bildout-api/internal/handler/invoice"
	itemHandler "github.com/bildout/bildout-api/internal/handler/item"
	orgHandler "github.com/bildout/bildout-api/internal/handler/organization"
	paymentHandler "github.com/bildout/bildout-api/internal/handler/payment"
	"github.com/bildout/bildout-api/internal/email"
	"github.com/bildout/bildout-api/internal/middleware"
	"github.com/bildout/bildout-api/internal/payments/stripe"
	"github.com/bildout/bildout-api/internal/repository/postgres"
	"github.com/bildout/bildout-api/internal/router"
	adminService "github.com/bildout/bildout-api/internal/service/admin"
	authService "github.com/bildout/bildout-api/internal/service/auth"
	billingService "github.com/bildout/bildout-api/internal/service/billing"
	clientService "github.com/bildout/bildout-api/internal/service/client"
	invoiceService "github.com/bildout/bildout-api/internal/service/invoice"
	itemService "github.com/bildout/bildout-api/internal/service/item"
	orgService "github.com/bildout/bildout-api/internal/service/organization"
	paymentService "github.com/bildout/bildout-api/internal/service/payment"
	"github.com/bildout/bildout-api/pkg/logger"
	"github.com/bildout/bildout-api/pkg/metrics"
	"github.com/bildout/bildout-api/pkg/validator"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("bildout")

	// Repositories
	base := postgres.NewBaseRepository(db)
	orgRepo := postgres.NewOrganizationRepository(base)
	userRepo := postgres.NewUserRepository(base)
	clientRepo := postgres.NewClientRepository(base)
	itemRepo := postgres.NewItemRepository(base)
	invoiceRepo := postgres.NewInvoiceRepository(base)
	paymentRepo := postgres.NewPaymentRepository(base)
	auditRepo := postgres.NewAdminAuditRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	// Vendor clients
	stripeClient := stripe.NewClient(cfg.Stripe, log)
	emailSvc := email.NewSMTPService(cfg.Email, log, m)

	// Services
	authSvc := authService.NewService(userRepo, orgRepo, cfg.JWT, log)
	billingSvc := billingService.NewService(orgRepo, userRepo, clientRepo, invoiceRepo, stripeClient, cfg.App.BaseURL, log)
	orgSvc := orgService.NewService(orgRepo, validator.New())
	clientSvc := clientService.NewService(clientRepo, billingSvc, log)
	itemSvc := itemService.NewService(itemRepo)
	invoiceSvc := invoiceService.NewService(invoiceRepo, clientRepo, orgRepo, outboxRepo, billingSvc, emailSvc, m, cfg.App.BaseURL, log)
	paymentSvc := paymentService.NewService(paymentRepo, invoiceRepo, orgRepo, userRepo, outboxRepo, stripeClient, billingSvc, emailSvc, m, cfg.App.PlatformFeeBPS, log)
	adminSvc := adminService.NewService(orgRepo, userRepo, clientRepo, invoiceRepo, auditRepo, outboxRepo, billingSvc, invoiceSvc, stripeClient, log)

	// HTTP surface
	authMW := middleware.NewAuthMiddleware(authSvc, orgRepo)
	handlers := router.Handlers{
		Auth:         authHandler.NewHandler(authSvc),
		Organization: orgHandler.NewHandler(orgSvc),
		Client:       clientHandler.NewHandler(clientSvc),
		Item:         itemHandler.NewHandler(itemSvc),
		Invoice:      invoiceHandler.NewHandler(invoiceSvc),
		Payment:      paymentHandler.NewHandler(paymentSvc, invoiceSvc, cfg.Stripe, log),
		Billing:      billingHandler.NewHandler(billingSvc),
		Admin:        adminHandler.NewHandler(adminSvc),
		Cron:         cronHandler.NewHandler(invoiceSvc, adminSvc),
	}

	r := router.NewRouter(authMW, handlers, cfg, log.Zerolog())
	r.Setup(db)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
}
