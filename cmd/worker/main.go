package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/bildout/bildout-api/config"
	"github.com/bildout/bildout-api/internal/email"
	"github.com/bildout/bildout-api/internal/payments/stripe"
	"github.com/bildout/bildout-api/internal/repository/postgres"
	adminService "github.com/bildout/bildout-api/internal/service/admin"
	billingService "github.com/bildout/bildout-api/internal/service/billing"
	invoiceService "github.com/bildout/bildout-api/internal/service/invoice"
	"github.com/bildout/bildout-api/internal/worker"
	"github.com/bildout/bildout-api/pkg/logger"
	"github.com/bildout/bildout-api/pkg/messaging/redis"
	"github.com/bildout/bildout-api/pkg/metrics"
)

// The worker process owns the recurring sweeps and the outbox drain, so the
// API process never runs background jobs.
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

	m := metrics.NewMetrics("bildout_worker")

	base := postgres.NewBaseRepository(db)
	orgRepo := postgres.NewOrganizationRepository(base)
	userRepo := postgres.NewUserRepository(base)
	clientRepo := postgres.NewClientRepository(base)
	invoiceRepo := postgres.NewInvoiceRepository(base)
	auditRepo := postgres.NewAdminAuditRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	stripeClient := stripe.NewClient(cfg.Stripe, log)
	emailSvc := email.NewSMTPService(cfg.Email, log, m)

	billingSvc := billingService.NewService(orgRepo, userRepo, clientRepo, invoiceRepo, stripeClient, cfg.App.BaseURL, log)
	invoiceSvc := invoiceService.NewService(invoiceRepo, clientRepo, orgRepo, outboxRepo, billingSvc, emailSvc, m, cfg.App.BaseURL, log)
	adminSvc := adminService.NewService(orgRepo, userRepo, clientRepo, invoiceRepo, auditRepo, outboxRepo, billingSvc, invoiceSvc, stripeClient, log)

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog())
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := worker.NewOutboxProcessor(outboxRepo, broker, cfg.Outbox, log, m)
	go processor.Start(ctx)

	scheduler := worker.NewScheduler(invoiceSvc, adminSvc, cfg.Cron, log)
	if err := scheduler.Start(); err != nil {
		log.Fatal(err, "failed to start scheduler")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker")
	cancel()
	scheduler.Stop()
}
