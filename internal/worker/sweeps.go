package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bildout/bildout-api/config"
	adminService "github.com/bildout/bildout-api/internal/service/admin"
	invoiceService "github.com/bildout/bildout-api/internal/service/invoice"
	"github.com/bildout/bildout-api/pkg/logger"
)

// sweepTimeout bounds one scheduled run.
const sweepTimeout = 10 * time.Minute

// Scheduler runs the recurring sweeps: flipping overdue invoices and
// clearing expired plan overrides.
type Scheduler struct {
	cron     *cron.Cron
	invoices invoiceService.InvoiceServicer
	admin    adminService.AdminServicer
	cfg      config.CronConfig
	log      *logger.Logger
}

func NewScheduler(invoices invoiceService.InvoiceServicer, admin adminService.AdminServicer, cfg config.CronConfig, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		invoices: invoices,
		admin:    admin,
		cfg:      cfg,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.OverdueSpec, s.runOverdue); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.ExpireSpec, s.runExpireOverrides); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("scheduler started",
		"overdue_spec", s.cfg.OverdueSpec, "expire_spec", s.cfg.ExpireSpec)
	return nil
}

// Stop waits for in-flight jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOverdue() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.invoices.SweepOverdue(ctx); err != nil {
		s.log.Error(err, "scheduled overdue sweep failed")
	}
}

func (s *Scheduler) runExpireOverrides() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.admin.ExpireOverrides(ctx); err != nil {
		s.log.Error(err, "scheduled override expiry failed")
	}
}
