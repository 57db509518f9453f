package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/bildout/bildout-api/config"
	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
	"github.com/bildout/bildout-api/pkg/logger"
	"github.com/bildout/bildout-api/pkg/messaging"
	"github.com/bildout/bildout-api/pkg/metrics"
)

// OutboxProcessor drains pending outbox events to the message broker.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	cfg     config.OutboxConfig
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	cfg config.OutboxConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &OutboxProcessor{repo: repo, broker: broker, cfg: cfg, log: log, metrics: m}
}

// Start polls until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.log.Info("starting outbox processor")
	for {
		select {
		case <-ctx.Done():
			p.log.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.Drain(ctx); err != nil {
				p.log.Error(err, "outbox drain failed")
			}
		}
	}
}

// Drain processes one batch of pending events.
func (p *OutboxProcessor) Drain(ctx context.Context) error {
	events, err := p.repo.GetPending(ctx, p.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	for _, event := range events {
		if err := p.process(ctx, event); err != nil {
			p.log.Error(err, "failed to process outbox event",
				"event_id", event.ID, "event_type", event.EventType)
		}
	}
	return nil
}

func (p *OutboxProcessor) process(ctx context.Context, event *model.OutboxEvent) error {
	err := retry(p.cfg.RetryAttempts, p.cfg.RetryDelay, func() error {
		return p.broker.Publish(ctx, event.EventType, event.Payload)
	})
	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		if markErr := p.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			p.log.Error(markErr, "failed to mark event failed", "event_id", event.ID)
		}
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	return p.repo.MarkProcessed(ctx, event.ID)
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
