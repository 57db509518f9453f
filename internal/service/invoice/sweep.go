package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/model"
)

// SweepResult summarizes one overdue sweep run.
type SweepResult struct {
	Scanned int      `json:"scanned"`
	Flipped int      `json:"flipped"`
	Errors  []string `json:"errors,omitempty"`
}

// SweepOverdue flips every sent/viewed/partial invoice past its due date to
// overdue and attempts a reminder email for each. Failures on one invoice
// never abort the sweep; they are collected into the result.
func (s *Service) SweepOverdue(ctx context.Context) (*SweepResult, error) {
	due, err := s.repo.ListDueBefore(ctx, time.Now())
	if err != nil {
		s.metrics.OverdueSweepErrors.Inc()
		return nil, err
	}

	result := &SweepResult{Scanned: len(due)}
	orgs := make(map[uuid.UUID]*model.Organization)

	for _, inv := range due {
		if err := s.flipOverdue(ctx, inv); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", inv.ID, err))
			s.metrics.OverdueSweepErrors.Inc()
			s.log.Error(err, "overdue sweep failed for invoice", "invoice_id", inv.ID)
			continue
		}
		result.Flipped++

		// The flip stands even when the reminder fails.
		if err := s.sendOverdueReminder(ctx, inv, orgs); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: reminder: %v", inv.ID, err))
			s.log.Error(err, "failed to send overdue reminder", "invoice_id", inv.ID)
		}
	}

	s.metrics.OverdueSweepTotal.Add(float64(result.Flipped))
	s.log.Info("overdue sweep finished",
		"scanned", result.Scanned, "flipped", result.Flipped, "errors", len(result.Errors))
	return result, nil
}

func (s *Service) flipOverdue(ctx context.Context, inv *model.Invoice) error {
	from := inv.Status
	inv.Status = model.InvoiceStatusOverdue

	history := &model.InvoiceStatusHistory{
		FromStatus: from,
		ToStatus:   model.InvoiceStatusOverdue,
	}
	if err := s.repo.UpdateStatus(ctx, inv, history); err != nil {
		return err
	}
	s.metrics.InvoiceTransitions.WithLabelValues(string(from), "overdue").Inc()
	s.publishEvent(ctx, model.EventInvoiceOverdue, inv)
	return nil
}

func (s *Service) sendOverdueReminder(ctx context.Context, inv *model.Invoice, orgs map[uuid.UUID]*model.Organization) error {
	if inv.ClientEmail == nil || *inv.ClientEmail == "" {
		return nil
	}
	org, ok := orgs[inv.OrganizationID]
	if !ok {
		var err error
		org, err = s.orgRepo.Get(ctx, inv.OrganizationID)
		if err != nil {
			return fmt.Errorf("load organization: %w", err)
		}
		orgs[inv.OrganizationID] = org
	}
	return s.email.SendReminder(ctx, *inv.ClientEmail, org, inv, s.payURL(inv))
}
