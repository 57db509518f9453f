package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Payment metrics
	PaymentIntentsCreated *prometheus.CounterVec
	PaymentsRecorded      *prometheus.CounterVec
	PlatformFeesCents     prometheus.Counter

	// Invoice lifecycle metrics
	InvoiceTransitions *prometheus.CounterVec
	OverdueSweepTotal  prometheus.Counter
	OverdueSweepErrors prometheus.Counter

	// Outbox metrics
	OutboxEventsProcessed prometheus.Counter
	OutboxEventsFailed    prometheus.Counter

	// Email metrics
	EmailsSent   *prometheus.CounterVec
	EmailsFailed *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PaymentIntentsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intents_created_total",
			Help:      "Total number of Stripe payment intents created",
		}, []string{"status"}),
		PaymentsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Total number of payments recorded from webhook events",
		}, []string{"status"}),
		PlatformFeesCents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_fees_cents_total",
			Help:      "Cumulative platform fees collected, in cents",
		}),
		InvoiceTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_status_transitions_total",
			Help:      "Total number of invoice status transitions",
		}, []string{"from", "to"}),
		OverdueSweepTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overdue_sweep_invoices_total",
			Help:      "Total number of invoices flipped to overdue by the sweep",
		}),
		OverdueSweepErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overdue_sweep_errors_total",
			Help:      "Total number of per-invoice errors during overdue sweeps",
		}),
		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		EmailsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Total number of emails sent",
		}, []string{"template"}),
		EmailsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Total number of email send failures",
		}, []string{"template"}),
	}
}
