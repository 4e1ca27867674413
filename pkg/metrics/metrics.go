package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Appointment outcomes recorded in AppointmentsTotal.
const (
	OutcomeCreated     = "created"
	OutcomeConflict    = "conflict"
	OutcomeRescheduled = "rescheduled"
	OutcomeCancelled   = "cancelled"
	OutcomeBusy        = "lock_busy"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	AppointmentsTotal    *prometheus.CounterVec
	ScheduleLockWait     prometheus.Histogram
	InvoicesIssuedTotal  *prometheus.CounterVec
	NotificationsTotal   *prometheus.CounterVec
	AttachmentsUploaded  prometheus.Counter
	MailCircuitOpenTotal prometheus.Counter

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

// NewCollector registers every collector on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewCollector(serviceName string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		AppointmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "appointments_total",
			Help:      "Appointment write attempts by outcome.",
		}, []string{"outcome"}),

		ScheduleLockWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for a veterinarian schedule lock.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
		}),

		InvoicesIssuedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "billing",
			Name:      "invoices_issued_total",
			Help:      "Invoices issued by source (appointment or records).",
		}, []string{"source"}),

		NotificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notifications",
			Name:      "deliveries_total",
			Help:      "Notification deliveries by channel and result.",
		}, []string{"channel", "result"}),

		AttachmentsUploaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "attachments_uploaded_total",
			Help:      "Medical record attachments stored.",
		}),

		MailCircuitOpenTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notifications",
			Name:      "mail_circuit_open_total",
			Help:      "Times the SMTP circuit breaker opened.",
		}),

		AuditEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
