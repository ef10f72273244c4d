package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicketsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_issued_total",
		Help: "Total number of tickets issued",
	})

	PurchaseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_purchase_failures_total",
		Help: "Rejected purchases by reason code",
	}, []string{"reason"})

	PurchaseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ticket_purchase_duration_seconds",
		Help:    "Time spent issuing one purchase batch, lock wait included",
		Buckets: prometheus.DefBuckets,
	})

	QRFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticket_qr_failures_total",
		Help: "QR renders or uploads that failed and left the ticket without an artifact",
	})

	TicketTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_status_transitions_total",
		Help: "Ticket status changes by target status",
	}, []string{"to"})

	PaymentConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Payment confirmations by outcome (issued, noop, failed)",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
