package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BillsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bills_created_total",
			Help: "Bills created, by payment mode",
		},
		[]string{"payment_mode"},
	)

	InsufficientStockTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bills_rejected_insufficient_stock_total",
			Help: "Bill creations rejected for insufficient stock",
		},
	)

	UdhaarPaymentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "udhaar_payments_total",
			Help: "Customer-level udhaar payments applied",
		},
	)
)
