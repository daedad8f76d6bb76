package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics groups the HTTP, order and payment collectors.
type StorefrontMetrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	ordersCreated  *prometheus.CounterVec
	paymentOutcome *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront collectors on reg. A nil
// registerer yields a recorder whose methods are no-ops.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created by payment method.",
	}, []string{"payment_method"})
	paymentOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_outcomes_total",
		Help: "Payment attempt outcomes by provider.",
	}, []string{"provider", "outcome"})
	reg.MustRegister(httpRequests, httpDuration, ordersCreated, paymentOutcome)
	return &StorefrontMetrics{
		httpRequests:   httpRequests,
		httpDuration:   httpDuration,
		ordersCreated:  ordersCreated,
		paymentOutcome: paymentOutcome,
	}
}

// ObserveHTTP records one finished request.
func (m *StorefrontMetrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	route = normalizeLabel(route)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// OrderCreated counts a committed order.
func (m *StorefrontMetrics) OrderCreated(paymentMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// PaymentOutcome counts a terminal payment attempt state.
func (m *StorefrontMetrics) PaymentOutcome(provider, outcome string) {
	if m == nil || m.paymentOutcome == nil {
		return
	}
	m.paymentOutcome.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}
