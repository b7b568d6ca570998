// Package metrics holds the Prometheus collectors for the POS service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SalesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fintab",
		Name:      "sales_recorded_total",
		Help:      "Sales written by checkout, by payment method and status.",
	}, []string{"payment_method", "status"})

	SaleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fintab",
		Name:      "sale_failures_total",
		Help:      "Checkout confirmations that failed to record.",
	})

	ApprovalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fintab",
		Name:      "approval_transitions_total",
		Help:      "Approval workflow transitions, by kind and resulting status.",
	}, []string{"kind", "status"})

	LedgerPostings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fintab",
		Name:      "ledger_postings_total",
		Help:      "Rows written to the unified ledger, by type.",
	}, []string{"type"})

	Incidents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fintab",
		Name:      "incidents_total",
		Help:      "Recovered panics recorded in the incident log.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fintab",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "code"})
)

// Observe records the latency of one finished request.
func Observe(method, route string, code int, took time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	RequestDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(took.Seconds())
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
