package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status_code"},
	)

	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

var (
	ReservationAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_attempts_total",
			Help: "Total number of reservation attempts",
		},
	)

	ReservationSuccessTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_success_total",
			Help: "Total number of successful reservations",
		},
	)

	ReservationFailureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_failure_total",
			Help: "Total number of rejected reservation attempts",
		},
		[]string{"reason"},
	)

	SaleRemainingStock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sale_remaining_stock",
			Help: "Remaining stock per sale as last observed",
		},
		[]string{"sale_id"},
	)

	SalesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sales_created_total",
			Help: "Total number of sales created",
		},
	)

	SalesSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sales_swept_total",
			Help: "Total number of expired sales removed by the sweeper",
		},
	)

	InvariantViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_invariant_violations_total",
			Help: "Counter observed negative or marker duplicated; indicates an atomicity bug",
		},
	)
)

var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	RedisCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Duration of Redis commands in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"command"},
	)
)

func TimeDBQuery(queryType, table string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		DBQueryDuration.WithLabelValues(queryType, table).Observe(duration)
	}
}

func RecordReservationAttempt() {
	ReservationAttemptsTotal.Inc()
}

func RecordReservationSuccess() {
	ReservationSuccessTotal.Inc()
}

func RecordReservationFailure(reason string) {
	ReservationFailureTotal.WithLabelValues(reason).Inc()
}

func RecordInvariantViolation() {
	InvariantViolationsTotal.Inc()
}

func UpdateRemainingStock(saleID string, remaining int) {
	SaleRemainingStock.WithLabelValues(saleID).Set(float64(remaining))
}

func ForgetSale(saleID string) {
	SaleRemainingStock.DeleteLabelValues(saleID)
}
