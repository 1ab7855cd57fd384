// Package observability holds the Prometheus collectors the request path reports into.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	sourceResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_source_results_total",
			Help: "Product source queries by outcome.",
		},
		[]string{"source", "outcome"},
	)

	partialSearchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "search_partial_results_total",
			Help: "Searches answered with at least one failed source.",
		},
	)

	catalogStores = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_stores",
			Help: "Stores in the active catalog snapshot.",
		},
	)

	catalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Catalog reload attempts by outcome.",
		},
		[]string{"outcome"},
	)

	redisOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_op_total",
			Help: "Redis operations by op and outcome.",
		},
		[]string{"op", "outcome"},
	)

	redisOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_events_total",
			Help: "Search events by publish outcome.",
		},
		[]string{"outcome"},
	)

	kafkaConsumerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Kafka consumer errors by kind.",
		},
		[]string{"kind"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamLatencySeconds,
		sourceResultsTotal,
		partialSearchesTotal,
		catalogStores,
		catalogReloadsTotal,
		redisOpTotal,
		redisOpDurationSeconds,
		eventsTotal,
		kafkaConsumerErrorsTotal,
	}
}

// Init registers the collectors on reg. Registering twice on the same
// registry is a no-op.
func Init(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

// ObserveSourceResult records one source query; outcome is ok, error or timeout.
func ObserveSourceResult(source, outcome string, durationSeconds float64) {
	sourceResultsTotal.WithLabelValues(source, outcome).Inc()
	upstreamLatencySeconds.WithLabelValues("source:" + source).Observe(durationSeconds)
}

func IncPartialSearch() { partialSearchesTotal.Inc() }

func SetCatalogSize(n int) { catalogStores.Set(float64(n)) }

func ObserveCatalogReload(err error) {
	catalogReloadsTotal.WithLabelValues(outcome(err)).Inc()
}

func ObserveRedisOp(op string, err error, durationSeconds float64) {
	redisOpTotal.WithLabelValues(op, outcome(err)).Inc()
	redisOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func IncSearchEvent(outcome string) { eventsTotal.WithLabelValues(outcome).Inc() }

func IncKafkaConsumerError(kind string) { kafkaConsumerErrorsTotal.WithLabelValues(kind).Inc() }

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
