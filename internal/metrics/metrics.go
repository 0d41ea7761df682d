package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Web server metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itrans_http_requests_total",
		Help: "Total HTTP requests by route, method, and status code",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "itrans_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"route", "method"})

	RateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itrans_rate_limit_hits_total",
		Help: "Total rate limit rejections",
	})
)

// Conversion metrics.
var (
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itrans_conversions_total",
		Help: "Conversions by table, format, and result",
	}, []string{"table", "format", "result"})

	ConversionInputBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "itrans_conversion_input_bytes",
		Help:    "Size of conversion input text in bytes",
		Buckets: prometheus.ExponentialBuckets(16, 4, 8),
	})
)

// Table catalog metrics.
var (
	TableLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itrans_table_loads_total",
		Help: "Table load attempts by table and result",
	}, []string{"table", "result"})

	TableLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "itrans_table_load_duration_seconds",
		Help:    "Time to parse and validate a table document",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	})

	TablesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "itrans_tables_loaded",
		Help: "Number of tables currently installed in the catalog",
	})
)

// Worker metrics.
var (
	RefreshCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "itrans_worker_refresh_duration_seconds",
		Help:    "Duration of each worker refresh cycle",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
	})

	SourceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itrans_source_fetches_total",
		Help: "Remote table fetches by source and result",
	}, []string{"source", "result"})

	SourceFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "itrans_source_fetch_duration_seconds",
		Help:    "Remote table fetch duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"source"})
)

// Database pool metrics (gauges updated periodically).
var (
	DBPoolTotalConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "itrans_db_pool_total_conns",
		Help: "Total number of connections in the pool",
	})

	DBPoolIdleConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "itrans_db_pool_idle_conns",
		Help: "Number of idle connections in the pool",
	})

	DBPoolAcquiredConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "itrans_db_pool_acquired_conns",
		Help: "Number of acquired connections in the pool",
	})

	DBPoolMaxConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "itrans_db_pool_max_conns",
		Help: "Max connections configured for the pool",
	})
)
