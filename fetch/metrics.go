package fetch

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the supply event scan
type Metrics struct {
	// Counters (cumulative values)
	BatchesFetched prometheus.Counter
	BatchFailures  prometheus.Counter
	LogsDecoded    prometheus.Counter
	DecodeFailures prometheus.Counter
	HeadersFetched prometheus.Counter
	CacheHits      prometheus.Counter

	// Histograms (distributions)
	BatchDuration prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics returns the process-wide scan metrics, registering them on
// first use
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			BatchesFetched: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "supplyscan",
				Subsystem: "fetch",
				Name:      "batches_fetched_total",
				Help:      "Total number of successfully queried block windows",
			}),
			BatchFailures: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "supplyscan",
				Subsystem: "fetch",
				Name:      "batch_failures_total",
				Help:      "Total number of failed block window queries",
			}),
			LogsDecoded: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "supplyscan",
				Subsystem: "fetch",
				Name:      "logs_decoded_total",
				Help:      "Total number of logs decoded into supply events",
			}),
			DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "supplyscan",
				Subsystem: "fetch",
				Name:      "decode_failures_total",
				Help:      "Total number of logs skipped due to decode errors",
			}),
			HeadersFetched: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "supplyscan",
				Subsystem: "fetch",
				Name:      "headers_fetched_total",
				Help:      "Total number of block headers fetched for timestamps",
			}),
			CacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "supplyscan",
				Subsystem: "fetch",
				Name:      "timestamp_cache_hits_total",
				Help:      "Total number of block timestamps served from cache",
			}),
			BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "supplyscan",
				Subsystem: "fetch",
				Name:      "batch_duration_seconds",
				Help:      "Block window query duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			}),
		}
	})
	return metrics
}
