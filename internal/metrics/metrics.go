package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FeedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusfeed_requests_total",
		Help: "Feed aggregation requests by effective mode",
	}, []string{"mode"})
	SourceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusfeed_source_errors_total",
		Help: "Source fetch failures swallowed during aggregation",
	}, []string{"source"})
	TotalFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexusfeed_total_failures_total",
		Help: "Aggregations where every source failed",
	})
	AggregateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexusfeed_aggregate_duration_seconds",
		Help:    "Feed aggregation duration seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(FeedRequests, SourceErrors, TotalFailures, AggregateDuration)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveAggregateDuration records one aggregation pass.
func ObserveAggregateDuration(start time.Time) {
	AggregateDuration.Observe(time.Since(start).Seconds())
}

// IncSourceError counts a swallowed fetch failure for a source.
func IncSourceError(source string) { SourceErrors.WithLabelValues(source).Inc() }
