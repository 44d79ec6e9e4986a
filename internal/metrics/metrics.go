package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream API metrics
var (
	// UpstreamRequestsTotal tracks every request sent to the upstream API
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openaq_requests_total",
			Help: "Total number of requests sent to the OpenAQ API",
		},
		[]string{"endpoint", "status"},
	)

	// UpstreamRequestDuration tracks the latency of upstream requests
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openaq_request_duration_seconds",
			Help:    "Duration of OpenAQ API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

// Pipeline metrics
var (
	// PipelineFetchTotal counts fetch-and-clean runs by outcome
	PipelineFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_fetch_total",
			Help: "Total number of fetch-and-clean runs by outcome",
		},
		[]string{"outcome"},
	)

	// CacheLookupsTotal counts dashboard cache lookups
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of city cache lookups by result",
		},
		[]string{"result"},
	)

	// AppStartTime records when the application started
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "air_quality_monitor_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

// Pipeline outcomes
const (
	OutcomeData          = "data"
	OutcomeEmpty         = "empty"
	OutcomeConfigError   = "config_error"
	OutcomeUpstreamError = "upstream_error"
)

func init() {
	AppStartTime.SetToCurrentTime()
}

// RecordUpstreamRequest records one upstream request. status is the HTTP
// status code, or 0 for transport failures.
func RecordUpstreamRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = statusLabel(status)
	}
	UpstreamRequestsTotal.WithLabelValues(endpoint, label).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordPipelineOutcome records the outcome of one fetch-and-clean run
func RecordPipelineOutcome(outcome string) {
	PipelineFetchTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status == 422:
		return "422"
	case status == 429:
		return "429"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
