package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks the number of outbound API calls to Reddit.
	RedditRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reddit_api_requests_total",
			Help: "Total number of Reddit API requests made (by endpoint and status).",
		},
		[]string{"endpoint", "status"},
	)

	// Measures duration of Ollama generate calls.
	OllamaRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ollama_request_duration_seconds",
			Help:    "Duration of Ollama generate requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms → ~200s
		},
		[]string{"model"},
	)

	// Tracks comments processed by analysis runs.
	CommentsAnalyzed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_comments_total",
			Help: "Total number of comments analyzed (by result).",
		},
		[]string{"result"}, // result = "ok" | "error" | "skipped"
	)

	// Gauges currently running analysis batches.
	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analysis_active_runs",
			Help: "Number of analysis runs currently executing.",
		},
	)

	// Tracks cache hits and misses for secrets / credentials.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadscope_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Tracks NATS publishes by subject and outcome.
	NATSMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published (by subject and status).",
		},
		[]string{"subject", "status"},
	)

	// Measures NATS publish latency.
	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Latency of NATS publishes in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Gauges the last successful snapshot time (seconds since epoch).
	LastSnapshotTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "threadscope_last_snapshot_timestamp",
			Help: "Timestamp (unix seconds) of the last successful subreddit snapshot.",
		},
		[]string{"subreddit"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// counters are not meant for duration tracking
	}
}

func IncRedditRequest(endpoint, status string) {
	RedditRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

func IncCommentAnalyzed(result string) {
	CommentsAnalyzed.WithLabelValues(result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncNATSMessage(subject, status string) {
	NATSMessagesTotal.WithLabelValues(subject, status).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastSnapshot(subreddit string, t time.Time) {
	LastSnapshotTimestamp.WithLabelValues(subreddit).Set(float64(t.Unix()))
}
