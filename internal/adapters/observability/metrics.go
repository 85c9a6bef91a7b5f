package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ota", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ota", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	SourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ota", Name: "source_fetches_total", Help: "Per-source fetch attempts."},
		[]string{"source", "status"}, // status: success|partial|failed
	)
	FetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ota", Name: "source_fetch_duration_seconds",
			Help:    "Per-source fetch duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ota", Name: "pipeline_stage_duration_seconds",
			Help:    "Pipeline stage duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage", "status"}, // status: ok|error
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ota", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, SourceFetches, FetchLatency, StageDuration, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveFetch records one source fetch attempt and its duration.
func ObserveFetch(source, status string, dur time.Duration) {
	SourceFetches.WithLabelValues(source, status).Inc()
	FetchLatency.WithLabelValues(source).Observe(dur.Seconds())
}

// ObserveStage is the structured completion event every pipeline stage
// emits; the log line beside it carries the same fields.
func ObserveStage(stage string, ok bool, dur time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	StageDuration.WithLabelValues(stage, status).Observe(dur.Seconds())
	log.Debug().Str("stage", stage).Str("status", status).Dur("duration", dur).Msg("pipeline_stage")
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}
