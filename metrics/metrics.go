// Package metrics exposes Prometheus metrics for timeline API calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeRateLimited = "rate_limited"
)

// Collector records call attempts, spacing waits and emitted tweets.
type Collector struct {
	registry    *prometheus.Registry
	calls       *prometheus.CounterVec
	waitSeconds *prometheus.HistogramVec
	tweets      *prometheus.CounterVec
}

// NewCollector constructs a collector on its own registry.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeline",
		Subsystem: "api",
		Name:      "calls_total",
		Help:      "Upstream call attempts by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	waitSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "timeline",
		Subsystem: "api",
		Name:      "wait_seconds",
		Help:      "Time spent in spacing, cooldown and quota waits before a call.",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300, 900},
	}, []string{"endpoint"})

	tweets := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeline",
		Name:      "tweets_emitted_total",
		Help:      "Tweets handed to the output by source.",
	}, []string{"source"})

	for _, c := range []prometheus.Collector{calls, waitSeconds, tweets} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:    registry,
		calls:       calls,
		waitSeconds: waitSeconds,
		tweets:      tweets,
	}, nil
}

// Hook matches the client's MetricsHook.
func (c *Collector) Hook(endpoint string, success, rateLimited bool) {
	outcome := OutcomeFailure
	switch {
	case success:
		outcome = OutcomeSuccess
	case rateLimited:
		outcome = OutcomeRateLimited
	}
	c.calls.WithLabelValues(endpoint, outcome).Inc()
}

// WaitHook matches the client's WaitHook.
func (c *Collector) WaitHook(endpoint string, waited time.Duration) {
	c.waitSeconds.WithLabelValues(endpoint).Observe(waited.Seconds())
}

// RecordTweet counts one emitted tweet.
func (c *Collector) RecordTweet(source string) {
	c.tweets.WithLabelValues(source).Inc()
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
