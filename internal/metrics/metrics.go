// Package metrics exposes Prometheus collectors for the HTTP layer and the
// publishing pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	publishAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_publish_attempts_total",
			Help: "Publish attempts per platform and outcome.",
		},
		[]string{"platform", "outcome"},
	)

	publishLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broadcast_publish_duration_seconds",
			Help:    "Time spent in a single platform publish call.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"platform"},
	)

	postsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_posts_finished_total",
			Help: "Posts that reached a terminal status.",
		},
		[]string{"status"},
	)

	sweepPosts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_sweep_posts_total",
			Help: "Scheduled posts handled by the sweep, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, publishAttempts, publishLat, postsFinished, sweepPosts)
}

// HTTP instruments requests; the path label is the matched route pattern.
func HTTP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		httpReqs.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		httpLat.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

func ObservePublish(platform string, ok bool, elapsed time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "failed"
	}
	publishAttempts.WithLabelValues(platform, outcome).Inc()
	publishLat.WithLabelValues(platform).Observe(elapsed.Seconds())
}

func PostFinished(status string) {
	postsFinished.WithLabelValues(status).Inc()
}

// SweepResult records one post handled by the sweep: "processed", "failed" or "skipped".
func SweepResult(result string) {
	sweepPosts.WithLabelValues(result).Inc()
}
