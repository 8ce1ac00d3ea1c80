// Package metrics collects and exposes Prometheus metrics for the
// HTTP surface and the link store.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records the application's metrics.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	linksCreated    prometheus.Counter
	linksDeleted    prometheus.Counter
	usersRegistered prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tinylinks_http_requests_total",
			Help: "HTTP responses by method and status code.",
		}, []string{"method", "status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tinylinks_http_request_duration_seconds",
			Help:    "HTTP request handling latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		linksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinylinks_links_created_total",
			Help: "Short links created since process start.",
		}),
		linksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinylinks_links_deleted_total",
			Help: "Short links deleted since process start.",
		}),
		usersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinylinks_users_registered_total",
			Help: "Accounts registered since process start.",
		}),
	}

	reg.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.linksCreated,
		c.linksDeleted,
		c.usersRegistered,
	)

	return c
}

// RecordRequest records one handled HTTP request.
func (c *Collector) RecordRequest(method string, statusCode int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.requestDuration.Observe(duration.Seconds())
}

// RecordLinkCreated counts a successful link creation.
func (c *Collector) RecordLinkCreated() {
	c.linksCreated.Inc()
}

// RecordLinkDeleted counts a successful link deletion.
func (c *Collector) RecordLinkDeleted() {
	c.linksDeleted.Inc()
}

// RecordUserRegistered counts a successful registration.
func (c *Collector) RecordUserRegistered() {
	c.usersRegistered.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// Middleware records request count and latency for every request.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		c.RecordRequest(r.Method, rec.statusCode, time.Since(start))
	})
}

// Handler returns the HTTP handler serving the scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
