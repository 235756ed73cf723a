// Package metrics collects and exposes Prometheus metrics for the editorial API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is used by the HTTP layer and services
type Recorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
	RecordTransition(action string, err error)
	RecordModuleMutation(operation string, err error)
	RecordCache(namespace string, hit bool)
	RecordPublishDue(published int)
}

// Collector is the Prometheus implementation of Recorder
type Collector struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	mutations    *prometheus.CounterVec
	cache        *prometheus.CounterVec
	duePublished prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curation_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curation_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curation_pipeline_transitions_total",
			Help: "Editorial pipeline actions by outcome",
		}, []string{"action", "result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curation_module_mutations_total",
			Help: "Curated module mutations by outcome",
		}, []string{"operation", "result"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curation_cache_lookups_total",
			Help: "Public read cache lookups by namespace and result",
		}, []string{"namespace", "result"}),
		duePublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "curation_publish_due_published_total",
			Help: "Scheduled articles promoted to published",
		}),
	}

	reg.MustRegister(c.requests, c.latency, c.transitions, c.mutations, c.cache, c.duePublished)
	return c
}

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordTransition(action string, err error) {
	c.transitions.WithLabelValues(action, result(err)).Inc()
}

func (c *Collector) RecordModuleMutation(operation string, err error) {
	c.mutations.WithLabelValues(operation, result(err)).Inc()
}

func (c *Collector) RecordCache(namespace string, hit bool) {
	r := "miss"
	if hit {
		r = "hit"
	}
	c.cache.WithLabelValues(namespace, r).Inc()
}

func (c *Collector) RecordPublishDue(published int) {
	c.duePublished.Add(float64(published))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordTransition(string, error)                   {}
func (Nop) RecordModuleMutation(string, error)               {}
func (Nop) RecordCache(string, bool)                         {}
func (Nop) RecordPublishDue(int)                             {}

// Handler returns the scrape handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
