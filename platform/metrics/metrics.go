// Package metrics holds the Prometheus collectors exported at /metrics.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Lead engine metrics
	LeadsCreated         *prometheus.CounterVec
	LeadsAssigned        *prometheus.CounterVec
	LeadsDistributed     prometheus.Counter
	ImportRows           *prometheus.CounterVec
	Dispositions         *prometheus.CounterVec
	DuplicateCacheLookup *prometheus.CounterVec

	// Maintenance metrics
	CounterDriftRepaired prometheus.Counter
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		LeadsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_created_total",
				Help: "Leads created, by intake source",
			},
			[]string{"source"},
		),
		LeadsAssigned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_assigned_total",
				Help: "Leads assigned, by assignment target",
			},
			[]string{"target"},
		),
		LeadsDistributed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pool_leads_distributed_total",
			Help: "Pooled leads handed to agents",
		}),
		ImportRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_import_rows_total",
				Help: "Bulk import rows, by outcome",
			},
			[]string{"outcome"},
		),
		Dispositions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_dispositions_total",
				Help: "Disposition updates, by resolved state",
			},
			[]string{"state"},
		),
		DuplicateCacheLookup: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_duplicate_cache_lookups_total",
				Help: "Duplicate pre-check cache lookups, by result",
			},
			[]string{"result"},
		),
		CounterDriftRepaired: factory.NewCounter(prometheus.CounterOpts{
			Name: "campaign_lead_count_drift_repaired_total",
			Help: "Campaign lead counters corrected by reconciliation",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
