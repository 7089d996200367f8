package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, the cache and the
// defense scheduler.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	dbQueryDuration *prometheus.HistogramVec

	schedulerRuns       *prometheus.CounterVec
	schedulerDuration   prometheus.Observer
	committeesAssigned  prometheus.Counter
	defensesScheduled   prometheus.Counter
	exportJobsCompleted *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	schedulerRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "defense_scheduler_runs_total",
		Help: "Defense scheduler runs by outcome",
	}, []string{"outcome"})

	schedulerDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "defense_scheduler_run_duration_seconds",
		Help:    "Wall time of a defense scheduler run including persistence",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	committeesAssigned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "defense_committees_assigned_total",
		Help: "Projects that gained at least one committee member",
	})

	defensesScheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "defense_defenses_scheduled_total",
		Help: "Projects that gained a defense slot",
	})

	exportJobsCompleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "defense_export_jobs_total",
		Help: "Finished defense schedule export jobs by format and status",
	}, []string{"format", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, dbQueryDuration,
		schedulerRuns, schedulerDuration, committeesAssigned, defensesScheduled, exportJobsCompleted, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLookups:        cacheLookups,
		cacheLatency:        cacheLatency,
		dbQueryDuration:     dbQueryDuration,
		schedulerRuns:       schedulerRuns,
		schedulerDuration:   schedulerDuration,
		committeesAssigned:  committeesAssigned,
		defensesScheduled:   defensesScheduled,
		exportJobsCompleted: exportJobsCompleted,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveSchedulerRun records one scheduler run. Preview runs are not recorded.
func (m *MetricsService) ObserveSchedulerRun(outcome string, committeesAssigned, defensesScheduled int, duration time.Duration) {
	if m == nil {
		return
	}
	m.schedulerRuns.WithLabelValues(outcome).Inc()
	m.schedulerDuration.Observe(duration.Seconds())
	m.committeesAssigned.Add(float64(committeesAssigned))
	m.defensesScheduled.Add(float64(defensesScheduled))
}

// ObserveExportJob records a finished or failed export job.
func (m *MetricsService) ObserveExportJob(format, status string) {
	if m == nil {
		return
	}
	m.exportJobsCompleted.WithLabelValues(format, status).Inc()
}
