// Package metrics exposes the service counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docusurvey"

// Metrics owns its registry so tests can build isolated instances. All
// recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	SurveysCreated      prometheus.Counter
	SurveysDeleted      prometheus.Counter
	ResponsesSubmitted  *prometheus.CounterVec
	ResponsesOrphaned   prometheus.Counter
	ReportsExported     prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SurveysCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surveys_created_total",
			Help:      "Total number of surveys created",
		}),
		SurveysDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surveys_deleted_total",
			Help:      "Total number of surveys removed with their responses",
		}),
		ResponsesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_submitted_total",
			Help:      "Total number of stored responses by collection channel",
		}, []string{"source"}),
		ResponsesOrphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_orphaned_total",
			Help:      "Responses stored without being linked to their survey",
		}),
		ReportsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_exported_total",
			Help:      "Total number of PDF exports rendered",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.SurveysCreated,
		m.SurveysDeleted,
		m.ResponsesSubmitted,
		m.ResponsesOrphaned,
		m.ReportsExported,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) SurveyCreated() {
	if m != nil {
		m.SurveysCreated.Inc()
	}
}

func (m *Metrics) SurveyDeleted() {
	if m != nil {
		m.SurveysDeleted.Inc()
	}
}

func (m *Metrics) ResponseSubmitted(source string) {
	if m != nil {
		m.ResponsesSubmitted.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) ResponseOrphaned() {
	if m != nil {
		m.ResponsesOrphaned.Inc()
	}
}

func (m *Metrics) ReportExported() {
	if m != nil {
		m.ReportsExported.Inc()
	}
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
