// Package telemetry exposes the process metrics over Prometheus.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TelemetryConfig configures the metrics provider.
type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// MetricsEnabled defaults to true when nil.
	MetricsEnabled *bool
	// RuntimeMetrics adds Go runtime and process collectors.
	RuntimeMetrics bool
}

func (c *TelemetryConfig) metricsOn() bool {
	return c.MetricsEnabled == nil || *c.MetricsEnabled
}

func (c *TelemetryConfig) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "medcalc"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

var defaultDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// Metrics holds every collector of the process. All methods are safe on a
// nil receiver so collaborators can run without telemetry.
type Metrics struct {
	cfg      TelemetryConfig
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	activeRequests prometheus.Gauge

	fhirRequests   *prometheus.CounterVec
	fhirDuration   *prometheus.HistogramVec
	breakerState   *prometheus.GaugeVec
	cacheLookups   *prometheus.CounterVec
	fieldsPopulate *prometheus.CounterVec
	auditEvents    *prometheus.CounterVec
	auditPending   prometheus.Gauge
	securityDecide *prometheus.CounterVec
	staleItems     prometheus.Gauge
}

// New creates the metrics on a private registry.
func New(cfg TelemetryConfig) *Metrics {
	cfg.applyDefaults()
	constLabels := prometheus.Labels{"service": cfg.ServiceName, "env": cfg.Environment}

	m := &Metrics{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "HTTP requests by method, route and status",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration",
			Buckets:     defaultDurationBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_active_requests",
			Help:        "In-flight HTTP requests",
			ConstLabels: constLabels,
		}),
		fhirRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fhir_requests_total",
			Help:        "FHIR server requests by resource type and outcome",
			ConstLabels: constLabels,
		}, []string{"resource_type", "outcome"}),
		fhirDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "fhir_request_duration_seconds",
			Help:        "FHIR server request duration",
			Buckets:     defaultDurationBuckets,
			ConstLabels: constLabels,
		}, []string{"resource_type"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "circuit_breaker_state",
			Help:        "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			ConstLabels: constLabels,
		}, []string{"name"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fhir_cache_lookups_total",
			Help:        "Observation cache lookups by layer and result",
			ConstLabels: constLabels,
		}, []string{"layer", "result"}),
		fieldsPopulate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "autopopulate_fields_total",
			Help:        "Auto-populated form fields by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		auditEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "audit_events_total",
			Help:        "Audit events created by type and outcome",
			ConstLabels: constLabels,
		}, []string{"type", "outcome"}),
		auditPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "audit_events_pending",
			Help:        "Audit events waiting for delivery",
			ConstLabels: constLabels,
		}),
		securityDecide: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "security_access_decisions_total",
			Help:        "Security label access decisions",
			ConstLabels: constLabels,
		}, []string{"decision", "confidentiality"}),
		staleItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "stale_observations",
			Help:        "Observations currently flagged as stale",
			ConstLabels: constLabels,
		}),
	}

	m.registry.MustRegister(
		m.httpRequests, m.httpDuration, m.activeRequests,
		m.fhirRequests, m.fhirDuration, m.breakerState,
		m.cacheLookups, m.fieldsPopulate,
		m.auditEvents, m.auditPending,
		m.securityDecide, m.staleItems,
	)
	if cfg.RuntimeMetrics {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveFHIRRequest(resourceType string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.fhirRequests.WithLabelValues(resourceType, outcome).Inc()
	m.fhirDuration.WithLabelValues(resourceType).Observe(d.Seconds())
}

// SetBreakerState records 0 closed, 1 half-open, 2 open.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// CacheLookup records a lookup against layer "memory" or "store".
func (m *Metrics) CacheLookup(layer string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(layer, result).Inc()
}

func (m *Metrics) FieldsPopulated(loaded, missing, failed int) {
	if m == nil {
		return
	}
	m.fieldsPopulate.WithLabelValues("loaded").Add(float64(loaded))
	m.fieldsPopulate.WithLabelValues("missing").Add(float64(missing))
	m.fieldsPopulate.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) AuditEvent(eventType string, outcome string) {
	if m == nil {
		return
	}
	m.auditEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) SetAuditPending(n int) {
	if m == nil {
		return
	}
	m.auditPending.Set(float64(n))
}

func (m *Metrics) SecurityDecision(decision, confidentiality string) {
	if m == nil {
		return
	}
	m.securityDecide.WithLabelValues(decision, confidentiality).Inc()
}

func (m *Metrics) SetStaleItems(n int) {
	if m == nil {
		return
	}
	m.staleItems.Set(float64(n))
}

// MetricsMiddleware returns an Echo middleware that records HTTP server metrics
// keyed by route pattern.
func (m *Metrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil || !m.cfg.metricsOn() {
				return next(c)
			}

			m.activeRequests.Inc()
			start := time.Now()
			err := next(c)
			m.activeRequests.Dec()

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// PrometheusHandler serves the registry in the Prometheus exposition format.
func (m *Metrics) PrometheusHandler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}
