// Package metrics exposes the prometheus metrics of the API: HTTP traffic, record mutations & cache efficiency.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/creche/core"
	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/storage/cache"
)

type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mutations       *prometheus.CounterVec
	mutationLatency *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	logins          *prometheus.CounterVec
}

var (
	_ record.Observer = (*Metrics)(nil) // interface compliance check
	_ cache.Observer  = (*Metrics)(nil)
)

// New registers the metrics on a dedicated registry, so that several instances can live side by side (tests).
func New(conf *core.Config) *Metrics {
	ns := conf.Metrics.Prefix
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "record_mutations_total",
			Help:      "Total number of record mutations by entity, operation & outcome",
		}, []string{"kind", "op", "outcome"}),
		mutationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "record_mutation_duration_seconds",
			Help:      "Duration of record mutations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "op"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "list_cache_lookups_total",
			Help:      "Total number of list cache lookups by entity & result",
		}, []string{"kind", "result"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "logins_total",
			Help:      "Total number of login attempts by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveMutation counts a record mutation. The outcome is the record.ErrorCode of err, or "ok".
func (m *Metrics) ObserveMutation(kind lifecycle.Kind, op string, err error, took time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = string(record.Classify(err))
	}
	m.mutations.WithLabelValues(kind.String(), op, outcome).Inc()
	m.mutationLatency.WithLabelValues(kind.String(), op).Observe(took.Seconds())
}

func (m *Metrics) ObserveCache(kind lifecycle.Kind, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind.String(), result).Inc()
}

func (m *Metrics) ObserveLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// Middleware tracks the count & duration of the requests, labelled with the route path.
// Errors are handed to the echo HTTPErrorHandler first, so that the recorded status is the one sent.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.requests.WithLabelValues(c.Request().Method, path, strconv.Itoa(c.Response().Status)).Inc()
			m.requestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
