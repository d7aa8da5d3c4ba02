// Package metrics owns the Prometheus collectors of the service. Everything is
// registered on a private registry so tests can build as many instances as
// they like.
package metrics

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "climate_api"

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	StoreQueryDuration *prometheus.HistogramVec
	StoreFailures      *prometheus.CounterVec
	BreakerState       *prometheus.GaugeVec
}

// New builds the collectors. db may be nil; when set, its pool statistics are
// exported as well.
func New(db *sql.DB) *Metrics {
	httpLabels := []string{"method", "route", "status_class"}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			httpLabels,
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			httpLabels,
		),
		StoreQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_query_duration_seconds",
				Help:      "Record store call latencies",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		StoreFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_failures_total",
				Help:      "Record store calls that failed, including calls rejected by the open breaker",
			},
			[]string{"operation"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
			},
			[]string{"breaker"},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StoreQueryDuration,
		m.StoreFailures,
		m.BreakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if db != nil {
		m.registry.MustRegister(collectors.NewDBStatsCollector(db, "climate"))
	}
	return m
}

// Handler serves the exposition format for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	labels := prometheus.Labels{"method": method, "route": route, "status_class": statusClass(status)}
	m.HTTPRequestsTotal.With(labels).Inc()
	m.HTTPRequestDuration.With(labels).Observe(d.Seconds())
}

func (m *Metrics) ObserveQuery(op string, d time.Duration, err error) {
	m.StoreQueryDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil && !errors.Is(err, context.Canceled) {
		m.StoreFailures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= http.StatusInternalServerError:
		return "5xx"
	default:
		return "unknown"
	}
}
