// Package telemetry exposes the reporter's own behaviour as Prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Attempt is the subset of a resolved attempt the exporter records.
type Attempt struct {
	Outcome   string
	Failed    bool
	Latency   time.Duration
	StartedAt time.Time
	NextDelay time.Duration
	CPU       float64
	RAM       float64
}

// PrometheusExporter records report attempts in a private registry.
type PrometheusExporter struct {
	registry    *prometheus.Registry
	attempts    *prometheus.CounterVec
	latency     prometheus.Histogram
	lastSuccess prometheus.Gauge
	nextDelay   prometheus.Gauge
	load        *prometheus.GaugeVec
}

// NewPrometheusExporter initializes metrics collectors labelled with the
// reporter identity.
func NewPrometheusExporter(serviceID, nodeID, replicaID string) *PrometheusExporter {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{
		"service_id": serviceID,
		"node_id":    nodeID,
		"replica_id": replicaID,
	}

	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "statusreporter_attempts_total",
		Help:        "Report attempts by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "statusreporter_attempt_duration_seconds",
		Help:        "Time from attempt start to resolution",
		ConstLabels: constLabels,
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	})

	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "statusreporter_last_success_timestamp_seconds",
		Help:        "Unix time of the last successful attempt",
		ConstLabels: constLabels,
	})

	nextDelay := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "statusreporter_next_delay_seconds",
		Help:        "Delay before the next scheduled attempt",
		ConstLabels: constLabels,
	})

	load := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "statusreporter_reported_load_ratio",
		Help:        "Load ratio sent with the last attempt",
		ConstLabels: constLabels,
	}, []string{"resource"})

	reg.MustRegister(attempts, latency, lastSuccess, nextDelay, load)

	return &PrometheusExporter{
		registry:    reg,
		attempts:    attempts,
		latency:     latency,
		lastSuccess: lastSuccess,
		nextDelay:   nextDelay,
		load:        load,
	}
}

// Handler returns the HTTP handler for /metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Observe records one resolved attempt.
func (p *PrometheusExporter) Observe(a Attempt) {
	p.attempts.WithLabelValues(a.Outcome).Inc()
	p.latency.Observe(a.Latency.Seconds())
	p.nextDelay.Set(a.NextDelay.Seconds())
	p.load.WithLabelValues("cpu").Set(a.CPU)
	p.load.WithLabelValues("ram").Set(a.RAM)

	if !a.Failed {
		p.lastSuccess.Set(float64(a.StartedAt.Add(a.Latency).Unix()))
	}
}
