package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the sentinel's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	PassesTotal        prometheus.Counter
	PassDuration       prometheus.Histogram
	ServiceHealthScore *prometheus.GaugeVec
	RestartAttempts    *prometheus.CounterVec
	AlertsTotal        *prometheus.CounterVec
	CertDaysRemaining  *prometheus.GaugeVec
}

// New creates and registers all sentinel collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		PassesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_passes_total",
			Help: "Completed monitoring passes over the fleet.",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_pass_duration_seconds",
			Help:    "Wall time of one full monitoring pass.",
			Buckets: prometheus.DefBuckets,
		}),
		ServiceHealthScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_service_health_score",
			Help: "Latest composite health score (0-100) per service.",
		}, []string{"service"}),
		RestartAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_restart_attempts_total",
			Help: "Automatic restart attempts per service and outcome.",
		}, []string{"service", "outcome"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_total",
			Help: "Alerts emitted per service.",
		}, []string{"service"}),
		CertDaysRemaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_certificate_days_remaining",
			Help: "Days until the monitored certificate expires.",
		}, []string{"domain"}),
	}

	registry.MustRegister(
		m.PassesTotal,
		m.PassDuration,
		m.ServiceHealthScore,
		m.RestartAttempts,
		m.AlertsTotal,
		m.CertDaysRemaining,
	)

	return m
}

// Registry exposes the underlying registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
