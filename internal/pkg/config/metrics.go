package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics tracks configuration loading for one component. Fallback
// counters make silently degraded configuration visible: a worker running
// on defaults because of a typo in an env var shows up here.
type ConfigMetrics struct {
	LoadTimestamp         prometheus.Gauge
	ValidationErrorsTotal *prometheus.CounterVec
	FallbacksTotal        *prometheus.CounterVec
	FallbackActive        prometheus.Gauge
}

// NewConfigMetrics registers configuration metrics under the component's
// namespace, e.g. worker_config_fallbacks_total.
func NewConfigMetrics(component string) *ConfigMetrics {
	return &ConfigMetrics{
		LoadTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: component,
			Name:      "config_load_timestamp",
			Help:      "Unix timestamp of the last configuration load",
		}),
		ValidationErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: component,
			Name:      "config_validation_errors_total",
			Help:      "Configuration validation errors by field",
		}, []string{"field"}),
		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: component,
			Name:      "config_fallbacks_total",
			Help:      "Configuration fallbacks applied by field",
		}, []string{"field"}),
		FallbackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: component,
			Name:      "config_fallback_active",
			Help:      "1 while any configuration fallback is in effect",
		}),
	}
}

func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

func (m *ConfigMetrics) RecordFallback(field string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive flags whether any fallback is currently in effect.
func (m *ConfigMetrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}
