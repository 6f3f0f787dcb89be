package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sqldirectory"

// Outcome labels shared by the recorders.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder captures store and credential activity for the directory adapter.
type Recorder interface {
	RecordStoreOperation(operation, outcome string, duration time.Duration)
	RecordCredentialValidation(result string)
	RecordConfigurationValidation(success bool)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds the Prometheus collectors for the directory adapter.
type Metrics struct {
	StoreOperationsTotal         *prometheus.CounterVec
	StoreOperationDuration       *prometheus.HistogramVec
	CredentialValidationsTotal   *prometheus.CounterVec
	ConfigurationValidationTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns the process-wide Prometheus recorder when enabled, or a no-op recorder.
// Collectors are registered with the default registry at most once.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewMetrics creates the collectors and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of backing store operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Backing store operation latency including connection setup",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CredentialValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credential_validations_total",
				Help:      "Total number of credential validations by result",
			},
			[]string{"result"},
		),
		ConfigurationValidationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "configuration_validations_total",
				Help:      "Total number of provider configuration validations by result",
			},
			[]string{"result"},
		),
	}

	registerer.MustRegister(
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.CredentialValidationsTotal,
		m.ConfigurationValidationTotal,
	)
	return m
}

// RecordStoreOperation counts one store operation and observes its latency.
func (m *Metrics) RecordStoreOperation(operation, outcome string, duration time.Duration) {
	m.StoreOperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCredentialValidation counts a credential check by result ("valid", "invalid", "unsupported", "error").
func (m *Metrics) RecordCredentialValidation(result string) {
	m.CredentialValidationsTotal.WithLabelValues(result).Inc()
}

// RecordConfigurationValidation counts a configuration validation attempt.
func (m *Metrics) RecordConfigurationValidation(success bool) {
	result := OutcomeSuccess
	if !success {
		result = OutcomeError
	}
	m.ConfigurationValidationTotal.WithLabelValues(result).Inc()
}
