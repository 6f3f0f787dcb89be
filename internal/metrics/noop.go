package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordStoreOperation(operation, outcome string, duration time.Duration) {}
func (n *NoopMetrics) RecordCredentialValidation(result string)                             {}
func (n *NoopMetrics) RecordConfigurationValidation(success bool)                           {}
