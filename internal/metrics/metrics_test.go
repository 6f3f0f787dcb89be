package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordsStoreOperations(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordStoreOperation("lookup_by_username", OutcomeSuccess, 5*time.Millisecond)
	m.RecordStoreOperation("lookup_by_username", OutcomeSuccess, 7*time.Millisecond)
	m.RecordStoreOperation("lookup_by_username", OutcomeError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("lookup_by_username", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("lookup_by_username", OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StoreOperationDuration))
}

func TestMetricsRecordsValidations(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCredentialValidation("valid")
	m.RecordCredentialValidation("invalid")
	m.RecordCredentialValidation("invalid")
	m.RecordConfigurationValidation(true)
	m.RecordConfigurationValidation(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CredentialValidationsTotal.WithLabelValues("valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CredentialValidationsTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigurationValidationTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigurationValidationTotal.WithLabelValues(OutcomeError)))
}

func TestInitDisabledReturnsNoop(t *testing.T) {
	recorder := Init(false)
	_, ok := recorder.(*NoopMetrics)
	assert.True(t, ok)
	recorder.RecordStoreOperation("count_users", OutcomeSuccess, time.Second)
}
