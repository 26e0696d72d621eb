package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	return sums
}

func TestOTelMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewOTelMetrics(provider)
	require.NoError(t, err)

	m.RecordAuthOutcome("login", "success")
	m.RecordAuthOutcome("gate", "revoked")
	m.RecordRevocation("redis")
	m.RecordStorageOperation("patient", "delete", time.Now(), errors.New("in use"))

	sums := collectSums(t, reader)
	assert.Equal(t, int64(2), sums["carebase.auth.outcomes"])
	assert.Equal(t, int64(1), sums["carebase.auth.revocations"])
	assert.Equal(t, int64(1), sums["carebase.storage.operations"])
}

func TestNewOTelMetrics_GlobalProvider(t *testing.T) {
	m, err := NewOTelMetrics(nil)
	require.NoError(t, err)

	// The global no-op provider accepts recordings silently
	assert.NotPanics(t, func() {
		m.RecordAuthOutcome("logout", "success")
	})
}
