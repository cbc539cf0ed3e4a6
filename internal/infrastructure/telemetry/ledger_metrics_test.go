package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mfgops/ledger/internal/infrastructure/telemetry"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestNewLedgerMetrics(t *testing.T) {
	t.Run("nil meter", func(t *testing.T) {
		m, err := telemetry.NewLedgerMetrics(nil)
		assert.Nil(t, m)
		assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	})

	t.Run("noop meter", func(t *testing.T) {
		m, err := telemetry.NewLedgerMetrics(noop.NewMeterProvider().Meter("test"))
		require.NoError(t, err)
		assert.NotNil(t, m)
	})
}

func TestLedgerMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.LedgerMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordAllocation(ctx, telemetry.AllocationOutcomeSuccess, decimal.NewFromInt(5), 2, time.Millisecond)
		m.RecordShortage(ctx, "fifo", decimal.NewFromInt(1))
		m.RecordLockConflict(ctx, "allocation")
		m.RecordAuditViolations(ctx, 3)
	})
}

func TestLedgerMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := telemetry.NewLedgerMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAllocation(ctx, telemetry.AllocationOutcomeSuccess, decimal.RequireFromString("12.5"), 2, 10*time.Millisecond)
	m.RecordAllocation(ctx, telemetry.AllocationOutcomeShortage, decimal.NewFromInt(40), 0, time.Millisecond)
	m.RecordShortage(ctx, "fifo", decimal.NewFromInt(7))
	m.RecordShortage(ctx, "manual", decimal.Zero)
	m.RecordLockConflict(ctx, "allocation")
	m.RecordAuditViolations(ctx, 2)

	data := collect(t, reader)

	total, ok := data["ledger_allocation_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, total.DataPoints, 2)

	allocated, ok := data["ledger_allocated_quantity_total"].(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, allocated.DataPoints, 1)
	assert.InDelta(t, 12.5, allocated.DataPoints[0].Value, 1e-9)

	shortage, ok := data["ledger_shortage_quantity_total"].(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, shortage.DataPoints, 1, "zero shortage is not recorded")
	assert.InDelta(t, 7.0, shortage.DataPoints[0].Value, 1e-9)

	conflicts, ok := data["ledger_lock_conflict_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, conflicts.DataPoints, 1)
	assert.Equal(t, int64(1), conflicts.DataPoints[0].Value)

	violations, ok := data["ledger_audit_violations"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, violations.DataPoints, 1)
	assert.Equal(t, int64(2), violations.DataPoints[0].Value)
}
