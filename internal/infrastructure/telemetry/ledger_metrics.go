package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// Allocation outcomes recorded on ledger_allocation_total.
const (
	AllocationOutcomeSuccess      = "success"
	AllocationOutcomeShortage     = "insufficient_stock"
	AllocationOutcomeLockConflict = "lock_conflict"
	AllocationOutcomeRejected     = "rejected"
)

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = errors.New("ledger metrics: meter cannot be nil")

// LedgerMetrics records allocation and ledger health metrics.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	allocationTotal     metric.Int64Counter
	allocationDuration  metric.Float64Histogram
	allocatedQuantity   metric.Float64Counter
	batchesPerAlloc     metric.Float64Histogram
	shortageQuantity    metric.Float64Counter
	lockConflictTotal   metric.Int64Counter
	auditViolationGauge metric.Int64Gauge
}

// NewLedgerMetrics creates the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	in := NewInstruments(meter)
	m := &LedgerMetrics{
		allocationTotal: in.Counter("ledger_allocation_total",
			"FIFO allocation calls by outcome", "{calls}"),
		allocationDuration: in.Histogram("ledger_allocation_duration_seconds",
			"FIFO allocation latency including lock waits", "s", AllocationDurationBuckets),
		allocatedQuantity: in.QuantityCounter("ledger_allocated_quantity_total",
			"Quantity committed by FIFO allocations", "{units}"),
		batchesPerAlloc: in.Histogram("ledger_allocation_batches",
			"Number of batches touched by one allocation", "{batches}", []float64{1, 2, 3, 5, 8, 13, 21}),
		shortageQuantity: in.QuantityCounter("ledger_shortage_quantity_total",
			"Quantity requested beyond available stock", "{units}"),
		lockConflictTotal: in.Counter("ledger_lock_conflict_total",
			"Lock timeouts and deadlocks that rolled back a ledger write", "{conflicts}"),
		auditViolationGauge: in.Gauge("ledger_audit_violations",
			"Batches whose usage is outside [0, qty_received] at the last audit", "{batches}"),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAllocation records one FIFO allocation call.
func (m *LedgerMetrics) RecordAllocation(ctx context.Context, outcome string, qty decimal.Decimal, batches int, elapsed time.Duration) {
	if m == nil {
		return
	}
	byOutcome := metric.WithAttributes(AttrOutcome.String(outcome))
	m.allocationTotal.Add(ctx, 1, byOutcome)
	m.allocationDuration.Record(ctx, elapsed.Seconds(), byOutcome)
	if outcome == AllocationOutcomeSuccess {
		m.allocatedQuantity.Add(ctx, qty.InexactFloat64())
		m.batchesPerAlloc.Record(ctx, float64(batches))
	}
}

// RecordShortage records the uncovered part of a request. path is "fifo" or "manual".
func (m *LedgerMetrics) RecordShortage(ctx context.Context, path string, shortage decimal.Decimal) {
	if m == nil || !shortage.IsPositive() {
		return
	}
	m.shortageQuantity.Add(ctx, shortage.InexactFloat64(), metric.WithAttributes(AttrPath.String(path)))
}

// RecordLockConflict counts a transient lock conflict for operation.
func (m *LedgerMetrics) RecordLockConflict(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.lockConflictTotal.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(operation)))
}

// RecordAuditViolations records the violation count of the last audit.
func (m *LedgerMetrics) RecordAuditViolations(ctx context.Context, count int64) {
	if m == nil {
		return
	}
	m.auditViolationGauge.Record(ctx, count)
}
