package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OnHandFilter selects materials for the on-hand report
type OnHandFilter struct {
	shared.Filter
	MaterialID *uuid.UUID
}

// OnHandRow is the on-hand quantity of one material
type OnHandRow struct {
	MaterialID   uuid.UUID       `json:"material_id"`
	MaterialCode string          `json:"material_code"`
	MaterialName string          `json:"material_name"`
	Unit         string          `json:"unit"`
	TotalOnHand  decimal.Decimal `json:"total_on_hand"`
}

// BatchFilter selects batches for listing and for the batch ledger report
type BatchFilter struct {
	shared.Filter
	MaterialID   *uuid.UUID
	SupplierID   *uuid.UUID
	BatchNo      string
	Location     string
	ReceivedFrom *time.Time
	ReceivedTo   *time.Time
}

// BatchLedgerRow is one batch with its derived usage
type BatchLedgerRow struct {
	BatchID      uuid.UUID       `json:"batch_id"`
	BatchNo      string          `json:"batch_no"`
	MaterialID   uuid.UUID       `json:"material_id"`
	MaterialCode string          `json:"material_code"`
	SupplierCode string          `json:"supplier_code,omitempty"`
	ReceivedAt   *time.Time      `json:"received_at,omitempty"`
	QtyReceived  decimal.Decimal `json:"qty_received"`
	QtyUsed      decimal.Decimal `json:"qty_used"`
	QtyAvailable decimal.Decimal `json:"qty_available"`
	Location     string          `json:"location,omitempty"`
}

// MovementFilter selects ledger entries
type MovementFilter struct {
	shared.Filter
	LotID      *uuid.UUID
	BatchID    *uuid.UUID
	MaterialID *uuid.UUID
}

// InvariantViolation is a batch whose usage left [0, qty_received]
type InvariantViolation struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	BatchNo     string          `json:"batch_no"`
	MaterialID  uuid.UUID       `json:"material_id"`
	QtyReceived decimal.Decimal `json:"qty_received"`
	QtyUsed     decimal.Decimal `json:"qty_used"`
}

// AuditReport summarizes one invariant audit pass
type AuditReport struct {
	CheckedAt      time.Time            `json:"checked_at"`
	BatchesChecked int64                `json:"batches_checked"`
	Violations     []InvariantViolation `json:"violations"`
}

// Healthy reports whether the audit found no violation
func (r *AuditReport) Healthy() bool {
	return len(r.Violations) == 0
}
