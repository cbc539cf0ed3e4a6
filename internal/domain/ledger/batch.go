package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Batch is one traceable physical receipt of a material.
//
// A batch has no status column. Whether it still has capacity is derived from
// the movement ledger: available = QtyReceived - sum(movements).
type Batch struct {
	shared.BaseEntity
	MaterialID  uuid.UUID
	BatchNo     string
	SupplierID  *uuid.UUID
	QtyReceived decimal.Decimal
	ReceivedAt  *time.Time
	Location    string
	CertRef     string
}

// Column widths of the batch attributes.
const (
	MaxBatchNoLen  = 64
	MaxLocationLen = 128
	MaxCertRefLen  = 128
)

// NewBatchParams carries the receipt data of a new batch
type NewBatchParams struct {
	MaterialID  uuid.UUID
	BatchNo     string
	SupplierID  *uuid.UUID
	QtyReceived decimal.Decimal
	ReceivedAt  *time.Time
	Location    string
	CertRef     string
}

// NewBatch creates a batch from a receipt
func NewBatch(p NewBatchParams) (*Batch, error) {
	if p.MaterialID == uuid.Nil {
		return nil, shared.NewInvalidArgumentError("material", "material is required")
	}
	batchNo := strings.TrimSpace(p.BatchNo)
	if batchNo == "" {
		return nil, shared.NewInvalidArgumentError("batch_no", "batch number is required")
	}
	if err := checkLength("batch_no", batchNo, MaxBatchNoLen); err != nil {
		return nil, err
	}
	if err := ValidateQuantity("qty_received", p.QtyReceived); err != nil {
		return nil, err
	}
	location := strings.TrimSpace(p.Location)
	if err := checkLength("location", location, MaxLocationLen); err != nil {
		return nil, err
	}
	certRef := strings.TrimSpace(p.CertRef)
	if err := checkLength("cert_ref", certRef, MaxCertRefLen); err != nil {
		return nil, err
	}
	if p.SupplierID != nil && *p.SupplierID == uuid.Nil {
		p.SupplierID = nil
	}
	return &Batch{
		BaseEntity:  shared.NewBaseEntity(),
		MaterialID:  p.MaterialID,
		BatchNo:     batchNo,
		SupplierID:  p.SupplierID,
		QtyReceived: p.QtyReceived,
		ReceivedAt:  p.ReceivedAt,
		Location:    location,
		CertRef:     certRef,
	}, nil
}

// Relabel changes the storage location and certificate reference. Nil
// arguments leave the attribute unchanged.
func (b *Batch) Relabel(location, certRef *string) error {
	if location != nil {
		v := strings.TrimSpace(*location)
		if err := checkLength("location", v, MaxLocationLen); err != nil {
			return err
		}
		b.Location = v
	}
	if certRef != nil {
		v := strings.TrimSpace(*certRef)
		if err := checkLength("cert_ref", v, MaxCertRefLen); err != nil {
			return err
		}
		b.CertRef = v
	}
	return nil
}

func checkLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return shared.NewInvalidArgumentError(field, fmt.Sprintf("%s must be at most %d characters", field, limit))
	}
	return nil
}

// Resize corrects the received quantity. The new quantity may not drop below
// what the ledger has already consumed from the batch.
func (b *Batch) Resize(qty, consumed decimal.Decimal) error {
	if err := ValidateQuantity("qty_received", qty); err != nil {
		return err
	}
	if qty.LessThan(consumed) {
		return shared.NewConflictError("qty_received cannot drop below the consumed quantity").
			WithDetail("consumed", consumed).
			WithDetail("requested", qty)
	}
	b.QtyReceived = qty
	b.Touch()
	return nil
}

// EnsureDeletable rejects deletion while movements reference the batch
func (b *Batch) EnsureDeletable(movementCount int64) error {
	if movementCount > 0 {
		return shared.NewConflictError("batch has ledger movements and cannot be deleted").
			WithDetail("movements", movementCount)
	}
	return nil
}

// Balance builds the derived balance of the batch for a consumed total
func (b *Batch) Balance(used decimal.Decimal) BatchBalance {
	return BatchBalance{BatchID: b.ID, QtyReceived: b.QtyReceived, QtyUsed: used}
}
