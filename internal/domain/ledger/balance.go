package ledger

import (
	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BatchBalance is the derived balance of one batch
type BatchBalance struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	QtyReceived decimal.Decimal `json:"qty_received"`
	QtyUsed     decimal.Decimal `json:"qty_used"`
}

// Available returns qty_received - qty_used
func (b BatchBalance) Available() decimal.Decimal {
	return b.QtyReceived.Sub(b.QtyUsed)
}

// CheckCapacity is the single capacity rule used by FIFO allocation and
// manual movements alike: requested must fit in what the batch has left.
func (b BatchBalance) CheckCapacity(requested decimal.Decimal) error {
	available := b.Available()
	if requested.GreaterThan(available) {
		return shared.NewInsufficientStockError(requested.Sub(available)).
			WithDetail("batch_id", b.BatchID.String()).
			WithDetail("available", available)
	}
	return nil
}

// Take returns how much of remaining this batch can supply
func (b BatchBalance) Take(remaining decimal.Decimal) decimal.Decimal {
	available := b.Available()
	if !available.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(remaining, available)
}

// ValidateQuantity rejects zero and negative quantities
func ValidateQuantity(field string, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.NewInvalidArgumentError(field, field+" must be greater than zero")
	}
	return nil
}
