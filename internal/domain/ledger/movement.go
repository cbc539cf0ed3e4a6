package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Movement is one ledger entry: quantity taken from a batch by a production lot.
// Deleting a movement returns its quantity to the batch.
type Movement struct {
	shared.BaseEntity
	LotID      uuid.UUID
	BatchID    uuid.UUID
	MaterialID uuid.UUID // denormalized from the batch
	Quantity   decimal.Decimal
	MovedAt    time.Time
	Actor      string
	Note       string
}

// NewMovement creates a ledger entry against batch for lotID
func NewMovement(lotID uuid.UUID, batch *Batch, qty decimal.Decimal, actor, note string) (*Movement, error) {
	if lotID == uuid.Nil {
		return nil, shared.NewInvalidArgumentError("lot_id", "lot is required")
	}
	if batch == nil {
		return nil, shared.NewInvalidArgumentError("batch_id", "batch is required")
	}
	if err := ValidateQuantity("qty", qty); err != nil {
		return nil, err
	}
	base := shared.NewBaseEntity()
	return &Movement{
		BaseEntity: base,
		LotID:      lotID,
		BatchID:    batch.ID,
		MaterialID: batch.MaterialID,
		Quantity:   qty,
		MovedAt:    base.CreatedAt,
		Actor:      strings.TrimSpace(actor),
		Note:       strings.TrimSpace(note),
	}, nil
}

// ChangeQuantity applies a controlled quantity adjustment. The caller must
// have checked capacity with the batch row locked.
func (m *Movement) ChangeQuantity(qty decimal.Decimal) error {
	if err := ValidateQuantity("qty", qty); err != nil {
		return err
	}
	m.Quantity = qty
	m.Touch()
	return nil
}

// Delta returns how much the usage of the batch grows if the movement is
// changed to qty. Negative values mean material is returned.
func (m *Movement) Delta(qty decimal.Decimal) decimal.Decimal {
	return qty.Sub(m.Quantity)
}
