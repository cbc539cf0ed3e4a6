package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// quantityScale matches the decimal(18,4) columns. SQLite sums in floating
// point, so every aggregate is rounded back to this scale.
const quantityScale = 4

// GormBalanceReader derives balances by aggregating material_movements
type GormBalanceReader struct {
	db *gorm.DB
}

// NewGormBalanceReader creates a new GormBalanceReader
func NewGormBalanceReader(db *gorm.DB) *GormBalanceReader {
	return &GormBalanceReader{db: db}
}

// UsedByBatch sums movement quantities on a batch
func (r *GormBalanceReader) UsedByBatch(ctx context.Context, batchID uuid.UUID, excludeMovement *uuid.UUID) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Table("material_movements").
		Select("COALESCE(SUM(quantity), 0)").
		Where("batch_id = ?", batchID)
	if excludeMovement != nil {
		query = query.Where("id <> ?", *excludeMovement)
	}
	return scanQuantity(query)
}

// OnHand sums available quantity over every batch of the material
func (r *GormBalanceReader) OnHand(ctx context.Context, materialID uuid.UUID) (decimal.Decimal, error) {
	usage := r.db.Table("material_movements").
		Select("batch_id, SUM(quantity) AS used").
		Where("material_id = ?", materialID).
		Group("batch_id")

	query := r.db.WithContext(ctx).
		Table("material_batches AS b").
		Select("COALESCE(SUM(b.qty_received - COALESCE(u.used, 0)), 0)").
		Joins("LEFT JOIN (?) AS u ON u.batch_id = b.id", usage).
		Where("b.material_id = ?", materialID)
	return scanQuantity(query)
}

func scanQuantity(query *gorm.DB) (decimal.Decimal, error) {
	var v decimal.NullDecimal
	if err := query.Row().Scan(&v); err != nil {
		return decimal.Zero, translateError(err)
	}
	if !v.Valid {
		return decimal.Zero, nil
	}
	return v.Decimal.Round(quantityScale), nil
}

var _ ledger.BalanceReader = (*GormBalanceReader)(nil)
