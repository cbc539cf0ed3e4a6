package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/mfgops/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// batchHasCapacity keeps batches whose committed usage is below qty_received.
// Postgres rejects aggregates next to FOR UPDATE, so usage is a correlated
// subquery rather than a join.
const batchHasCapacity = "material_batches.qty_received > " +
	"(SELECT COALESCE(SUM(m.quantity), 0) FROM material_movements m WHERE m.batch_id = material_batches.id)"

// fifoOrder sorts oldest receipt first, undated receipts last, id as tie-break.
const fifoOrder = "CASE WHEN material_batches.received_at IS NULL THEN 1 ELSE 0 END, " +
	"material_batches.received_at ASC, material_batches.id ASC"

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ExistsByKey checks the (material, batch_no, supplier) uniqueness rule
func (r *GormBatchRepository) ExistsByKey(ctx context.Context, materialID uuid.UUID, batchNo string, supplierID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.BatchModel{}).
		Where("material_id = ? AND batch_no = ?", materialID, batchNo)
	if supplierID == nil {
		query = query.Where("supplier_id IS NULL")
	} else {
		query = query.Where("supplier_id = ?", *supplierID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Create inserts a new batch
func (r *GormBatchRepository) Create(ctx context.Context, batch *ledger.Batch) error {
	return translateError(r.db.WithContext(ctx).Create(models.BatchModelFromDomain(batch)).Error)
}

// Update saves the mutable batch attributes
func (r *GormBatchRepository) Update(ctx context.Context, batch *ledger.Batch) error {
	result := r.db.WithContext(ctx).Model(&models.BatchModel{}).
		Where("id = ?", batch.ID).
		Updates(map[string]any{
			"qty_received": batch.QtyReceived,
			"received_at":  batch.ReceivedAt,
			"location":     batch.Location,
			"cert_ref":     batch.CertRef,
			"updated_at":   batch.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a batch
func (r *GormBatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.BatchModel{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LockByID takes a FOR UPDATE lock on the batch, waiting up to the
// transaction's lock_timeout.
func (r *GormBatchRepository) LockByID(ctx context.Context, id uuid.UUID) (*ledger.Batch, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if supportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.BatchModel
	if err := query.Take(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// LockNextAvailable locks the FIFO-first batch of the material that still has
// capacity. Rows held by other transactions are skipped rather than waited
// for, so concurrent allocators of one material fan out across batches.
func (r *GormBatchRepository) LockNextAvailable(ctx context.Context, materialID uuid.UUID, exclude []uuid.UUID) (*ledger.Batch, error) {
	query := r.db.WithContext(ctx).
		Where("material_batches.material_id = ?", materialID).
		Where(batchHasCapacity)
	if len(exclude) > 0 {
		query = query.Where("material_batches.id NOT IN ?", exclude)
	}
	query = query.Order(fifoOrder).Limit(1)
	if supportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var found []models.BatchModel
	if err := query.Find(&found).Error; err != nil {
		return nil, translateError(err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0].ToDomain(), nil
}

var _ ledger.BatchRepository = (*GormBatchRepository)(nil)
