package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/mfgops/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMovementRepository implements MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// FindByID finds a ledger entry by its ID
func (r *GormMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Movement, error) {
	var model models.MovementModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists ledger entries by moved_at
func (r *GormMovementRepository) FindAll(ctx context.Context, filter ledger.MovementFilter) ([]ledger.Movement, error) {
	dir := "DESC"
	if filter.OrderDir == "asc" {
		dir = "ASC"
	}

	var rows []models.MovementModel
	err := r.filtered(ctx, filter).
		Order("moved_at " + dir).
		Order("id " + dir).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}

	movements := make([]ledger.Movement, len(rows))
	for i := range rows {
		movements[i] = *rows[i].ToDomain()
	}
	return movements, nil
}

// Count counts ledger entries matching the filter
func (r *GormMovementRepository) Count(ctx context.Context, filter ledger.MovementFilter) (int64, error) {
	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

// CountByBatch counts entries referencing a batch
func (r *GormMovementRepository) CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MovementModel{}).
		Where("batch_id = ?", batchID).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

// Create inserts an entry. The INSERT runs immediately, so subsequent usage
// sums in the same transaction include it.
func (r *GormMovementRepository) Create(ctx context.Context, movement *ledger.Movement) error {
	return translateError(r.db.WithContext(ctx).Create(models.MovementModelFromDomain(movement)).Error)
}

// Update saves a quantity adjustment
func (r *GormMovementRepository) Update(ctx context.Context, movement *ledger.Movement) error {
	result := r.db.WithContext(ctx).Model(&models.MovementModel{}).
		Where("id = ?", movement.ID).
		Updates(map[string]any{
			"quantity":   movement.Quantity,
			"note":       movement.Note,
			"updated_at": movement.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an entry
func (r *GormMovementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MovementModel{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormMovementRepository) filtered(ctx context.Context, filter ledger.MovementFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.MovementModel{})
	if filter.LotID != nil {
		query = query.Where("lot_id = ?", *filter.LotID)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.MaterialID != nil {
		query = query.Where("material_id = ?", *filter.MaterialID)
	}
	return query
}

var _ ledger.MovementRepository = (*GormMovementRepository)(nil)
