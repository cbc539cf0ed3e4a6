package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMaterialRepository implements MaterialRepository using GORM
type GormMaterialRepository struct {
	db *gorm.DB
}

// NewGormMaterialRepository creates a new GormMaterialRepository
func NewGormMaterialRepository(db *gorm.DB) *GormMaterialRepository {
	return &GormMaterialRepository{db: db}
}

// FindByID finds a material by its ID
func (r *GormMaterialRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Material, error) {
	var model models.MaterialModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a material by its unique code
func (r *GormMaterialRepository) FindByCode(ctx context.Context, code string) (*ledger.Material, error) {
	var model models.MaterialModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).Take(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save creates a material
func (r *GormMaterialRepository) Save(ctx context.Context, material *ledger.Material) error {
	return translateError(r.db.WithContext(ctx).Create(models.MaterialModelFromDomain(material)).Error)
}

// GormSupplierRepository implements SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindByID finds a supplier by its ID
func (r *GormSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Supplier, error) {
	var model models.SupplierModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a supplier by its unique code
func (r *GormSupplierRepository) FindByCode(ctx context.Context, code string) (*ledger.Supplier, error) {
	var model models.SupplierModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).Take(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save creates a supplier
func (r *GormSupplierRepository) Save(ctx context.Context, supplier *ledger.Supplier) error {
	return translateError(r.db.WithContext(ctx).Create(models.SupplierModelFromDomain(supplier)).Error)
}

// GormLotRepository implements LotRepository using GORM
type GormLotRepository struct {
	db *gorm.DB
}

// NewGormLotRepository creates a new GormLotRepository
func NewGormLotRepository(db *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: db}
}

// FindByID finds a production lot by its ID
func (r *GormLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Lot, error) {
	var model models.LotModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Exists checks whether a production lot exists
func (r *GormLotRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.LotModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Save creates a production lot
func (r *GormLotRepository) Save(ctx context.Context, lot *ledger.Lot) error {
	return translateError(r.db.WithContext(ctx).Create(models.LotModelFromDomain(lot)).Error)
}
