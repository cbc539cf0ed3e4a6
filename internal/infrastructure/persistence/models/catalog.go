package models

import (
	"github.com/mfgops/ledger/internal/domain/ledger"
)

// MaterialModel is the persistence model for catalog materials.
type MaterialModel struct {
	BaseModel
	Code string `gorm:"type:varchar(64);not null;uniqueIndex:idx_materials_code"`
	Name string `gorm:"type:varchar(255);not null;default:''"`
	Unit string `gorm:"type:varchar(16);not null"`
}

// TableName returns the table name for GORM
func (MaterialModel) TableName() string {
	return "materials"
}

// ToDomain converts the persistence model to a domain Material.
func (m *MaterialModel) ToDomain() *ledger.Material {
	return &ledger.Material{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
		Unit:       m.Unit,
	}
}

// MaterialModelFromDomain creates a persistence model from a domain Material.
func MaterialModelFromDomain(e *ledger.Material) *MaterialModel {
	m := &MaterialModel{Code: e.Code, Name: e.Name, Unit: e.Unit}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}

// SupplierModel is the persistence model for supplier references.
type SupplierModel struct {
	BaseModel
	Code string `gorm:"type:varchar(64);not null;uniqueIndex:idx_suppliers_code"`
	Name string `gorm:"type:varchar(255);not null;default:''"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// ToDomain converts the persistence model to a domain Supplier.
func (m *SupplierModel) ToDomain() *ledger.Supplier {
	return &ledger.Supplier{BaseEntity: m.BaseModel.ToDomain(), Code: m.Code, Name: m.Name}
}

// SupplierModelFromDomain creates a persistence model from a domain Supplier.
func SupplierModelFromDomain(e *ledger.Supplier) *SupplierModel {
	m := &SupplierModel{Code: e.Code, Name: e.Name}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}

// LotModel is the persistence model for production lots.
type LotModel struct {
	BaseModel
	LotNo string `gorm:"type:varchar(64);not null;uniqueIndex:idx_production_lots_lot_no"`
}

// TableName returns the table name for GORM
func (LotModel) TableName() string {
	return "production_lots"
}

// ToDomain converts the persistence model to a domain Lot.
func (m *LotModel) ToDomain() *ledger.Lot {
	return &ledger.Lot{BaseEntity: m.BaseModel.ToDomain(), LotNo: m.LotNo}
}

// LotModelFromDomain creates a persistence model from a domain Lot.
func LotModelFromDomain(e *ledger.Lot) *LotModel {
	m := &LotModel{LotNo: e.LotNo}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}
