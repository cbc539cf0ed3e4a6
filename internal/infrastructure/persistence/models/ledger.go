package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// BatchModel is the persistence model for material batches. There is no
// usage column; usage is always summed from material_movements.
type BatchModel struct {
	BaseModel
	MaterialID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_material_batches_fifo,priority:1;uniqueIndex:idx_material_batches_key,priority:1"`
	BatchNo     string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_material_batches_key,priority:2"`
	SupplierID  *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_material_batches_key,priority:3"`
	QtyReceived decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReceivedAt  *time.Time      `gorm:"index:idx_material_batches_fifo,priority:2"`
	Location    string          `gorm:"type:varchar(128);not null;default:''"`
	CertRef     string          `gorm:"type:varchar(128);not null;default:''"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "material_batches"
}

// ToDomain converts the persistence model to a domain Batch.
func (m *BatchModel) ToDomain() *ledger.Batch {
	return &ledger.Batch{
		BaseEntity:  m.BaseModel.ToDomain(),
		MaterialID:  m.MaterialID,
		BatchNo:     m.BatchNo,
		SupplierID:  m.SupplierID,
		QtyReceived: m.QtyReceived,
		ReceivedAt:  m.ReceivedAt,
		Location:    m.Location,
		CertRef:     m.CertRef,
	}
}

// BatchModelFromDomain creates a persistence model from a domain Batch.
func BatchModelFromDomain(b *ledger.Batch) *BatchModel {
	m := &BatchModel{
		MaterialID:  b.MaterialID,
		BatchNo:     b.BatchNo,
		SupplierID:  b.SupplierID,
		QtyReceived: b.QtyReceived,
		ReceivedAt:  b.ReceivedAt,
		Location:    b.Location,
		CertRef:     b.CertRef,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}

// MovementModel is one ledger entry: qty of a batch consumed by a lot.
type MovementModel struct {
	BaseModel
	LotID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:decimal(18,4);not null"`
	MovedAt    time.Time       `gorm:"not null;index"`
	Actor      string          `gorm:"type:varchar(128);not null;default:''"`
	Note       string          `gorm:"type:text;not null;default:''"`
}

// TableName returns the table name for GORM
func (MovementModel) TableName() string {
	return "material_movements"
}

// ToDomain converts the persistence model to a domain Movement.
func (m *MovementModel) ToDomain() *ledger.Movement {
	return &ledger.Movement{
		BaseEntity: m.BaseModel.ToDomain(),
		LotID:      m.LotID,
		BatchID:    m.BatchID,
		MaterialID: m.MaterialID,
		Quantity:   m.Quantity,
		MovedAt:    m.MovedAt,
		Actor:      m.Actor,
		Note:       m.Note,
	}
}

// MovementModelFromDomain creates a persistence model from a domain Movement.
func MovementModelFromDomain(e *ledger.Movement) *MovementModel {
	m := &MovementModel{
		LotID:      e.LotID,
		BatchID:    e.BatchID,
		MaterialID: e.MaterialID,
		Quantity:   e.Quantity,
		MovedAt:    e.MovedAt,
		Actor:      e.Actor,
		Note:       e.Note,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}
