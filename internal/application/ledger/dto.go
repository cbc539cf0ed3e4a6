package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// AllocateRequest represents a FIFO allocation request.
// Exactly one of MaterialID and MaterialCode is needed; MaterialID wins if both are set.
type AllocateRequest struct {
	LotID          uuid.UUID       `json:"lot_id" binding:"required"`
	MaterialID     *uuid.UUID      `json:"material_id"`
	MaterialCode   string          `json:"material_code"`
	Quantity       decimal.Decimal `json:"qty" binding:"required"`
	Actor          string          `json:"actor" binding:"max=100"`
	Note           string          `json:"note" binding:"max=500"`
	IdempotencyKey string          `json:"-"`
}

func (r AllocateRequest) toDomain() ledger.AllocationRequest {
	return ledger.AllocationRequest{
		LotID:    r.LotID,
		Material: keyOf(r.MaterialID, r.MaterialCode),
		Quantity: r.Quantity,
		Actor:    r.Actor,
		Note:     r.Note,
	}
}

// CreateMovementRequest represents a manual allocation against a chosen batch
type CreateMovementRequest struct {
	LotID    uuid.UUID       `json:"lot_id" binding:"required"`
	BatchID  uuid.UUID       `json:"batch_id" binding:"required"`
	Quantity decimal.Decimal `json:"qty" binding:"required"`
	Actor    string          `json:"actor" binding:"max=100"`
	Note     string          `json:"note" binding:"max=500"`
}

// UpdateMovementRequest adjusts the quantity of a movement
type UpdateMovementRequest struct {
	Quantity decimal.Decimal `json:"qty" binding:"required"`
	Note     *string         `json:"note" binding:"omitempty,max=500"`
}

// MovementResponse represents a ledger entry in API responses
type MovementResponse struct {
	ID         uuid.UUID       `json:"id"`
	LotID      uuid.UUID       `json:"lot_id"`
	BatchID    uuid.UUID       `json:"batch_id"`
	MaterialID uuid.UUID       `json:"material_id"`
	Quantity   decimal.Decimal `json:"qty"`
	MovedAt    time.Time       `json:"moved_at"`
	Actor      string          `json:"actor,omitempty"`
	Note       string          `json:"note,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ToMovementResponse converts a domain movement
func ToMovementResponse(m *ledger.Movement) MovementResponse {
	return MovementResponse{
		ID:         m.ID,
		LotID:      m.LotID,
		BatchID:    m.BatchID,
		MaterialID: m.MaterialID,
		Quantity:   m.Quantity,
		MovedAt:    m.MovedAt,
		Actor:      m.Actor,
		Note:       m.Note,
		UpdatedAt:  m.UpdatedAt,
	}
}

// MovementListFilter represents filter options for the movement list.
// Id filters arrive as raw query strings and are parsed by the service.
type MovementListFilter struct {
	LotID      string `form:"lot_id"`
	BatchID    string `form:"batch_id"`
	MaterialID string `form:"material_id"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// CreateBatchRequest represents a batch receipt
type CreateBatchRequest struct {
	MaterialID   *uuid.UUID      `json:"material_id"`
	MaterialCode string          `json:"material_code"`
	BatchNo      string          `json:"batch_no" binding:"required,max=64"`
	SupplierID   *uuid.UUID      `json:"supplier_id"`
	SupplierCode string          `json:"supplier_code"`
	QtyReceived  decimal.Decimal `json:"qty_received" binding:"required"`
	ReceivedAt   *time.Time      `json:"received_at"`
	Location     string          `json:"location" binding:"max=100"`
	CertRef      string          `json:"cert_ref" binding:"max=128"`
}

// UpdateBatchRequest corrects batch attributes; nil fields stay unchanged
type UpdateBatchRequest struct {
	QtyReceived *decimal.Decimal `json:"qty_received"`
	ReceivedAt  *time.Time       `json:"received_at"`
	Location    *string          `json:"location" binding:"omitempty,max=100"`
	CertRef     *string          `json:"cert_ref" binding:"omitempty,max=128"`
}

// BatchResponse represents a batch with its derived balance
type BatchResponse struct {
	ID           uuid.UUID       `json:"id"`
	MaterialID   uuid.UUID       `json:"material_id"`
	BatchNo      string          `json:"batch_no"`
	SupplierID   *uuid.UUID      `json:"supplier_id,omitempty"`
	QtyReceived  decimal.Decimal `json:"qty_received"`
	QtyUsed      decimal.Decimal `json:"qty_used"`
	QtyAvailable decimal.Decimal `json:"qty_available"`
	ReceivedAt   *time.Time      `json:"received_at,omitempty"`
	Location     string          `json:"location,omitempty"`
	CertRef      string          `json:"cert_ref,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToBatchResponse converts a batch and its consumed total
func ToBatchResponse(b *ledger.Batch, used decimal.Decimal) BatchResponse {
	bal := b.Balance(used)
	return BatchResponse{
		ID:           b.ID,
		MaterialID:   b.MaterialID,
		BatchNo:      b.BatchNo,
		SupplierID:   b.SupplierID,
		QtyReceived:  b.QtyReceived,
		QtyUsed:      used,
		QtyAvailable: bal.Available(),
		ReceivedAt:   b.ReceivedAt,
		Location:     b.Location,
		CertRef:      b.CertRef,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// OnHandQuery represents the on-hand report query
type OnHandQuery struct {
	MaterialID   string `form:"material_id"`
	MaterialCode string `form:"material_code"`
	Search       string `form:"search"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// BatchLedgerQuery represents the batch ledger report query
type BatchLedgerQuery struct {
	MaterialID   string     `form:"material_id"`
	MaterialCode string     `form:"material_code"`
	SupplierID   string     `form:"supplier_id"`
	SupplierCode string     `form:"supplier_code"`
	BatchNo      string     `form:"batch_no"`
	Location     string     `form:"location"`
	ReceivedFrom *time.Time `form:"received_from" time_format:"2006-01-02"`
	ReceivedTo   *time.Time `form:"received_to" time_format:"2006-01-02"`
	Page         int        `form:"page" binding:"omitempty,min=1"`
	PageSize     int        `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// RegisterMaterialRequest registers a catalog material
type RegisterMaterialRequest struct {
	Code string `json:"code" binding:"required,max=64"`
	Name string `json:"name" binding:"max=200"`
	Unit string `json:"unit" binding:"required,max=16"`
}

// RegisterSupplierRequest registers a supplier reference
type RegisterSupplierRequest struct {
	Code string `json:"code" binding:"required,max=64"`
	Name string `json:"name" binding:"max=200"`
}

// OpenLotRequest registers a production lot
type OpenLotRequest struct {
	LotNo string `json:"lot_no" binding:"required,max=64"`
}

// CatalogEntryResponse represents a catalog entry in API responses
type CatalogEntryResponse struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name,omitempty"`
	Unit string    `json:"unit,omitempty"`
}
