package ledger

import (
	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationRequest asks for qty of a material to be consumed by a lot,
// oldest stock first.
type AllocationRequest struct {
	LotID    uuid.UUID
	Material Key
	Quantity decimal.Decimal
	Actor    string
	Note     string
}

// Validate checks the request before any storage is touched
func (r *AllocationRequest) Validate() error {
	if r.LotID == uuid.Nil {
		return shared.NewInvalidArgumentError("lot_id", "lot_id is required")
	}
	if r.Material.IsZero() {
		return shared.NewInvalidArgumentError("material", "either material_id or material_code is required")
	}
	return ValidateQuantity("qty", r.Quantity)
}

// Allocation is one slice of an allocation taken from a single batch
type Allocation struct {
	BatchID    uuid.UUID       `json:"batch_id"`
	BatchNo    string          `json:"batch_no"`
	MovementID uuid.UUID       `json:"movement_id"`
	Quantity   decimal.Decimal `json:"qty"`
}

// AllocationResult is the committed outcome of a FIFO allocation
type AllocationResult struct {
	LotID        uuid.UUID       `json:"lot_id"`
	MaterialID   uuid.UUID       `json:"material_id"`
	MaterialCode string          `json:"material_code"`
	RequestedQty decimal.Decimal `json:"requested_qty"`
	Allocations  []Allocation    `json:"allocations"`
}

// Allocated sums the quantities of all slices
func (r *AllocationResult) Allocated() decimal.Decimal {
	total := decimal.Zero
	for _, a := range r.Allocations {
		total = total.Add(a.Quantity)
	}
	return total
}

// AllocationPlan accumulates slices while the allocation loop runs.
type AllocationPlan struct {
	requested decimal.Decimal
	remaining decimal.Decimal
	slices    []Allocation
	exhausted map[uuid.UUID]struct{}
}

// NewAllocationPlan starts a plan for qty
func NewAllocationPlan(qty decimal.Decimal) *AllocationPlan {
	return &AllocationPlan{
		requested: qty,
		remaining: qty,
		exhausted: make(map[uuid.UUID]struct{}),
	}
}

// Remaining returns the quantity still to be allocated
func (p *AllocationPlan) Remaining() decimal.Decimal {
	return p.remaining
}

// Done reports whether the request is fully covered
func (p *AllocationPlan) Done() bool {
	return !p.remaining.IsPositive()
}

// Record appends a slice taken from a batch
func (p *AllocationPlan) Record(batch *Batch, movementID uuid.UUID, qty decimal.Decimal) {
	p.remaining = p.remaining.Sub(qty)
	p.slices = append(p.slices, Allocation{
		BatchID:    batch.ID,
		BatchNo:    batch.BatchNo,
		MovementID: movementID,
		Quantity:   qty,
	})
}

// Exclude marks a batch found empty under its lock so the next scan skips it
func (p *AllocationPlan) Exclude(batchID uuid.UUID) {
	p.exhausted[batchID] = struct{}{}
}

// Excluded lists the batches skipped by later scans
func (p *AllocationPlan) Excluded() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.exhausted))
	for id := range p.exhausted {
		ids = append(ids, id)
	}
	return ids
}

// Result builds the allocation result
func (p *AllocationPlan) Result(lotID uuid.UUID, material MaterialRef) *AllocationResult {
	return &AllocationResult{
		LotID:        lotID,
		MaterialID:   material.ID,
		MaterialCode: material.Code,
		RequestedQty: p.requested,
		Allocations:  p.slices,
	}
}

// ShortageError reports the part of the request that could not be covered
func (p *AllocationPlan) ShortageError() error {
	return shared.NewInsufficientStockError(p.remaining).
		WithDetail("requested", p.requested)
}

