package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BatchService maintains the batch registry.
//
// Shrinking and deleting a batch lock its row first, the same way the
// allocation paths do, so a concurrent allocation cannot slip a movement in
// between the usage check and the write.
type BatchService struct {
	repos TransactionalRepositories
	scope TransactionScope
	guard AllocationGuard
}

// NewBatchService creates a new BatchService
func NewBatchService(repos TransactionalRepositories, scope TransactionScope, guard AllocationGuard) *BatchService {
	if guard == nil {
		guard = NoOpGuard{}
	}
	return &BatchService{repos: repos, scope: scope, guard: guard}
}

// CreateBatch registers a receipt
func (s *BatchService) CreateBatch(ctx context.Context, req CreateBatchRequest) (*BatchResponse, error) {
	if err := ledger.ValidateQuantity("qty_received", req.QtyReceived); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.BatchNo) == "" {
		return nil, shared.NewInvalidArgumentError("batch_no", "batch number is required")
	}

	material, err := resolveMaterial(ctx, s.repos.MaterialRepo(), keyOf(req.MaterialID, req.MaterialCode))
	if err != nil {
		return nil, err
	}
	supplier, err := resolveSupplier(ctx, s.repos.SupplierRepo(), keyOf(req.SupplierID, req.SupplierCode))
	if err != nil {
		return nil, err
	}
	var supplierID *uuid.UUID
	if supplier != nil {
		supplierID = &supplier.ID
	}

	batch, err := ledger.NewBatch(ledger.NewBatchParams{
		MaterialID:  material.ID,
		BatchNo:     req.BatchNo,
		SupplierID:  supplierID,
		QtyReceived: req.QtyReceived,
		ReceivedAt:  req.ReceivedAt,
		Location:    req.Location,
		CertRef:     req.CertRef,
	})
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.BatchRepo().ExistsByKey(ctx, batch.MaterialID, batch.BatchNo, batch.SupplierID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewConflictError("batch already exists for this material and supplier").
				WithDetail("batch_no", batch.BatchNo)
		}
		return repos.BatchRepo().Create(ctx, batch)
	})
	if err != nil {
		return nil, err
	}

	resp := ToBatchResponse(batch, decimal.Zero)
	return &resp, nil
}

// GetBatch returns a batch with its derived balance
func (s *BatchService) GetBatch(ctx context.Context, id uuid.UUID) (*BatchResponse, error) {
	batch, err := findBatch(ctx, s.repos.BatchRepo(), id, false)
	if err != nil {
		return nil, err
	}
	used, err := s.repos.Balances().UsedByBatch(ctx, batch.ID, nil)
	if err != nil {
		return nil, err
	}
	resp := ToBatchResponse(batch, used)
	return &resp, nil
}

// UpdateBatch corrects batch attributes. A new qty_received may not drop
// below what has already been consumed.
func (s *BatchService) UpdateBatch(ctx context.Context, id uuid.UUID, req UpdateBatchRequest) (*BatchResponse, error) {
	current, err := findBatch(ctx, s.repos.BatchRepo(), id, false)
	if err != nil {
		return nil, err
	}

	var resp BatchResponse
	err = guarded(ctx, s.guard, current.MaterialID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			batch, err := findBatch(ctx, repos.BatchRepo(), id, true)
			if err != nil {
				return err
			}
			used, err := repos.Balances().UsedByBatch(ctx, batch.ID, nil)
			if err != nil {
				return err
			}
			if req.QtyReceived != nil {
				if err := batch.Resize(*req.QtyReceived, used); err != nil {
					return err
				}
			}
			if req.ReceivedAt != nil {
				batch.ReceivedAt = req.ReceivedAt
			}
			if err := batch.Relabel(req.Location, req.CertRef); err != nil {
				return err
			}
			batch.Touch()
			if err := repos.BatchRepo().Update(ctx, batch); err != nil {
				return err
			}
			resp = ToBatchResponse(batch, used)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteBatch removes a batch that no movement references
func (s *BatchService) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	current, err := findBatch(ctx, s.repos.BatchRepo(), id, false)
	if err != nil {
		return err
	}
	return guarded(ctx, s.guard, current.MaterialID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			batch, err := findBatch(ctx, repos.BatchRepo(), id, true)
			if err != nil {
				return err
			}
			count, err := repos.MovementRepo().CountByBatch(ctx, batch.ID)
			if err != nil {
				return err
			}
			if err := batch.EnsureDeletable(count); err != nil {
				return err
			}
			return repos.BatchRepo().Delete(ctx, batch.ID)
		})
	})
}
