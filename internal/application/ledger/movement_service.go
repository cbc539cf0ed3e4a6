package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/mfgops/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// MovementService is the manual allocation interface: an operator picks the
// batch. It locks the batch row and applies the same capacity rule as the
// FIFO allocator, so both paths agree on what "available" means.
type MovementService struct {
	repos   TransactionalRepositories
	scope   TransactionScope
	guard   AllocationGuard
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewMovementService creates a new MovementService
func NewMovementService(repos TransactionalRepositories, scope TransactionScope, guard AllocationGuard, logger *zap.Logger) *MovementService {
	if guard == nil {
		guard = NoOpGuard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MovementService{repos: repos, scope: scope, guard: guard, logger: logger}
}

// SetLedgerMetrics sets the metrics recorder
func (s *MovementService) SetLedgerMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// CreateMovement takes qty from a specific batch for a lot
func (s *MovementService) CreateMovement(ctx context.Context, req CreateMovementRequest) (*MovementResponse, error) {
	if req.LotID == uuid.Nil {
		return nil, shared.NewInvalidArgumentError("lot_id", "lot_id is required")
	}
	if req.BatchID == uuid.Nil {
		return nil, shared.NewInvalidArgumentError("batch_id", "batch_id is required")
	}
	if err := ledger.ValidateQuantity("qty", req.Quantity); err != nil {
		return nil, err
	}

	current, err := findBatch(ctx, s.repos.BatchRepo(), req.BatchID, false)
	if err != nil {
		return nil, err
	}

	var movement *ledger.Movement
	err = guarded(ctx, s.guard, current.MaterialID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			if err := ensureLot(ctx, repos.LotRepo(), req.LotID); err != nil {
				return err
			}
			batch, err := findBatch(ctx, repos.BatchRepo(), req.BatchID, true)
			if err != nil {
				return err
			}
			used, err := repos.Balances().UsedByBatch(ctx, batch.ID, nil)
			if err != nil {
				return err
			}
			if err := batch.Balance(used).CheckCapacity(req.Quantity); err != nil {
				return err
			}
			movement, err = ledger.NewMovement(req.LotID, batch, req.Quantity, req.Actor, req.Note)
			if err != nil {
				return err
			}
			return repos.MovementRepo().Create(ctx, movement)
		})
	})
	if err != nil {
		s.observeFailure(ctx, "create", err)
		return nil, err
	}

	s.logger.Info("manual movement created",
		zap.String("movement_id", movement.ID.String()),
		zap.String("batch_id", movement.BatchID.String()),
		zap.String("lot_id", movement.LotID.String()),
		zap.String("qty", movement.Quantity.String()),
	)
	resp := ToMovementResponse(movement)
	return &resp, nil
}

// UpdateMovement applies a controlled quantity adjustment. The new quantity
// must fit in the batch alongside every other movement on it.
func (s *MovementService) UpdateMovement(ctx context.Context, id uuid.UUID, req UpdateMovementRequest) (*MovementResponse, error) {
	if err := ledger.ValidateQuantity("qty", req.Quantity); err != nil {
		return nil, err
	}
	current, err := s.findMovement(ctx, s.repos.MovementRepo(), id)
	if err != nil {
		return nil, err
	}

	var movement *ledger.Movement
	err = guarded(ctx, s.guard, current.MaterialID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			movement, err = s.findMovement(ctx, repos.MovementRepo(), id)
			if err != nil {
				return err
			}
			batch, err := findBatch(ctx, repos.BatchRepo(), movement.BatchID, true)
			if err != nil {
				return err
			}
			// shrinking a movement returns stock and needs no capacity check
			if movement.Delta(req.Quantity).IsPositive() {
				usedByOthers, err := repos.Balances().UsedByBatch(ctx, batch.ID, &movement.ID)
				if err != nil {
					return err
				}
				if err := batch.Balance(usedByOthers).CheckCapacity(req.Quantity); err != nil {
					return err
				}
			}
			if err := movement.ChangeQuantity(req.Quantity); err != nil {
				return err
			}
			if req.Note != nil {
				movement.Note = strings.TrimSpace(*req.Note)
			}
			return repos.MovementRepo().Update(ctx, movement)
		})
	})
	if err != nil {
		s.observeFailure(ctx, "update", err)
		return nil, err
	}

	resp := ToMovementResponse(movement)
	return &resp, nil
}

// DeleteMovement returns the movement's quantity to its batch. Usage can only
// go down, so no capacity check is needed.
func (s *MovementService) DeleteMovement(ctx context.Context, id uuid.UUID) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		movement, err := s.findMovement(ctx, repos.MovementRepo(), id)
		if err != nil {
			return err
		}
		return repos.MovementRepo().Delete(ctx, movement.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("movement deleted, quantity returned to batch", zap.String("movement_id", id.String()))
	return nil
}

// GetMovement finds a ledger entry
func (s *MovementService) GetMovement(ctx context.Context, id uuid.UUID) (*MovementResponse, error) {
	m, err := s.findMovement(ctx, s.repos.MovementRepo(), id)
	if err != nil {
		return nil, err
	}
	resp := ToMovementResponse(m)
	return &resp, nil
}

// ListMovements lists ledger entries, newest first
func (s *MovementService) ListMovements(ctx context.Context, f MovementListFilter) (*shared.Paginated[MovementResponse], error) {
	filter := ledger.MovementFilter{
		Filter: shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderDir: "desc"}.Normalize(),
	}
	var err error
	if filter.LotID, err = parseQueryID("lot_id", f.LotID); err != nil {
		return nil, err
	}
	if filter.BatchID, err = parseQueryID("batch_id", f.BatchID); err != nil {
		return nil, err
	}
	if filter.MaterialID, err = parseQueryID("material_id", f.MaterialID); err != nil {
		return nil, err
	}
	movements, err := s.repos.MovementRepo().FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.MovementRepo().Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]MovementResponse, len(movements))
	for i := range movements {
		items[i] = ToMovementResponse(&movements[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func (s *MovementService) findMovement(ctx context.Context, repo ledger.MovementRepository, id uuid.UUID) (*ledger.Movement, error) {
	m, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("movement", id.String())
		}
		return nil, err
	}
	return m, nil
}

func (s *MovementService) observeFailure(ctx context.Context, op string, err error) {
	switch {
	case shared.IsRetryable(err):
		s.metrics.RecordLockConflict(ctx, "movement."+op)
		s.logger.Warn("manual movement hit a lock conflict", zap.String("operation", op), zap.Error(err))
	case errors.Is(err, shared.ErrInsufficientStock):
		if shortage, ok := shared.ShortageOf(err); ok {
			s.metrics.RecordShortage(ctx, "manual", shortage)
		}
	}
}
