package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/mfgops/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const idempotencyKeyPrefix = "ledger:allocation:"

// AllocationService is the FIFO allocator.
//
// Each call runs in its own transaction. Inside it the allocator repeatedly
// locks the oldest batch that still has capacity (skipping rows held by
// concurrent allocators), writes a movement for min(remaining, available) and
// flushes it, until the request is covered. Nothing is visible to other
// callers until the commit, and any failure rolls the whole call back.
type AllocationService struct {
	repos          TransactionalRepositories
	scope          TransactionScope
	guard          AllocationGuard
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
	metrics        *telemetry.LedgerMetrics
}

// AllocationServiceOption is a functional option for configuring AllocationService
type AllocationServiceOption func(*AllocationService)

// WithAllocationGuard sets the application-level guard used on stores
// without a skip-locked read
func WithAllocationGuard(g AllocationGuard) AllocationServiceOption {
	return func(s *AllocationService) {
		if g != nil {
			s.guard = g
		}
	}
}

// WithIdempotencyStore enables replay detection for requests carrying a key
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) AllocationServiceOption {
	return func(s *AllocationService) {
		s.idempotency = store
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

// WithAllocationLogger sets the logger
func WithAllocationLogger(l *zap.Logger) AllocationServiceOption {
	return func(s *AllocationService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLedgerMetrics sets the metrics recorder
func WithLedgerMetrics(m *telemetry.LedgerMetrics) AllocationServiceOption {
	return func(s *AllocationService) {
		s.metrics = m
	}
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(repos TransactionalRepositories, scope TransactionScope, opts ...AllocationServiceOption) *AllocationService {
	s := &AllocationService{
		repos:          repos,
		scope:          scope,
		guard:          NoOpGuard{},
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allocate satisfies req from the oldest batches of the material.
//
// It returns the committed slices, which sum exactly to the requested
// quantity, or an error with no side effects. Failures are reported as
// InvalidArgument, NotFound, InsufficientStock (with the shortage),
// Conflict (replayed idempotency key) or TransientLockConflict. The call is
// never retried internally.
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest) (result *ledger.AllocationResult, err error) {
	ctx, span := telemetry.StartLedgerSpan(ctx, "allocate",
		telemetry.AttrLotID.String(req.LotID.String()),
		telemetry.AttrQuantity.String(req.Quantity.String()),
	)
	start := time.Now()
	defer func() {
		s.observe(ctx, req, result, err, time.Since(start))
		if result != nil {
			span.SetAttributes(telemetry.AttrBatchCount.Int(len(result.Allocations)))
		}
		telemetry.EndSpan(span, err)
	}()

	domainReq := req.toDomain()
	if err = domainReq.Validate(); err != nil {
		return nil, err
	}

	material, err := resolveMaterial(ctx, s.repos.MaterialRepo(), domainReq.Material)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.AttrMaterialCode.String(material.Code))

	if req.IdempotencyKey != "" && s.idempotency != nil {
		key := idempotencyKeyPrefix + req.IdempotencyKey
		fresh, markErr := s.idempotency.MarkProcessed(ctx, key, s.idempotencyTTL)
		if markErr != nil {
			return nil, markErr
		}
		if !fresh {
			return nil, shared.NewConflictError("allocation request was already processed").
				WithDetail("idempotency_key", req.IdempotencyKey)
		}
		defer func() {
			if err != nil {
				if relErr := s.idempotency.Release(context.WithoutCancel(ctx), key); relErr != nil {
					s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
				}
			}
		}()
	}

	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationAllocate, nil), func(ctx context.Context) {
		err = guarded(ctx, s.guard, material.ID, func() error {
			var txErr error
			result, txErr = s.allocate(ctx, domainReq, material)
			return txErr
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AllocationService) allocate(ctx context.Context, req ledger.AllocationRequest, material ledger.MaterialRef) (*ledger.AllocationResult, error) {
	var result *ledger.AllocationResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := ensureLot(ctx, repos.LotRepo(), req.LotID); err != nil {
			return err
		}

		onHand, err := repos.Balances().OnHand(ctx, material.ID)
		if err != nil {
			return err
		}
		if onHand.LessThan(req.Quantity) {
			return shared.NewInsufficientStockError(req.Quantity.Sub(onHand)).
				WithDetail("requested", req.Quantity).
				WithDetail("on_hand", onHand)
		}

		plan := ledger.NewAllocationPlan(req.Quantity)
		for !plan.Done() {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch, err := repos.BatchRepo().LockNextAvailable(ctx, material.ID, plan.Excluded())
			if err != nil {
				return err
			}
			if batch == nil {
				// Concurrent allocators took or hold the remaining stock.
				return plan.ShortageError()
			}

			used, err := repos.Balances().UsedByBatch(ctx, batch.ID, nil)
			if err != nil {
				return err
			}
			take := batch.Balance(used).Take(plan.Remaining())
			if take.IsZero() {
				plan.Exclude(batch.ID)
				continue
			}

			movement, err := ledger.NewMovement(req.LotID, batch, take, req.Actor, req.Note)
			if err != nil {
				return err
			}
			if err := repos.MovementRepo().Create(ctx, movement); err != nil {
				return err
			}
			plan.Record(batch, movement.ID, take)
		}

		result = plan.Result(req.LotID, material)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AllocationService) observe(ctx context.Context, req AllocateRequest, result *ledger.AllocationResult, err error, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("lot_id", req.LotID.String()),
		zap.String("qty", req.Quantity.String()),
		zap.Duration("elapsed", elapsed),
	}
	switch {
	case err == nil:
		s.metrics.RecordAllocation(ctx, telemetry.AllocationOutcomeSuccess, result.Allocated(), len(result.Allocations), elapsed)
		s.logger.Info("allocation committed",
			append(fields,
				zap.String("material_code", result.MaterialCode),
				zap.Int("batches", len(result.Allocations)))...)
	case errors.Is(err, shared.ErrInsufficientStock):
		shortage, _ := shared.ShortageOf(err)
		s.metrics.RecordAllocation(ctx, telemetry.AllocationOutcomeShortage, req.Quantity, 0, elapsed)
		s.metrics.RecordShortage(ctx, "fifo", shortage)
		s.logger.Info("allocation rejected for insufficient stock", append(fields, zap.String("shortage", shortage.String()))...)
	case shared.IsRetryable(err):
		s.metrics.RecordAllocation(ctx, telemetry.AllocationOutcomeLockConflict, req.Quantity, 0, elapsed)
		s.metrics.RecordLockConflict(ctx, "allocation")
		s.logger.Warn("allocation rolled back on lock conflict", append(fields, zap.Error(err))...)
	default:
		s.metrics.RecordAllocation(ctx, telemetry.AllocationOutcomeRejected, req.Quantity, 0, elapsed)
		s.logger.Debug("allocation failed", append(fields, zap.Error(err))...)
	}
}
