package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialRepository reads the external material catalog
type MaterialRepository interface {
	// FindByID finds a material by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Material, error)

	// FindByCode finds a material by its unique code
	FindByCode(ctx context.Context, code string) (*Material, error)

	// Save creates a material
	Save(ctx context.Context, material *Material) error
}

// SupplierRepository reads supplier references
type SupplierRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	FindByCode(ctx context.Context, code string) (*Supplier, error)
	Save(ctx context.Context, supplier *Supplier) error
}

// LotRepository reads production lot references
type LotRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Lot, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Save(ctx context.Context, lot *Lot) error
}

// BatchRepository persists batches.
//
// The two Lock methods take a row lock on the batch for the rest of the
// enclosing transaction. Every write that changes the usage of a batch must go
// through one of them first.
type BatchRepository interface {
	// FindByID finds a batch without locking it
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// ExistsByKey checks the (material, batch_no, supplier) uniqueness rule.
	// A nil supplier only matches batches without supplier.
	ExistsByKey(ctx context.Context, materialID uuid.UUID, batchNo string, supplierID *uuid.UUID) (bool, error)

	// Create inserts a new batch
	Create(ctx context.Context, batch *Batch) error

	// Update saves changed batch attributes
	Update(ctx context.Context, batch *Batch) error

	// Delete removes a batch
	Delete(ctx context.Context, id uuid.UUID) error

	// LockByID locks a specific batch, waiting up to the lock timeout
	LockByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// LockNextAvailable locks the oldest batch of the material that still has
	// capacity, skipping rows locked by other transactions and the excluded IDs.
	// Returns nil, nil when no batch qualifies.
	LockNextAvailable(ctx context.Context, materialID uuid.UUID, exclude []uuid.UUID) (*Batch, error)
}

// MovementRepository persists ledger entries
type MovementRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Movement, error)
	FindAll(ctx context.Context, filter MovementFilter) ([]Movement, error)
	Count(ctx context.Context, filter MovementFilter) (int64, error)

	// CountByBatch counts entries referencing a batch
	CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)

	// Create inserts and flushes an entry so later reads in the same
	// transaction observe it
	Create(ctx context.Context, movement *Movement) error

	// Update saves a quantity adjustment
	Update(ctx context.Context, movement *Movement) error

	// Delete removes an entry, returning its quantity to the batch
	Delete(ctx context.Context, id uuid.UUID) error
}

// BalanceReader derives balances from the ledger. Nothing here reads a
// stored counter.
type BalanceReader interface {
	// UsedByBatch sums movement quantities on a batch, optionally excluding one entry
	UsedByBatch(ctx context.Context, batchID uuid.UUID, excludeMovement *uuid.UUID) (decimal.Decimal, error)

	// OnHand sums available quantity across all batches of a material
	OnHand(ctx context.Context, materialID uuid.UUID) (decimal.Decimal, error)
}

// ReportRepository serves the read-only reporting views
type ReportRepository interface {
	OnHand(ctx context.Context, filter OnHandFilter) ([]OnHandRow, int64, error)
	BatchLedger(ctx context.Context, filter BatchFilter) ([]BatchLedgerRow, int64, error)

	// Violations returns batches whose usage is outside [0, qty_received] and
	// the number of batches inspected
	Violations(ctx context.Context) ([]InvariantViolation, int64, error)
}
