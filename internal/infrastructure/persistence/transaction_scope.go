package persistence

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/mfgops/ledger/internal/application/ledger"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// On Postgres every transaction bounds its lock waits with SET LOCAL
// lock_timeout; a timed-out wait rolls the whole unit back and surfaces as a
// transient lock conflict.
type GormTransactionScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormTransactionScope creates a new GormTransactionScope. A zero
// lockTimeout leaves the server default in place.
func NewGormTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, lockTimeout: lockTimeout}
}

// Execute runs fn within a database transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && supportsRowLocks(tx) {
			// SET does not take bind parameters; the value is an integer.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(NewRepositories(tx))
	})
	return translateError(err)
}

// Repositories binds every ledger repository to one gorm handle, either the
// root connection or a transaction.
type Repositories struct {
	db *gorm.DB
}

// NewRepositories creates repositories on db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{db: db}
}

// MaterialRepo returns the material repository
func (r *Repositories) MaterialRepo() ledger.MaterialRepository {
	return NewGormMaterialRepository(r.db)
}

// SupplierRepo returns the supplier repository
func (r *Repositories) SupplierRepo() ledger.SupplierRepository {
	return NewGormSupplierRepository(r.db)
}

// LotRepo returns the production lot repository
func (r *Repositories) LotRepo() ledger.LotRepository {
	return NewGormLotRepository(r.db)
}

// BatchRepo returns the batch repository
func (r *Repositories) BatchRepo() ledger.BatchRepository {
	return NewGormBatchRepository(r.db)
}

// MovementRepo returns the movement repository
func (r *Repositories) MovementRepo() ledger.MovementRepository {
	return NewGormMovementRepository(r.db)
}

// Balances returns the ledger balance reader
func (r *Repositories) Balances() ledger.BalanceReader {
	return NewGormBalanceReader(r.db)
}

var (
	_ appledger.TransactionScope          = (*GormTransactionScope)(nil)
	_ appledger.TransactionalRepositories = (*Repositories)(nil)
	_ ledger.MaterialRepository           = (*GormMaterialRepository)(nil)
	_ ledger.SupplierRepository           = (*GormSupplierRepository)(nil)
	_ ledger.LotRepository                = (*GormLotRepository)(nil)
)
