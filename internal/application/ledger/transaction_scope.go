package ledger

import (
	"context"

	"github.com/mfgops/ledger/internal/domain/ledger"
)

// TransactionScope runs a unit of work in one database transaction.
// Every allocation and every manual movement write gets its own scope; a
// transaction is never held open across requests.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories.
// Inside TransactionScope.Execute they share the transaction; the instance
// handed to service constructors is bound to the root connection and is used
// for plain reads.
type TransactionalRepositories interface {
	MaterialRepo() ledger.MaterialRepository
	SupplierRepo() ledger.SupplierRepository
	LotRepo() ledger.LotRepository
	BatchRepo() ledger.BatchRepository
	MovementRepo() ledger.MovementRepository
	Balances() ledger.BalanceReader
}

// NoOpTransactionScope runs the function against the given repositories
// without opening a transaction. Useful in tests.
type NoOpTransactionScope struct {
	repos TransactionalRepositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos TransactionalRepositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
