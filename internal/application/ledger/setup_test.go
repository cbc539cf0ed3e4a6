package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	appledger "github.com/mfgops/ledger/internal/application/ledger"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/infrastructure/persistence"
	"github.com/mfgops/ledger/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var errInjected = errors.New("injected commit failure")

// failingScope runs the unit of work and then fails it, so the transaction
// rolls back after every write happened.
type failingScope struct {
	inner appledger.TransactionScope
}

func (s failingScope) Execute(ctx context.Context, fn func(appledger.TransactionalRepositories) error) error {
	return s.inner.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		if err := fn(repos); err != nil {
			return err
		}
		return errInjected
	})
}

type ledgerEnv struct {
	t           *testing.T
	ctx         context.Context
	db          *gorm.DB
	repos       *persistence.Repositories
	scope       appledger.TransactionScope
	guard       appledger.AllocationGuard
	catalog     *appledger.CatalogService
	batches     *appledger.BatchService
	movements   *appledger.MovementService
	reports     *appledger.ReportService
	audit       *appledger.AuditService
	material    *appledger.CatalogEntryResponse
	lot         uuid.UUID
	allocations *appledger.AllocationService
}

func newLedgerEnv(t *testing.T, guard appledger.AllocationGuard, opts ...appledger.AllocationServiceOption) *ledgerEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	repos := persistence.NewRepositories(db)
	scope := persistence.NewGormTransactionScope(db, 0)
	reportRepo := persistence.NewGormReportRepository(db)

	env := &ledgerEnv{
		t:         t,
		ctx:       context.Background(),
		db:        db,
		repos:     repos,
		scope:     scope,
		guard:     guard,
		catalog:   appledger.NewCatalogService(repos),
		batches:   appledger.NewBatchService(repos, scope, guard),
		movements: appledger.NewMovementService(repos, scope, guard, zap.NewNop()),
		reports:   appledger.NewReportService(repos, reportRepo),
		audit:     appledger.NewAuditService(reportRepo, zap.NewNop()),
	}
	opts = append([]appledger.AllocationServiceOption{appledger.WithAllocationGuard(guard)}, opts...)
	env.allocations = appledger.NewAllocationService(repos, scope, opts...)

	env.material, err = env.catalog.RegisterMaterial(env.ctx, appledger.RegisterMaterialRequest{Code: "RM-PVC", Name: "PVC granulate", Unit: "kg"})
	require.NoError(t, err)
	lot, err := env.catalog.OpenLot(env.ctx, appledger.OpenLotRequest{LotNo: "LOT-2026-001"})
	require.NoError(t, err)
	env.lot = lot.ID
	return env
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func receivedOn(day int) *time.Time {
	t := time.Date(2026, 2, day, 6, 0, 0, 0, time.UTC)
	return &t
}

// receive registers a batch of the env material
func (e *ledgerEnv) receive(batchNo, q string, at *time.Time) *appledger.BatchResponse {
	e.t.Helper()
	b, err := e.batches.CreateBatch(e.ctx, appledger.CreateBatchRequest{
		MaterialID:  &e.material.ID,
		BatchNo:     batchNo,
		QtyReceived: qty(q),
		ReceivedAt:  at,
	})
	require.NoError(e.t, err)
	return b
}

func (e *ledgerEnv) allocate(q string) (*ledger.AllocationResult, error) {
	return e.allocations.Allocate(e.ctx, appledger.AllocateRequest{
		LotID:      e.lot,
		MaterialID: &e.material.ID,
		Quantity:   qty(q),
		Actor:      "mixer-3",
	})
}

func (e *ledgerEnv) available(batchID uuid.UUID) decimal.Decimal {
	e.t.Helper()
	b, err := e.batches.GetBatch(e.ctx, batchID)
	require.NoError(e.t, err)
	return b.QtyAvailable
}

func (e *ledgerEnv) onHand() decimal.Decimal {
	e.t.Helper()
	row, err := e.reports.MaterialOnHand(e.ctx, e.material.ID)
	require.NoError(e.t, err)
	return row.TotalOnHand
}

func (e *ledgerEnv) movementCount() int64 {
	e.t.Helper()
	page, err := e.movements.ListMovements(e.ctx, appledger.MovementListFilter{})
	require.NoError(e.t, err)
	return page.Total
}

// assertHealthy runs the invariant audit and expects no violation
func (e *ledgerEnv) assertHealthy() {
	e.t.Helper()
	report, err := e.audit.Run(e.ctx)
	require.NoError(e.t, err)
	assert.Empty(e.t, report.Violations)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, qty(want).Equal(got), "want %s, got %s", want, got)
}
