package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupLedgerTestDB opens an in-memory SQLite database with the ledger schema.
// One connection only: every new :memory: connection is a new database.
func setupLedgerTestDB(t *testing.T) *gorm.DB {
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
	return db
}

// newMockPostgres opens gorm on a sqlmock connection speaking the postgres dialect
func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	repos    *Repositories
	material *ledger.Material
	lot      *ledger.Lot
}

func newFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), repos: NewRepositories(db)}

	m, err := ledger.NewMaterial("RM-STEEL", "Cold rolled steel", "kg")
	require.NoError(t, err)
	require.NoError(t, f.repos.MaterialRepo().Save(f.ctx, m))
	f.material = m

	lot, err := ledger.NewLot("LOT-001")
	require.NoError(t, err)
	require.NoError(t, f.repos.LotRepo().Save(f.ctx, lot))
	f.lot = lot
	return f
}

func (f *fixture) batch(no string, qty int64, receivedAt *time.Time) *ledger.Batch {
	f.t.Helper()
	b, err := ledger.NewBatch(ledger.NewBatchParams{
		MaterialID:  f.material.ID,
		BatchNo:     no,
		QtyReceived: decimal.NewFromInt(qty),
		ReceivedAt:  receivedAt,
		Location:    "A-01",
	})
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos.BatchRepo().Create(f.ctx, b))
	return b
}

func (f *fixture) consume(b *ledger.Batch, qty string) *ledger.Movement {
	f.t.Helper()
	m, err := ledger.NewMovement(f.lot.ID, b, decimal.RequireFromString(qty), "tester", "")
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos.MovementRepo().Create(f.ctx, m))
	return m
}

func day(d int) *time.Time {
	t := time.Date(2026, 1, d, 8, 0, 0, 0, time.UTC)
	return &t
}

func ids(batches ...*ledger.Batch) []uuid.UUID {
	out := make([]uuid.UUID, len(batches))
	for i, b := range batches {
		out[i] = b.ID
	}
	return out
}
