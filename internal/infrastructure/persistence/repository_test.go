package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRepositories(t *testing.T) {
	f := newFixture(t, setupLedgerTestDB(t))

	got, err := f.repos.MaterialRepo().FindByCode(f.ctx, "RM-STEEL")
	require.NoError(t, err)
	assert.Equal(t, f.material.ID, got.ID)
	assert.Equal(t, "kg", got.Unit)

	_, err = f.repos.MaterialRepo().FindByID(f.ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	dup, err := ledger.NewMaterial("RM-STEEL", "dup", "kg")
	require.NoError(t, err)
	assert.ErrorIs(t, f.repos.MaterialRepo().Save(f.ctx, dup), shared.ErrConflict)

	sup, err := ledger.NewSupplier("SUP-1", "Acme Metals")
	require.NoError(t, err)
	require.NoError(t, f.repos.SupplierRepo().Save(f.ctx, sup))
	gotSup, err := f.repos.SupplierRepo().FindByCode(f.ctx, "SUP-1")
	require.NoError(t, err)
	assert.Equal(t, sup.ID, gotSup.ID)

	ok, err := f.repos.LotRepo().Exists(f.ctx, f.lot.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.repos.LotRepo().Exists(f.ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBatchRepository_ExistsByKey(t *testing.T) {
	f := newFixture(t, setupLedgerTestDB(t))
	f.batch("B-1", 10, day(1))

	supplierID := uuid.New()
	repo := f.repos.BatchRepo()

	exists, err := repo.ExistsByKey(f.ctx, f.material.ID, "B-1", nil)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByKey(f.ctx, f.material.ID, "B-1", &supplierID)
	require.NoError(t, err)
	assert.False(t, exists, "a supplier-less batch does not collide with a supplied one")
}

func TestBatchRepository_UpdateDelete(t *testing.T) {
	f := newFixture(t, setupLedgerTestDB(t))
	b := f.batch("B-1", 10, day(1))

	b.QtyReceived = decimal.NewFromInt(25)
	b.Location = "B-07"
	require.NoError(t, f.repos.BatchRepo().Update(f.ctx, b))

	got, err := f.repos.BatchRepo().FindByID(f.ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.QtyReceived.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "B-07", got.Location)

	require.NoError(t, f.repos.BatchRepo().Delete(f.ctx, b.ID))
	assert.ErrorIs(t, f.repos.BatchRepo().Delete(f.ctx, b.ID), shared.ErrNotFound)
}

func TestBatchRepository_LockNextAvailable_FIFO(t *testing.T) {
	f := newFixture(t, setupLedgerTestDB(t))
	repo := f.repos.BatchRepo()

	undated := f.batch("B-UNDATED", 5, nil)
	newer := f.batch("B-NEW", 5, day(9))
	older := f.batch("B-OLD", 5, day(2))

	next, err := repo.LockNextAvailable(f.ctx, f.material.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, older.ID, next.ID, "oldest receipt first")

	f.consume(older, "5")
	next, err = repo.LockNextAvailable(f.ctx, f.material.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, next.ID, "exhausted batches are skipped")

	next, err = repo.LockNextAvailable(f.ctx, f.material.ID, ids(newer))
	require.NoError(t, err)
	assert.Equal(t, undated.ID, next.ID, "undated receipts come last")

	next, err = repo.LockNextAvailable(f.ctx, f.material.ID, ids(newer, undated))
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestBatchRepository_LockNextAvailable_TieBreakByID(t *testing.T) {
	f := newFixture(t, setupLedgerTestDB(t))

	first := f.batch("B-1", 5, day(3))
	f.batch("B-2", 5, day(3))

	next, err := f.repos.BatchRepo().LockNextAvailable(f.ctx, f.material.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, next.ID)
}

func TestBalanceReader(t *testing.T) {
	f := newFixture(t, setupLedgerTestDB(t))
	a := f.batch("B-A", 10, day(1))
	b := f.batch("B-B", 4, day(2))

	m1 := f.consume(a, "3.5")
	f.consume(a, "1.25")
	f.consume(b, "4")

	balances := f.repos.Balances()

	used, err := balances.UsedByBatch(f.ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "4.75", used.String())

	used, err = balances.UsedByBatch(f.ctx, a.ID, &m1.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.25", used.String())

	onHand, err := balances.OnHand(f.ctx, f.material.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.25", onHand.String())

	onHand, err = balances.OnHand(f.ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, onHand.IsZero())
}

func TestMovementRepository(t *testing.T) {
	f := newFixture(t, setupLedgerTestDB(t))
	a := f.batch("B-A", 10, day(1))

	m1 := f.consume(a, "1")
	m2 := f.consume(a, "2")

	repo := f.repos.MovementRepo()
	count, err := repo.CountByBatch(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	filter := ledger.MovementFilter{Filter: shared.DefaultFilter(), BatchID: &a.ID}
	filter.OrderDir = "desc"
	list, err := repo.FindAll(f.ctx, filter)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, m2.ID, list[0].ID)

	require.NoError(t, m1.ChangeQuantity(decimal.NewFromInt(3)))
	m1.Note = "recount"
	require.NoError(t, repo.Update(f.ctx, m1))
	got, err := repo.FindByID(f.ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, "3", got.Quantity.String())
	assert.Equal(t, "recount", got.Note)

	require.NoError(t, repo.Delete(f.ctx, m2.ID))
	_, err = repo.FindByID(f.ctx, m2.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReportRepository(t *testing.T) {
	db := setupLedgerTestDB(t)
	f := newFixture(t, db)
	reports := NewGormReportRepository(db)
	ctx := context.Background()

	idle, err := ledger.NewMaterial("RM-ZINC", "Zinc ingot", "kg")
	require.NoError(t, err)
	require.NoError(t, f.repos.MaterialRepo().Save(ctx, idle))

	a := f.batch("B-A", 10, day(1))
	b := f.batch("B-B", 6, day(4))
	f.consume(a, "10")
	f.consume(b, "2.5")

	t.Run("on hand lists every material", func(t *testing.T) {
		rows, total, err := reports.OnHand(ctx, ledger.OnHandFilter{Filter: shared.DefaultFilter()})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, rows, 2)
		assert.Equal(t, "RM-STEEL", rows[0].MaterialCode)
		assert.Equal(t, "3.5", rows[0].TotalOnHand.String())
		assert.Equal(t, "RM-ZINC", rows[1].MaterialCode)
		assert.True(t, rows[1].TotalOnHand.IsZero())
	})

	t.Run("on hand search", func(t *testing.T) {
		filter := ledger.OnHandFilter{Filter: shared.DefaultFilter()}
		filter.Search = "zinc"
		rows, total, err := reports.OnHand(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, idle.ID, rows[0].MaterialID)
	})

	t.Run("batch ledger in FIFO order", func(t *testing.T) {
		rows, total, err := reports.BatchLedger(ctx, ledger.BatchFilter{Filter: shared.DefaultFilter(), MaterialID: &f.material.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, rows, 2)
		assert.Equal(t, a.ID, rows[0].BatchID)
		assert.Equal(t, "10", rows[0].QtyUsed.String())
		assert.True(t, rows[0].QtyAvailable.IsZero())
		assert.Equal(t, "3.5", rows[1].QtyAvailable.String())
		assert.Equal(t, "RM-STEEL", rows[1].MaterialCode)
	})

	t.Run("batch ledger date range is inclusive", func(t *testing.T) {
		from := day(4).Truncate(24 * 60 * 60 * 1e9)
		rows, _, err := reports.BatchLedger(ctx, ledger.BatchFilter{Filter: shared.DefaultFilter(), ReceivedFrom: &from, ReceivedTo: &from})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, b.ID, rows[0].BatchID)
	})

	t.Run("no violations on a consistent ledger", func(t *testing.T) {
		violations, checked, err := reports.Violations(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), checked)
		assert.Empty(t, violations)
	})

	t.Run("detects over-consumed batch", func(t *testing.T) {
		// Written straight through the repository, bypassing capacity checks.
		f.consume(a, "1")
		violations, _, err := reports.Violations(ctx)
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, a.ID, violations[0].BatchID)
		assert.Equal(t, "11", violations[0].QtyUsed.Round(4).String())
	})
}
