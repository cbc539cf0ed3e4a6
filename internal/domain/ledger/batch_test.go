package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBatch(t *testing.T, qty int64) *Batch {
	t.Helper()
	received := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b, err := NewBatch(NewBatchParams{
		MaterialID:  uuid.New(),
		BatchNo:     "HEAT-001",
		QtyReceived: decimal.NewFromInt(qty),
		ReceivedAt:  &received,
		Location:    " RACK-A ",
	})
	require.NoError(t, err)
	return b
}

func TestNewBatch(t *testing.T) {
	t.Run("creates batch", func(t *testing.T) {
		b := newTestBatch(t, 100)

		assert.NotEqual(t, uuid.Nil, b.ID)
		assert.Equal(t, "HEAT-001", b.BatchNo)
		assert.Equal(t, "RACK-A", b.Location)
		assert.Nil(t, b.SupplierID)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		for _, qty := range []int64{0, -5} {
			_, err := NewBatch(NewBatchParams{
				MaterialID:  uuid.New(),
				BatchNo:     "B",
				QtyReceived: decimal.NewFromInt(qty),
			})
			assert.True(t, errors.Is(err, shared.ErrInvalidArgument), "qty %d", qty)
		}
	})

	t.Run("rejects blank batch number", func(t *testing.T) {
		_, err := NewBatch(NewBatchParams{MaterialID: uuid.New(), BatchNo: "  ", QtyReceived: decimal.NewFromInt(1)})
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})

	t.Run("enforces column widths", func(t *testing.T) {
		_, err := NewBatch(NewBatchParams{
			MaterialID:  uuid.New(),
			BatchNo:     strings.Repeat("B", MaxBatchNoLen+1),
			QtyReceived: decimal.NewFromInt(1),
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))

		_, err = NewBatch(NewBatchParams{
			MaterialID:  uuid.New(),
			BatchNo:     "B",
			QtyReceived: decimal.NewFromInt(1),
			CertRef:     strings.Repeat("C", MaxCertRefLen+1),
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))

		b, err := NewBatch(NewBatchParams{
			MaterialID:  uuid.New(),
			BatchNo:     strings.Repeat("B", MaxBatchNoLen),
			QtyReceived: decimal.NewFromInt(1),
			CertRef:     strings.Repeat("C", MaxCertRefLen),
		})
		require.NoError(t, err)
		assert.Len(t, b.BatchNo, MaxBatchNoLen)
	})

	t.Run("nil supplier id is dropped", func(t *testing.T) {
		nilID := uuid.Nil
		b, err := NewBatch(NewBatchParams{
			MaterialID:  uuid.New(),
			BatchNo:     "B",
			SupplierID:  &nilID,
			QtyReceived: decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		assert.Nil(t, b.SupplierID)
	})
}

func TestBatch_Relabel(t *testing.T) {
	b := newTestBatch(t, 10)

	cert := " MTR-2024-118 "
	require.NoError(t, b.Relabel(nil, &cert))
	assert.Equal(t, "RACK-A", b.Location)
	assert.Equal(t, "MTR-2024-118", b.CertRef)

	long := strings.Repeat("x", MaxCertRefLen+1)
	err := b.Relabel(nil, &long)
	assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	assert.Equal(t, "MTR-2024-118", b.CertRef)

	longLoc := strings.Repeat("x", MaxLocationLen+1)
	err = b.Relabel(&longLoc, nil)
	assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	assert.Equal(t, "RACK-A", b.Location)
}

func TestBatch_Resize(t *testing.T) {
	t.Run("allows lowering down to consumed", func(t *testing.T) {
		b := newTestBatch(t, 100)

		require.NoError(t, b.Resize(decimal.NewFromInt(40), decimal.NewFromInt(40)))
		assert.True(t, decimal.NewFromInt(40).Equal(b.QtyReceived))
	})

	t.Run("rejects lowering below consumed", func(t *testing.T) {
		b := newTestBatch(t, 100)

		err := b.Resize(decimal.NewFromInt(39), decimal.NewFromInt(40))

		assert.True(t, errors.Is(err, shared.ErrConflict))
		assert.True(t, decimal.NewFromInt(100).Equal(b.QtyReceived))
	})

	t.Run("allows raising", func(t *testing.T) {
		b := newTestBatch(t, 100)

		require.NoError(t, b.Resize(decimal.NewFromInt(150), decimal.NewFromInt(90)))
	})
}

func TestBatch_EnsureDeletable(t *testing.T) {
	b := newTestBatch(t, 10)

	assert.NoError(t, b.EnsureDeletable(0))
	assert.True(t, errors.Is(b.EnsureDeletable(2), shared.ErrConflict))
}
