package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchBalance(t *testing.T) {
	bal := BatchBalance{
		BatchID:     uuid.New(),
		QtyReceived: decimal.NewFromInt(100),
		QtyUsed:     decimal.NewFromInt(85),
	}

	assert.True(t, decimal.NewFromInt(15).Equal(bal.Available()))

	t.Run("capacity check passes within available", func(t *testing.T) {
		assert.NoError(t, bal.CheckCapacity(decimal.NewFromInt(15)))
	})

	t.Run("capacity check reports shortage", func(t *testing.T) {
		err := bal.CheckCapacity(decimal.NewFromInt(20))

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		shortage, ok := shared.ShortageOf(err)
		require.True(t, ok)
		assert.True(t, decimal.NewFromInt(5).Equal(shortage))
	})

	t.Run("take is bounded by available", func(t *testing.T) {
		assert.True(t, decimal.NewFromInt(15).Equal(bal.Take(decimal.NewFromInt(40))))
		assert.True(t, decimal.NewFromInt(7).Equal(bal.Take(decimal.NewFromInt(7))))
	})

	t.Run("exhausted batch yields nothing", func(t *testing.T) {
		empty := BatchBalance{QtyReceived: decimal.NewFromInt(10), QtyUsed: decimal.NewFromInt(10)}

		assert.True(t, empty.Take(decimal.NewFromInt(1)).IsZero())
	})

	t.Run("overdrawn batch has negative availability", func(t *testing.T) {
		over := BatchBalance{QtyReceived: decimal.NewFromInt(10), QtyUsed: decimal.NewFromInt(11)}

		assert.True(t, decimal.NewFromInt(-1).Equal(over.Available()))
		assert.True(t, over.Take(decimal.NewFromInt(1)).IsZero())
	})
}

func TestMovement(t *testing.T) {
	batch := newTestBatch(t, 50)
	lotID := uuid.New()

	t.Run("copies material from batch", func(t *testing.T) {
		m, err := NewMovement(lotID, batch, decimal.NewFromInt(10), " op1 ", "")

		require.NoError(t, err)
		assert.Equal(t, batch.MaterialID, m.MaterialID)
		assert.Equal(t, batch.ID, m.BatchID)
		assert.Equal(t, "op1", m.Actor)
		assert.False(t, m.MovedAt.IsZero())
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, err := NewMovement(lotID, batch, decimal.Zero, "", "")
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})

	t.Run("delta of a quantity change", func(t *testing.T) {
		m, err := NewMovement(lotID, batch, decimal.NewFromInt(10), "", "")
		require.NoError(t, err)

		assert.True(t, decimal.NewFromInt(5).Equal(m.Delta(decimal.NewFromInt(15))))
		assert.True(t, decimal.NewFromInt(-4).Equal(m.Delta(decimal.NewFromInt(6))))
		require.NoError(t, m.ChangeQuantity(decimal.NewFromInt(6)))
		assert.Error(t, m.ChangeQuantity(decimal.NewFromInt(-1)))
	})
}
