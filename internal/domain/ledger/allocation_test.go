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

func TestAllocationRequest_Validate(t *testing.T) {
	valid := AllocationRequest{
		LotID:    uuid.New(),
		Material: KeyByCode("AL-6061"),
		Quantity: decimal.NewFromInt(5),
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *AllocationRequest)
		field  string
	}{
		{"missing lot", func(r *AllocationRequest) { r.LotID = uuid.Nil }, "lot_id"},
		{"missing material", func(r *AllocationRequest) { r.Material = Key{} }, "material"},
		{"blank material code", func(r *AllocationRequest) { r.Material = KeyByCode("   ") }, "material"},
		{"zero qty", func(r *AllocationRequest) { r.Quantity = decimal.Zero }, "qty"},
		{"negative qty", func(r *AllocationRequest) { r.Quantity = decimal.NewFromInt(-1) }, "qty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := req.Validate()

			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, shared.CodeInvalidArgument, de.Code)
			assert.Equal(t, tt.field, de.Details["field"])
		})
	}
}

func TestAllocationPlan(t *testing.T) {
	a := newTestBatch(t, 10)
	b := newTestBatch(t, 50)
	plan := NewAllocationPlan(decimal.NewFromInt(30))

	plan.Record(a, uuid.New(), decimal.NewFromInt(10))
	assert.False(t, plan.Done())
	assert.True(t, decimal.NewFromInt(20).Equal(plan.Remaining()))

	plan.Record(b, uuid.New(), decimal.NewFromInt(20))
	assert.True(t, plan.Done())

	result := plan.Result(uuid.New(), MaterialRef{ID: a.MaterialID, Code: "AL"})
	require.Len(t, result.Allocations, 2)
	assert.Equal(t, a.ID, result.Allocations[0].BatchID)
	assert.True(t, decimal.NewFromInt(30).Equal(result.Allocated()))
	assert.True(t, decimal.NewFromInt(30).Equal(result.RequestedQty))
}

func TestAllocationPlan_ShortageError(t *testing.T) {
	plan := NewAllocationPlan(decimal.NewFromInt(8))
	plan.Record(newTestBatch(t, 5), uuid.New(), decimal.NewFromInt(5))

	shortage, ok := shared.ShortageOf(plan.ShortageError())

	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(3).Equal(shortage))
}

func TestAllocationPlan_Exclude(t *testing.T) {
	plan := NewAllocationPlan(decimal.NewFromInt(1))
	id := uuid.New()

	plan.Exclude(id)
	plan.Exclude(id)

	assert.Equal(t, []uuid.UUID{id}, plan.Excluded())
}

func TestKey(t *testing.T) {
	id := uuid.New()

	assert.True(t, Key{}.IsZero())
	assert.True(t, KeyByID(id).HasID())
	assert.Equal(t, id.String(), Key{ID: id, Code: "X"}.String())
	assert.Equal(t, "X", KeyByCode(" X ").String())
}
