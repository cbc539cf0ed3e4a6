package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches by code", func(t *testing.T) {
		err := NewNotFoundError("batch", "B-1")

		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrConflict))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load batch: %w", NewConflictError("duplicate batch"))

		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("unwraps cause", func(t *testing.T) {
		cause := errors.New("pq: lock timeout")
		err := ErrTransientLockConflict.Wrap(cause)

		assert.True(t, errors.Is(err, cause))
		assert.True(t, IsRetryable(err))
		assert.Contains(t, err.Error(), "pq: lock timeout")
	})
}

func TestDomainError_WithDetail(t *testing.T) {
	base := NewDomainError(CodeInvalidArgument, "bad qty")
	withField := base.WithDetail("field", "qty")

	assert.Nil(t, base.Details)
	assert.Equal(t, "qty", withField.Details["field"])
}

func TestShortageOf(t *testing.T) {
	t.Run("extracts shortage", func(t *testing.T) {
		err := fmt.Errorf("allocate: %w", NewInsufficientStockError(decimal.NewFromInt(3)))

		shortage, ok := ShortageOf(err)

		require.True(t, ok)
		assert.True(t, decimal.NewFromInt(3).Equal(shortage))
		assert.True(t, errors.Is(err, ErrInsufficientStock))
	})

	t.Run("other errors carry no shortage", func(t *testing.T) {
		_, ok := ShortageOf(ErrNotFound)
		assert.False(t, ok)

		_, ok = ShortageOf(errors.New("boom"))
		assert.False(t, ok)
	})
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 10000, OrderDir: "sideways"}.Normalize()

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, maxPageSize, f.PageSize)
	assert.Equal(t, "asc", f.OrderDir)
	assert.Equal(t, 40, Filter{Page: 3, PageSize: 20}.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 1, 20)

	assert.Equal(t, 3, p.TotalPages)
	assert.Len(t, p.Items, 2)

	empty := NewPaginated[int](nil, 0, 1, 20)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
}
