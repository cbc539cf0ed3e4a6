package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want *shared.DomainError
	}{
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, shared.ErrTransientLockConflict},
		{"deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"}), shared.ErrTransientLockConflict},
		{"serialization", &pgconn.PgError{Code: "40001"}, shared.ErrTransientLockConflict},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "idx_material_batches_key"}, shared.ErrConflict},
		{"string too long", &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(64)"}, shared.ErrInvalidArgument},
		{"gorm duplicate", gorm.ErrDuplicatedKey, shared.ErrConflict},
		{"foreign key", gorm.ErrForeignKeyViolated, shared.ErrConflict},
		{"not found", gorm.ErrRecordNotFound, shared.ErrNotFound},
		{"deadline", context.DeadlineExceeded, shared.ErrTransientLockConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateError(tt.in), tt.want)
		})
	}

	t.Run("keeps the driver error as cause", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "55P03"}
		var got *pgconn.PgError
		assert.True(t, errors.As(translateError(pgErr), &got))
	})

	t.Run("passes through other errors", func(t *testing.T) {
		plain := errors.New("connection refused")
		assert.Same(t, plain, translateError(plain))
		assert.NoError(t, translateError(nil))
	})

	t.Run("passes through domain errors", func(t *testing.T) {
		domainErr := shared.NewConflictError("batch has ledger movements and cannot be deleted")
		assert.Same(t, domainErr, translateError(domainErr))
	})
}
