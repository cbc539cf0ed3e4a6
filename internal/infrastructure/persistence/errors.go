package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mfgops/ledger/internal/domain/shared"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the ledger reacts to.
const (
	sqlStateLockNotAvailable     = "55P03"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateSerializationFailure = "40001"
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateQueryCanceled        = "57014"
	sqlStateStringTooLong        = "22001"
)

// translateError maps driver errors to domain errors. Domain errors and nil
// pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateLockNotAvailable, sqlStateDeadlockDetected, sqlStateSerializationFailure, sqlStateQueryCanceled:
			return shared.ErrTransientLockConflict.Wrap(err)
		case sqlStateUniqueViolation:
			return shared.NewConflictError("record already exists").
				WithDetail("constraint", pgErr.ConstraintName).Wrap(err)
		case sqlStateForeignKeyViolation:
			return shared.NewConflictError("record is referenced or references a missing row").
				WithDetail("constraint", pgErr.ConstraintName).Wrap(err)
		case sqlStateStringTooLong:
			field := pgErr.ColumnName
			if field == "" {
				field = "value"
			}
			return shared.NewInvalidArgumentError(field, "value too long for column").Wrap(err)
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewConflictError("record already exists").Wrap(err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.NewConflictError("record is referenced or references a missing row").Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return shared.ErrTransientLockConflict.Wrap(err)
	}
	return err
}
