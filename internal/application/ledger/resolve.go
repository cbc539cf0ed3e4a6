package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
)

// keyOf builds a catalog key from the two interchangeable request fields
func keyOf(id *uuid.UUID, code string) ledger.Key {
	if id != nil && *id != uuid.Nil {
		return ledger.KeyByID(*id)
	}
	return ledger.KeyByCode(code)
}

// parseQueryID parses an optional id filter taken from a query string.
func parseQueryID(field, raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.NewInvalidArgumentError(field, field+" must be a UUID")
	}
	return &id, nil
}

// queryKey is keyOf for query filters, where the id is still a raw string.
func queryKey(field, rawID, code string) (ledger.Key, error) {
	id, err := parseQueryID(field, rawID)
	if err != nil {
		return ledger.Key{}, err
	}
	return keyOf(id, code), nil
}

// resolveMaterial turns an id-or-code key into a single resolved reference.
func resolveMaterial(ctx context.Context, repo ledger.MaterialRepository, key ledger.Key) (ledger.MaterialRef, error) {
	if key.IsZero() {
		return ledger.MaterialRef{}, shared.NewInvalidArgumentError("material", "either material_id or material_code is required")
	}
	var (
		m   *ledger.Material
		err error
	)
	if key.HasID() {
		m, err = repo.FindByID(ctx, key.ID)
	} else {
		m, err = repo.FindByCode(ctx, key.Code)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ledger.MaterialRef{}, shared.NewNotFoundError("material", key.String())
		}
		return ledger.MaterialRef{}, err
	}
	return m.Ref(), nil
}

// resolveSupplier returns nil for an empty key
func resolveSupplier(ctx context.Context, repo ledger.SupplierRepository, key ledger.Key) (*ledger.Supplier, error) {
	if key.IsZero() {
		return nil, nil
	}
	var (
		s   *ledger.Supplier
		err error
	)
	if key.HasID() {
		s, err = repo.FindByID(ctx, key.ID)
	} else {
		s, err = repo.FindByCode(ctx, key.Code)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("supplier", key.String())
		}
		return nil, err
	}
	return s, nil
}

func ensureLot(ctx context.Context, repo ledger.LotRepository, lotID uuid.UUID) error {
	ok, err := repo.Exists(ctx, lotID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewNotFoundError("lot", lotID.String())
	}
	return nil
}

func findBatch(ctx context.Context, repo ledger.BatchRepository, id uuid.UUID, lock bool) (*ledger.Batch, error) {
	var (
		b   *ledger.Batch
		err error
	)
	if lock {
		b, err = repo.LockByID(ctx, id)
	} else {
		b, err = repo.FindByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("batch", id.String())
		}
		return nil, err
	}
	return b, nil
}
