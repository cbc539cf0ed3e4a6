package ledger

import (
	"context"

	"github.com/google/uuid"
)

// AllocationGuard serializes writers of one material at the application level.
//
// Postgres deployments rely on row locks and use NoOpGuard. Stores without a
// skip-locked read (SQLite) plug in a local or Redis-backed guard instead.
type AllocationGuard interface {
	// Acquire blocks until the material is held or ctx ends. The returned
	// function releases the hold and is safe to call once.
	Acquire(ctx context.Context, materialID uuid.UUID) (release func(), err error)
}

// NoOpGuard never blocks
type NoOpGuard struct{}

// Acquire returns immediately
func (NoOpGuard) Acquire(context.Context, uuid.UUID) (func(), error) {
	return func() {}, nil
}

func guarded(ctx context.Context, g AllocationGuard, materialID uuid.UUID, fn func() error) error {
	release, err := g.Acquire(ctx, materialID)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
