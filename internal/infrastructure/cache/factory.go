package cache

import (
	"context"
	"fmt"

	appledger "github.com/mfgops/ledger/internal/application/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/mfgops/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Components are the coordination pieces the allocation services need.
type Components struct {
	Idempotency shared.IdempotencyStore
	Guard       appledger.AllocationGuard
	// Redis is nil unless redis.enabled is set.
	Redis *redis.Client
}

// Close releases the idempotency store and the Redis client.
func (c *Components) Close() error {
	var firstErr error
	if c.Idempotency != nil {
		firstErr = c.Idempotency.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build wires the idempotency store and the material guard from config.
// With Redis disabled the idempotency store lives in memory; the guard
// follows ledger.advisory_lock.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Components{}

	if cfg.Redis.Enabled {
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		c.Redis = client
		c.Idempotency = NewRedisIdempotencyStore(client, "")
		logger.Info("using Redis idempotency store", zap.String("addr", cfg.Redis.Addr()))
	} else {
		c.Idempotency = NewInMemoryIdempotencyStore()
		logger.Warn("Redis disabled, idempotency keys are local to this instance")
	}

	switch cfg.Ledger.AdvisoryLock {
	case config.AdvisoryLockNone, "":
		c.Guard = appledger.NoOpGuard{}
	case config.AdvisoryLockLocal:
		c.Guard = NewLocalGuard(cfg.Ledger.LockTimeout)
	case config.AdvisoryLockRedis:
		if c.Redis == nil {
			_ = c.Close()
			return nil, fmt.Errorf("advisory lock %q requires redis.enabled", config.AdvisoryLockRedis)
		}
		c.Guard = NewRedisGuard(c.Redis, cfg.Ledger.AdvisoryLockTTL, cfg.Ledger.LockTimeout, logger.Named("guard"))
	default:
		_ = c.Close()
		return nil, fmt.Errorf("unknown advisory lock mode %q", cfg.Ledger.AdvisoryLock)
	}
	logger.Info("material guard configured", zap.String("mode", cfg.Ledger.AdvisoryLock))
	return c, nil
}
