package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ibc-intranet/internal/config"
	"ibc-intranet/internal/pkg/clock"
)

// Type represents the type of session store
type Type string

const (
	// TypeMemory represents in-memory session store
	TypeMemory Type = "memory"
	// TypeRedis represents Redis-based session store
	TypeRedis Type = "redis"
)

// NewStore creates a new session store based on configuration
func NewStore(ctx context.Context, logger *zap.Logger, cfg *config.Config, clk clock.Clock) (Store, error) {
	logger.Info("initializing session store", zap.String("type", cfg.Session.Store))
	switch Type(cfg.Session.Store) {
	case TypeMemory:
		return NewMemoryStore(logger, clk, cfg.Session.IdleTimeout), nil
	case TypeRedis:
		return NewRedisStore(ctx, logger, cfg.Redis, cfg.Session.IdleTimeout)
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", cfg.Session.Store)
	}
}
