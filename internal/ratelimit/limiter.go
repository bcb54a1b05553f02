package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akarpov/contactsbook/internal/apperrors"
)

const (
	defaultCeiling = 2
	defaultSlot    = 5 * time.Second
)

const keyPrefix = "ratelimit:"

type Config struct {
	// Requests allowed per slot for a single client identity
	// If not set than default is used
	Ceiling int

	// Fixed window duration
	// If not set than default is used
	Slot time.Duration
}

// Limiter counts requests per client identity in a fixed window
// backed by Redis counters, so increment-and-compare is atomic
// The window resets lazily through key expiry, there is no background sweep
type Limiter struct {
	rdb     redis.UniversalClient
	ceiling int
	slot    time.Duration
}

func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = defaultCeiling
	}
	if cfg.Slot <= 0 {
		cfg.Slot = defaultSlot
	}

	return &Limiter{
		rdb:     rdb,
		ceiling: cfg.Ceiling,
		slot:    cfg.Slot,
	}
}

// Check counts the request against the client identity window
// Returns apperrors.ErrTooManyRequests with retry-after guidance when the ceiling is crossed
// Any other returned error means Redis was unreachable
func (l *Limiter) Check(ctx context.Context, clientID string) (retryAfter time.Duration, err error) {
	key := keyPrefix + clientID

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limiter error: %w", err)
	}

	// First hit in the window starts the slot
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.slot).Err(); err != nil {
			return 0, fmt.Errorf("rate limiter error: %w", err)
		}
	}

	if count > int64(l.ceiling) {
		retryAfter, err := l.rdb.PTTL(ctx, key).Result()
		if err != nil || retryAfter < 0 {
			retryAfter = l.slot
		}
		return retryAfter, apperrors.ErrTooManyRequests
	}

	return 0, nil
}
