package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akarpov/contactsbook/internal/models"
)

// Default lifetime of a cached user snapshot
const DefaultTTL = 900 * time.Second

const keyPrefix = "user:"

// UserCache is a short lived Redis cache of resolved user snapshots
// It is a read optimization only: a miss never means the user does not exist
type UserCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewUserCache(rdb redis.UniversalClient, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &UserCache{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get cached snapshot by user email
// Second return value reports whether the entry was found
// A corrupt entry is treated as a miss, Redis connectivity problems are returned as errors
func (c *UserCache) Get(ctx context.Context, email string) (models.UserSnapshot, bool, error) {
	var snapshot models.UserSnapshot

	data, err := c.rdb.Get(ctx, keyPrefix+email).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return snapshot, false, nil
	case err != nil:
		return snapshot, false, fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, &snapshot); err != nil {
		return models.UserSnapshot{}, false, nil
	}

	return snapshot, true, nil
}

// Set stores the snapshot with the cache TTL
// Must be called only after a successful storage read
func (c *UserCache) Set(ctx context.Context, snapshot models.UserSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("cache encode error: %w", err)
	}

	if err := c.rdb.Set(ctx, keyPrefix+snapshot.Email, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}

	return nil
}
