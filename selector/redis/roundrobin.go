// Package redisselector rotates uploads across provider slots with a counter
// shared by every process through Redis.
package redisselector

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	mediarouter "github.com/shoraid/go-media-router"
)

// DefaultKey is the Redis key of the shared counter.
const DefaultKey = "mediarouter:selector:round-robin"

type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RoundRobin implements mediarouter.ProviderSelector with Redis INCR.
type RoundRobin struct {
	client counter
	key    string
}

var _ mediarouter.ProviderSelector = (*RoundRobin)(nil)

func New(client counter, key string) *RoundRobin {
	if key == "" {
		key = DefaultKey
	}
	return &RoundRobin{client: client, key: key}
}

func (r *RoundRobin) Select(ctx context.Context, candidates []mediarouter.ProviderID) (mediarouter.ProviderID, error) {
	if len(candidates) == 0 {
		return 0, fmt.Errorf("%w: no candidates", mediarouter.ErrInvalidProvider)
	}

	n, err := r.client.Incr(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis round robin: %w", err)
	}
	if n < 1 {
		n = 1
	}

	return candidates[(n-1)%int64(len(candidates))], nil
}
