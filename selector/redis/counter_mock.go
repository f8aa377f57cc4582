package redisselector

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

type mockCounter struct {
	mock.Mock
}

func (m *mockCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	args := m.Called(ctx, key)
	return redis.NewIntResult(int64(args.Int(0)), args.Error(1))
}
