package redisorphans

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

type mockListClient struct {
	mock.Mock
}

func (m *mockListClient) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	args := m.Called(ctx, key, values)
	return redis.NewIntResult(1, args.Error(0))
}

func (m *mockListClient) LPop(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return redis.NewStringResult(args.String(0), args.Error(1))
}

func (m *mockListClient) LLen(ctx context.Context, key string) *redis.IntCmd {
	args := m.Called(ctx, key)
	return redis.NewIntResult(int64(args.Int(0)), args.Error(1))
}
