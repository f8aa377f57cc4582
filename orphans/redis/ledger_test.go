package redisorphans

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mediarouter "github.com/shoraid/go-media-router"
	localdriver "github.com/shoraid/go-media-router/drivers/local"
)

func newRegistry(t *testing.T, driver mediarouter.StorageDriver) *mediarouter.Registry {
	t.Helper()

	registry, err := mediarouter.NewRegistry(
		map[mediarouter.ProviderID]mediarouter.ProviderConfig{
			mediarouter.Storage1: {Kind: mediarouter.DriverLocal, Bucket: "one", Endpoint: "/tmp", AccessKey: "a", SecretKey: "s"},
			mediarouter.Storage2: {Kind: mediarouter.DriverS3, Bucket: "two", Endpoint: "s3.example.com", AccessKey: "a", SecretKey: "s"},
		},
		func(context.Context, mediarouter.ProviderID, mediarouter.ProviderConfig) (mediarouter.StorageDriver, error) {
			return driver, nil
		},
	)
	require.NoError(t, err)
	return registry
}

func encode(t *testing.T, orphan mediarouter.Orphan) string {
	t.Helper()
	raw, err := json.Marshal(orphan)
	require.NoError(t, err)
	return string(raw)
}

func pushed(t *testing.T, values []interface{}) mediarouter.Orphan {
	t.Helper()
	require.Len(t, values, 1)

	var orphan mediarouter.Orphan
	require.NoError(t, json.Unmarshal(values[0].([]byte), &orphan))
	return orphan
}

func TestLedger_Report(t *testing.T) {
	t.Run("should push encoded orphan to the list", func(t *testing.T) {
		client := new(mockListClient)
		ledger := New(client, "", zerolog.Nop())
		orphan := mediarouter.Orphan{
			ProviderID: mediarouter.Storage2,
			Keys:       []string{"u/1.jpg"},
			Reason:     mediarouter.OrphanRollbackFailed,
			DetectedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		}

		var got mediarouter.Orphan
		client.On("RPush", mock.Anything, DefaultKey, mock.Anything).
			Run(func(args mock.Arguments) { got = pushed(t, args.Get(2).([]interface{})) }).
			Return(nil).Once()

		err := ledger.Report(context.Background(), orphan)

		require.NoError(t, err)
		assert.Equal(t, orphan, got)
		client.AssertExpectations(t)
	})

	t.Run("should return error when redis fails", func(t *testing.T) {
		client := new(mockListClient)
		ledger := New(client, "orphans", zerolog.Nop())
		client.On("RPush", mock.Anything, "orphans", mock.Anything).Return(errors.New("conn refused")).Once()

		err := ledger.Report(context.Background(), mediarouter.Orphan{ProviderID: mediarouter.Storage1})

		assert.ErrorContains(t, err, "conn refused")
	})
}

func TestLedger_Pending(t *testing.T) {
	client := new(mockListClient)
	ledger := New(client, "", zerolog.Nop())
	client.On("LLen", mock.Anything, DefaultKey).Return(3, nil).Once()

	n, err := ledger.Pending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestLedger_Reclaim(t *testing.T) {
	ctx := context.Background()
	orphan := mediarouter.Orphan{
		ProviderID: mediarouter.Storage2,
		Keys:       []string{"u/1.mp4", "thumbnails/u/1_thumb.jpg"},
		Reason:     mediarouter.OrphanDeleteFailed,
	}

	t.Run("should delete objects of every popped orphan", func(t *testing.T) {
		client := new(mockListClient)
		driver := new(mediarouter.MockStorageDriver)
		ledger := New(client, "", zerolog.Nop())

		client.On("LPop", mock.Anything, DefaultKey).Return(encode(t, orphan), nil).Once()
		client.On("LPop", mock.Anything, DefaultKey).Return("", redis.Nil).Once()
		driver.On("Delete", mock.Anything, "u/1.mp4").Return(nil).Once()
		driver.On("Delete", mock.Anything, "thumbnails/u/1_thumb.jpg").Return(nil).Once()

		res, err := ledger.Reclaim(ctx, newRegistry(t, driver), 10)

		require.NoError(t, err)
		assert.Equal(t, ReclaimResult{Reclaimed: 1}, res)
		client.AssertExpectations(t)
		driver.AssertExpectations(t)
	})

	t.Run("should requeue orphans whose deletion fails", func(t *testing.T) {
		client := new(mockListClient)
		driver := new(mediarouter.MockStorageDriver)
		ledger := New(client, "", zerolog.Nop())

		client.On("LPop", mock.Anything, DefaultKey).Return(encode(t, orphan), nil).Once()
		driver.On("Delete", mock.Anything, mock.Anything).Return(errors.New("timeout"))

		var requeued mediarouter.Orphan
		client.On("RPush", mock.Anything, DefaultKey, mock.Anything).
			Run(func(args mock.Arguments) { requeued = pushed(t, args.Get(2).([]interface{})) }).
			Return(nil).Once()

		res, err := ledger.Reclaim(ctx, newRegistry(t, driver), 1)

		require.NoError(t, err)
		assert.Equal(t, ReclaimResult{Requeued: 1}, res)
		assert.Equal(t, 1, requeued.Attempts)
		assert.Contains(t, requeued.Cause, "timeout")
		assert.Equal(t, orphan.Keys, requeued.Keys)
	})

	t.Run("should drop unreadable entries", func(t *testing.T) {
		client := new(mockListClient)
		ledger := New(client, "", zerolog.Nop())

		client.On("LPop", mock.Anything, DefaultKey).Return("{not json", nil).Once()
		client.On("LPop", mock.Anything, DefaultKey).Return("", redis.Nil).Once()

		res, err := ledger.Reclaim(ctx, newRegistry(t, new(mediarouter.MockStorageDriver)), 5)

		require.NoError(t, err)
		assert.Equal(t, ReclaimResult{Dropped: 1}, res)
	})

	t.Run("should stop on redis errors", func(t *testing.T) {
		client := new(mockListClient)
		ledger := New(client, "", zerolog.Nop())

		client.On("LPop", mock.Anything, DefaultKey).Return("", errors.New("conn reset")).Once()

		_, err := ledger.Reclaim(ctx, newRegistry(t, new(mediarouter.MockStorageDriver)), 5)

		assert.ErrorContains(t, err, "conn reset")
	})
}

func TestLedger_ReclaimKeepsEntriesOfUnconfiguredSlots(t *testing.T) {
	ctx := context.Background()
	thumb := "thumbnails/u1/1700000000000123456_thumb.jpg"

	primary, err := localdriver.New(localdriver.Config{BaseDir: t.TempDir(), Bucket: "primary"})
	require.NoError(t, err)
	require.NoError(t, primary.Put(ctx, thumb, bytes.NewReader([]byte("jpeg")), 4, "image/jpeg"))

	registry, err := mediarouter.NewRegistry(
		map[mediarouter.ProviderID]mediarouter.ProviderConfig{
			mediarouter.Storage1: {Kind: mediarouter.DriverLocal, Endpoint: "/unused", Bucket: "primary"},
		},
		func(context.Context, mediarouter.ProviderID, mediarouter.ProviderConfig) (mediarouter.StorageDriver, error) {
			return primary, nil
		},
	)
	require.NoError(t, err)

	orphan := mediarouter.Orphan{
		ProviderID: mediarouter.Storage2,
		Keys:       []string{thumb},
		Reason:     mediarouter.OrphanPartialWrite,
	}

	client := new(mockListClient)
	ledger := New(client, "", zerolog.Nop())

	client.On("LPop", mock.Anything, DefaultKey).Return(encode(t, orphan), nil).Once()
	var requeued mediarouter.Orphan
	client.On("RPush", mock.Anything, DefaultKey, mock.Anything).
		Run(func(args mock.Arguments) { requeued = pushed(t, args.Get(2).([]interface{})) }).
		Return(nil).Once()

	res, err := ledger.Reclaim(ctx, registry, 1)

	require.NoError(t, err)
	assert.Equal(t, ReclaimResult{Skipped: 1}, res)
	assert.Equal(t, orphan, requeued, "expected entry requeued unchanged")

	exists, err := primary.Exists(ctx, thumb)
	require.NoError(t, err)
	assert.True(t, exists, "expected object on the primary to survive")
	client.AssertExpectations(t)
}

func TestLedger_ReclaimDropsUnknownProviders(t *testing.T) {
	client := new(mockListClient)
	driver := new(mediarouter.MockStorageDriver)
	ledger := New(client, "", zerolog.Nop())

	client.On("LPop", mock.Anything, DefaultKey).
		Return(encode(t, mediarouter.Orphan{ProviderID: 7, Keys: []string{"u/1.jpg"}}), nil).Once()

	res, err := ledger.Reclaim(context.Background(), newRegistry(t, driver), 1)

	require.NoError(t, err)
	assert.Equal(t, ReclaimResult{Dropped: 1}, res)
	driver.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "RPush", mock.Anything, mock.Anything, mock.Anything)
}
