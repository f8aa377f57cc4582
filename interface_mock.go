package mediarouter

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStorageDriver is a testify.Mock implementation of StorageDriver.
type MockStorageDriver struct {
	mock.Mock
}

var _ StorageDriver = (*MockStorageDriver)(nil)

func (m *MockStorageDriver) Bucket() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockStorageDriver) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorageDriver) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorageDriver) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorageDriver) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockStorageDriver) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockStorageDriver) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, body, size, contentType)
	return args.Error(0)
}

// MockMetadataStore is a testify.Mock implementation of MetadataStore.
type MockMetadataStore struct {
	mock.Mock
}

var _ MetadataStore = (*MockMetadataStore)(nil)

func (m *MockMetadataStore) Insert(ctx context.Context, record *MediaRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockMetadataStore) Get(ctx context.Context, id string) (*MediaRecord, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*MediaRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMetadataStore) UpdateDetails(ctx context.Context, id, title, description string) (*MediaRecord, error) {
	args := m.Called(ctx, id, title, description)
	if rec, ok := args.Get(0).(*MediaRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMetadataStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMetadataStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]MediaRecord, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if recs, ok := args.Get(0).([]MediaRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMetadataStore) UsageByProvider(ctx context.Context) ([]ProviderUsage, error) {
	args := m.Called(ctx)
	if usage, ok := args.Get(0).([]ProviderUsage); ok {
		return usage, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTransformer is a testify.Mock implementation of Transformer.
type MockTransformer struct {
	mock.Mock
}

func (m *MockTransformer) Transform(ctx context.Context, file File) (*Artifacts, error) {
	args := m.Called(ctx, file)
	if art, ok := args.Get(0).(*Artifacts); ok {
		return art, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockProviderSelector is a testify.Mock implementation of ProviderSelector.
type MockProviderSelector struct {
	mock.Mock
}

func (m *MockProviderSelector) Select(ctx context.Context, candidates []ProviderID) (ProviderID, error) {
	args := m.Called(ctx, candidates)
	return args.Get(0).(ProviderID), args.Error(1)
}

// MockOrphanReporter is a testify.Mock implementation of OrphanReporter.
type MockOrphanReporter struct {
	mock.Mock
}

func (m *MockOrphanReporter) Report(ctx context.Context, orphan Orphan) error {
	args := m.Called(ctx, orphan)
	return args.Error(0)
}
