package httpapi

import (
	"context"
	"time"

	mediarouter "github.com/shoraid/go-media-router"
)

// MockMediaService lets tests stub only the calls they exercise.
type MockMediaService struct {
	MockUploadMedia       func(ctx context.Context, in mediarouter.UploadInput, progress mediarouter.ProgressFunc) (*mediarouter.MediaRecord, error)
	MockGetMedia          func(ctx context.Context, id string) (*mediarouter.MediaRecord, error)
	MockListMedia         func(ctx context.Context, ownerID string, limit, offset int) ([]mediarouter.MediaRecord, error)
	MockGetMediaURL       func(ctx context.Context, objectKey string, providerID mediarouter.ProviderID) (string, error)
	MockGetSignedMediaURL func(ctx context.Context, objectKey string, providerID mediarouter.ProviderID, expiry time.Duration) (string, error)
	MockFetchObject       func(ctx context.Context, record *mediarouter.MediaRecord) ([]byte, error)
	MockUpdateDetails     func(ctx context.Context, id, title, description string) (*mediarouter.MediaRecord, error)
	MockDeleteMedia       func(ctx context.Context, in mediarouter.DeleteInput) bool
	MockStorageUsage      func(ctx context.Context) ([]mediarouter.ProviderUsage, error)
}

func (m *MockMediaService) UploadMedia(ctx context.Context, in mediarouter.UploadInput, progress mediarouter.ProgressFunc) (*mediarouter.MediaRecord, error) {
	return m.MockUploadMedia(ctx, in, progress)
}

func (m *MockMediaService) GetMedia(ctx context.Context, id string) (*mediarouter.MediaRecord, error) {
	return m.MockGetMedia(ctx, id)
}

func (m *MockMediaService) ListMedia(ctx context.Context, ownerID string, limit, offset int) ([]mediarouter.MediaRecord, error) {
	return m.MockListMedia(ctx, ownerID, limit, offset)
}

func (m *MockMediaService) GetMediaURL(ctx context.Context, objectKey string, providerID mediarouter.ProviderID) (string, error) {
	return m.MockGetMediaURL(ctx, objectKey, providerID)
}

func (m *MockMediaService) GetSignedMediaURL(ctx context.Context, objectKey string, providerID mediarouter.ProviderID, expiry time.Duration) (string, error) {
	return m.MockGetSignedMediaURL(ctx, objectKey, providerID, expiry)
}

func (m *MockMediaService) FetchObject(ctx context.Context, record *mediarouter.MediaRecord) ([]byte, error) {
	return m.MockFetchObject(ctx, record)
}

func (m *MockMediaService) UpdateDetails(ctx context.Context, id, title, description string) (*mediarouter.MediaRecord, error) {
	return m.MockUpdateDetails(ctx, id, title, description)
}

func (m *MockMediaService) DeleteMedia(ctx context.Context, in mediarouter.DeleteInput) bool {
	return m.MockDeleteMedia(ctx, in)
}

func (m *MockMediaService) StorageUsage(ctx context.Context) ([]mediarouter.ProviderUsage, error) {
	return m.MockStorageUsage(ctx)
}
