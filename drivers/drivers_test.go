package drivers

import (
	"context"
	"testing"

	mediarouter "github.com/shoraid/go-media-router"
	localdriver "github.com/shoraid/go-media-router/drivers/local"
	s3driver "github.com/shoraid/go-media-router/drivers/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         mediarouter.ProviderConfig
		expectType  any
		expectedErr error
	}{
		{
			name: "should build s3 driver by default",
			cfg: mediarouter.ProviderConfig{
				Endpoint: "s3.example.com", AccessKey: "a", SecretKey: "s", Bucket: "one",
			},
			expectType: &s3driver.ObjectStorage{},
		},
		{
			name: "should build local driver",
			cfg: mediarouter.ProviderConfig{
				Kind: mediarouter.DriverLocal, Endpoint: t.TempDir(),
			},
			expectType: &localdriver.Storage{},
		},
		{
			name: "should reject unknown kind",
			cfg: mediarouter.ProviderConfig{
				Kind: "ftp", Endpoint: "ftp.example.com", AccessKey: "a", SecretKey: "s",
			},
			expectedErr: mediarouter.ErrInvalidConfig,
		},
		{
			name: "should reject s3 slot without credentials",
			cfg: mediarouter.ProviderConfig{
				Kind: mediarouter.DriverS3, Endpoint: "s3.example.com",
			},
			expectedErr: mediarouter.ErrInvalidConfig,
		},
		{
			name: "should reject minio slot without credentials",
			cfg: mediarouter.ProviderConfig{
				Kind: mediarouter.DriverMinio, Endpoint: "localhost:9000",
			},
			expectedErr: mediarouter.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, err := New(context.Background(), mediarouter.Storage2, tt.cfg)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, driver)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.expectType, driver)
			assert.Equal(t, tt.cfg.BucketName(), driver.Bucket())
		})
	}
}
