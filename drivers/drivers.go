// Package drivers builds the StorageDriver of a provider slot from its configuration.
package drivers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	mediarouter "github.com/shoraid/go-media-router"
	localdriver "github.com/shoraid/go-media-router/drivers/local"
	miniodriver "github.com/shoraid/go-media-router/drivers/minio"
	s3driver "github.com/shoraid/go-media-router/drivers/s3"
)

// New is a mediarouter.DriverFactory dispatching on ProviderConfig.Kind.
// An empty kind means s3.
func New(ctx context.Context, id mediarouter.ProviderID, cfg mediarouter.ProviderConfig) (mediarouter.StorageDriver, error) {
	log.Info().
		Str("provider", id.String()).
		Str("kind", string(cfg.Kind)).
		Str("bucket", cfg.BucketName()).
		Msg("connecting storage provider")

	switch cfg.Kind {
	case mediarouter.DriverS3, "":
		s, err := s3driver.NewObjectStorage(ctx, s3driver.ObjectStorageConfig{
			Bucket:        cfg.BucketName(),
			Region:        cfg.Region,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Endpoint:      cfg.Endpoint,
			UseSSL:        cfg.UseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
			Visibility:    cfg.Visibility,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case mediarouter.DriverMinio:
		s, err := miniodriver.New(ctx, miniodriver.Config{
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Bucket:        cfg.BucketName(),
			Region:        cfg.Region,
			UseSSL:        cfg.UseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
			Visibility:    cfg.Visibility,
			CreateBucket:  true,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case mediarouter.DriverLocal:
		s, err := localdriver.New(localdriver.Config{
			BaseDir: cfg.Endpoint,
			Bucket:  cfg.BucketName(),
			BaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	return nil, fmt.Errorf("%w: unknown driver kind %q for %s", mediarouter.ErrInvalidConfig, cfg.Kind, id)
}
