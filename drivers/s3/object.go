package s3driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	mediarouter "github.com/shoraid/go-media-router"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3Client interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignClient interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectStorageConfig defines the configuration needed to connect to an S3-compatible storage.
// You can use this with AWS S3, Cloudflare R2, MinIO, GCS (S3 API), etc.
type ObjectStorageConfig struct {
	Bucket        string                 // bucket name where files will be stored
	Region        string                 // AWS region or equivalent
	AccessKey     string                 // access key for authentication
	SecretKey     string                 // secret key for authentication
	Endpoint      string                 // optional custom endpoint (for R2, MinIO, etc.)
	UseSSL        bool                   // true = https, false = http
	PublicBaseURL string                 // optional CDN or custom domain in front of the bucket
	Visibility    mediarouter.Visibility // public or private
	DefaultExpiry time.Duration          // default expiry duration for signed URLs
	Encrypt       bool                   // request SSE-S3 (AES256) on every upload
}

// ObjectStorage is the concrete implementation of mediarouter.StorageDriver for S3-compatible storages.
type ObjectStorage struct {
	client        s3Client
	bucket        string
	config        ObjectStorageConfig
	presignClient presignClient // used to generate signed URLs
}

var _ mediarouter.StorageDriver = (*ObjectStorage)(nil)

// NewObjectStorage initializes and returns an ObjectStorage instance using the given config.
// It loads AWS configuration, sets up the S3 client, and prepares a presign client.
// Returns mediarouter.ErrInvalidConfig if credentials or config are invalid.
func NewObjectStorage(ctx context.Context, cfg ObjectStorageConfig) (*ObjectStorage, error) {
	if cfg.AccessKey == "" {
		return nil, mediarouter.ErrInvalidConfig
	}

	if cfg.SecretKey == "" {
		return nil, mediarouter.ErrInvalidConfig
	}

	if cfg.Bucket == "" {
		cfg.Bucket = mediarouter.DefaultBucket
	}

	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	storageCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return nil, mediarouter.ErrInvalidConfig
	}

	client := s3.NewFromConfig(storageCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
			o.UsePathStyle = true // needed for MinIO / R2
		}
	})

	if cfg.DefaultExpiry == 0 {
		cfg.DefaultExpiry = 15 * time.Minute
	}

	return &ObjectStorage{
		client:        client,
		bucket:        cfg.Bucket,
		config:        cfg,
		presignClient: s3.NewPresignClient(client),
	}, nil
}

// Bucket returns the bucket objects are written to.
func (s *ObjectStorage) Bucket() string {
	return s.bucket
}

// Delete permanently removes a file from the bucket.
// Usage: Call when you want to delete a file by its key.
func (s *ObjectStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}

		log.Error().Err(err).Str("key", key).Msg("failed to delete file from S3")
		return mediarouter.ErrInternal
	}

	return nil
}

// Exists checks if a file exists in the bucket.
// Usage: Call before uploading or deleting to verify the file's presence.
func (s *ObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}

		log.Error().Err(err).Str("key", key).Msg("failed to check if file exists in S3")
		return false, mediarouter.ErrInternal
	}

	return true, nil
}

// Get opens the object stored under key. The caller closes the body.
func (s *ObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, mediarouter.ErrNotFound
		}

		log.Error().Err(err).Str("key", key).Msg("failed to read file from S3")
		return nil, mediarouter.ErrInternal
	}

	return out.Body, nil
}

// GetSignedURL generates a temporary signed URL for downloading a file.
// Public buckets get their direct URL instead.
func (s *ObjectStorage) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.config.Visibility == mediarouter.VisibilityPublic {
		return s.PublicURL(key), nil
	}

	if expiry <= 0 {
		expiry = s.config.DefaultExpiry
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to generate signed URL")
		return "", mediarouter.ErrInternal
	}

	return req.URL, nil
}

// PublicURL returns the direct URL of a file. It is computed locally and
// always names the bucket and the key.
func (s *ObjectStorage) PublicURL(key string) string {
	if s.config.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.config.PublicBaseURL, "/"), s.bucket, key)
	}

	if s.config.Endpoint == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.config.Region, key)
	}

	return fmt.Sprintf("%s/%s/%s", endpointURL(s.config.Endpoint, s.config.UseSSL), s.bucket, key)
}

// keyRegex allows "/" separated segments of safe characters.
var keyRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+(/[a-zA-Z0-9._-]+)*$`)

// validateKey ensures that the provided key is valid (not empty, no invalid characters).
// Usage: Called internally by Put to prevent uploading bad file names.
func validateKey(name string) error {
	switch {
	case len(name) == 0:
		return errors.New("key cannot be empty")
	case !keyRegex.MatchString(name):
		return errors.New("key contains invalid characters")
	}

	for _, segment := range strings.Split(name, "/") {
		if segment == "." || segment == ".." {
			return errors.New("invalid key")
		}
	}
	return nil
}

// Put uploads a file to the bucket.
// Usage: Call this to save a new file or overwrite an existing file.
func (s *ObjectStorage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := validateKey(key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("invalid key")
		return mediarouter.ErrInvalidKey
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if s.config.Encrypt {
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to upload file to S3")
		return mediarouter.ErrInternal
	}

	return nil
}

func isNotFound(err error) bool {
	var apiError interface{ ErrorCode() string }
	if !errors.As(err, &apiError) {
		return false
	}

	switch apiError.ErrorCode() {
	case "NotFound", "NoSuchKey":
		return true
	}
	return false
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return strings.TrimRight(endpoint, "/")
	}

	scheme := "https"
	if !useSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, strings.TrimRight(endpoint, "/"))
}
