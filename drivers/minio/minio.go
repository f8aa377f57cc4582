// Package miniodriver stores objects on MinIO or any S3-compatible server through minio-go.
package miniodriver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	mediarouter "github.com/shoraid/go-media-router"
)

type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// objectOpener returns the body of an object. minio.Client.GetObject returns a
// lazy *minio.Object, so reading is kept behind its own function.
type objectOpener func(ctx context.Context, bucket, key string) (io.ReadCloser, error)

// Config holds the connection settings of a MinIO slot.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
	Visibility    mediarouter.Visibility
	CreateBucket  bool // create the bucket on startup when missing
}

// Storage implements mediarouter.StorageDriver on top of minio-go.
type Storage struct {
	client     minioClient
	open       objectOpener
	bucket     string
	cfg        Config
	publicBase string
}

var _ mediarouter.StorageDriver = (*Storage)(nil)

// New creates the client and, when asked, ensures the bucket exists. Public
// buckets get an anonymous read policy.
func New(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Endpoint == "" {
		return nil, mediarouter.ErrInvalidConfig
	}
	if cfg.Bucket == "" {
		cfg.Bucket = mediarouter.DefaultBucket
	}

	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("failed to create minio client")
		return nil, fmt.Errorf("%w: %v", mediarouter.ErrInvalidConfig, err)
	}

	scheme := "http"
	if secure {
		scheme = "https"
	}
	s := newStorage(cl, openWith(cl), cfg, fmt.Sprintf("%s://%s", scheme, endpoint))

	if cfg.CreateBucket {
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func newStorage(client minioClient, open objectOpener, cfg Config, endpointBase string) *Storage {
	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = endpointBase
	}

	return &Storage{
		client:     client,
		open:       open,
		bucket:     cfg.Bucket,
		cfg:        cfg,
		publicBase: publicBase,
	}
}

func openWith(cl *minio.Client) objectOpener {
	return func(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
		obj, err := cl.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		if _, err := obj.Stat(); err != nil {
			_ = obj.Close()
			return nil, err
		}
		return obj, nil
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		log.Error().Err(err).Str("bucket", s.bucket).Msg("failed to check bucket")
		return mediarouter.ErrInternal
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			log.Error().Err(err).Str("bucket", s.bucket).Msg("failed to create bucket")
			return mediarouter.ErrInternal
		}
		log.Info().Str("bucket", s.bucket).Msg("created bucket")
	}

	if s.cfg.Visibility == mediarouter.VisibilityPublic {
		if err := s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket)); err != nil {
			log.Error().Err(err).Str("bucket", s.bucket).Msg("failed to set bucket policy")
			return mediarouter.ErrInternal
		}
	}

	return nil
}

func (s *Storage) Bucket() string {
	return s.bucket
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		log.Error().Err(err).Str("key", key).Msg("failed to delete file from minio")
		return mediarouter.ErrInternal
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		log.Error().Err(err).Str("key", key).Msg("failed to stat file on minio")
		return false, mediarouter.ErrInternal
	}
	return true, nil
}

func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.open(ctx, s.bucket, key)
	if err != nil {
		if isNotFound(err) {
			return nil, mediarouter.ErrNotFound
		}
		log.Error().Err(err).Str("key", key).Msg("failed to read file from minio")
		return nil, mediarouter.ErrInternal
	}
	return rc, nil
}

func (s *Storage) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.cfg.Visibility == mediarouter.VisibilityPublic {
		return s.PublicURL(key), nil
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to generate signed URL")
		return "", mediarouter.ErrInternal
	}
	return u.String(), nil
}

// PublicURL returns "<base>/<bucket>/<key>" where base is PublicBaseURL or the endpoint.
func (s *Storage) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucket, key)
}

func (s *Storage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" || strings.Contains(key, "..") {
		log.Error().Str("key", key).Msg("invalid key")
		return mediarouter.ErrInvalidKey
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to upload file to minio")
		return mediarouter.ErrInternal
	}
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// splitEndpoint strips a scheme from the endpoint; minio.New wants host[:port].
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimRight(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimRight(strings.TrimPrefix(endpoint, "http://"), "/"), false
	}
	return strings.TrimRight(endpoint, "/"), useSSL
}

// publicReadPolicy allows anonymous GET on every object of the bucket.
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": map[string]any{"AWS": []string{"*"}},
				"Action":    []string{"s3:GetObject"},
				"Resource":  []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucket)},
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
