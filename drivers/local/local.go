// Package localdriver stores objects as files below a base directory, one
// sub-directory per bucket. It serves development setups and tests.
package localdriver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	mediarouter "github.com/shoraid/go-media-router"
)

// Config holds the settings of a local slot. BaseDir maps to the slot endpoint.
type Config struct {
	BaseDir string
	Bucket  string
	BaseURL string // optional HTTP base serving BaseDir; file:// URLs otherwise
}

// Storage implements mediarouter.StorageDriver on the local filesystem.
type Storage struct {
	root    string
	bucket  string
	baseURL string
	log     zerolog.Logger
}

var _ mediarouter.StorageDriver = (*Storage)(nil)

// New creates the bucket directory when missing.
func New(cfg Config) (*Storage, error) {
	base := strings.TrimSpace(cfg.BaseDir)
	if base == "" {
		return nil, mediarouter.ErrInvalidConfig
	}
	if cfg.Bucket == "" {
		cfg.Bucket = mediarouter.DefaultBucket
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mediarouter.ErrInvalidConfig, err)
	}

	root := filepath.Join(absBase, cfg.Bucket)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	s := &Storage{
		root:    root,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		log:     log.With().Str("component", "local-storage").Logger(),
	}

	s.log.Info().Str("path", root).Str("base_url", s.baseURL).Msg("local storage initialized")
	return s, nil
}

func (s *Storage) Bucket() string {
	return s.bucket
}

// path resolves key below the bucket directory and refuses anything escaping it.
func (s *Storage) path(key string) (string, error) {
	if key == "" {
		return "", mediarouter.ErrInvalidKey
	}

	full := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", mediarouter.ErrInvalidKey
	}
	return full, nil
}

func (s *Storage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	full, err := s.path(key)
	if err != nil {
		s.log.Error().Str("key", key).Msg("invalid key")
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to create directory")
		return mediarouter.ErrInternal
	}

	// Write to a temp file first so readers never see a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to create file")
		return mediarouter.ErrInternal
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && size >= 0 && written != size {
		err = fmt.Errorf("short write: %d of %d bytes", written, size)
	}
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to write file")
		return mediarouter.ErrInternal
	}

	if err := os.Rename(tmp.Name(), full); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to move file into place")
		return mediarouter.ErrInternal
	}

	s.log.Debug().Str("key", key).Int64("bytes", written).Str("content_type", contentType).Msg("file uploaded to local storage")
	return nil
}

func (s *Storage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, mediarouter.ErrNotFound
		}
		s.log.Error().Err(err).Str("key", key).Msg("failed to open file")
		return nil, mediarouter.ErrInternal
	}
	return f, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	full, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Error().Err(err).Str("key", key).Msg("failed to delete file")
		return mediarouter.ErrInternal
	}
	return nil
}

func (s *Storage) Exists(_ context.Context, key string) (bool, error) {
	full, err := s.path(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(full)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	s.log.Error().Err(err).Str("key", key).Msg("failed to stat file")
	return false, mediarouter.ErrInternal
}

// GetSignedURL returns the public URL; local files need no signing.
func (s *Storage) GetSignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return s.PublicURL(key), nil
}

// PublicURL returns "<BaseURL>/<bucket>/<key>", or a file:// URL when no base URL is set.
func (s *Storage) PublicURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key)
	}
	return "file://" + filepath.ToSlash(filepath.Join(s.root, filepath.FromSlash(key)))
}
