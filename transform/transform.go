// Package transform turns raw uploads into upload-ready artifacts: large
// images are scaled down and re-encoded, videos are probed and get a poster
// frame. Nothing here touches the network.
package transform

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	mediarouter "github.com/shoraid/go-media-router"
)

const (
	DefaultImageMaxBytes    = 2 << 20
	DefaultMaxWidth         = 1920
	DefaultMaxHeight        = 1080
	DefaultJPEGQuality      = 80
	DefaultThumbnailQuality = 70
	DefaultThumbnailOffset  = 1.0
)

// Options tune the transform. Zero values fall back to the defaults.
type Options struct {
	ImageMaxBytes    int
	MaxWidth         int
	MaxHeight        int
	JPEGQuality      int
	ThumbnailQuality int
	ThumbnailOffset  float64
}

func (o Options) withDefaults() Options {
	if o.ImageMaxBytes <= 0 {
		o.ImageMaxBytes = DefaultImageMaxBytes
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultMaxHeight
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	if o.ThumbnailQuality <= 0 || o.ThumbnailQuality > 100 {
		o.ThumbnailQuality = DefaultThumbnailQuality
	}
	if o.ThumbnailOffset <= 0 {
		o.ThumbnailOffset = DefaultThumbnailOffset
	}
	return o
}

// Transformer implements mediarouter.Transformer.
type Transformer struct {
	opts   Options
	prober VideoProber
	log    zerolog.Logger
}

var _ mediarouter.Transformer = (*Transformer)(nil)

// New returns a Transformer. prober may be nil when only images are uploaded;
// videos then fail to transform.
func New(prober VideoProber, opts Options) *Transformer {
	return &Transformer{
		opts:   opts.withDefaults(),
		prober: prober,
		log:    log.With().Str("component", "transform").Logger(),
	}
}

// WithLogger returns a copy of t logging to logger.
func (t *Transformer) WithLogger(logger zerolog.Logger) *Transformer {
	c := *t
	c.log = logger.With().Str("component", "transform").Logger()
	return &c
}

func (t *Transformer) Transform(ctx context.Context, file mediarouter.File) (*mediarouter.Artifacts, error) {
	if len(file.Data) == 0 {
		return nil, &mediarouter.TransformError{Op: "read", Err: errors.New("empty file")}
	}

	contentType, kind, err := detect(file)
	if err != nil {
		return nil, err
	}

	t.log.Debug().
		Str("file", file.Name).
		Str("content_type", contentType).
		Int("bytes", len(file.Data)).
		Msg("transforming upload")

	switch kind {
	case mediarouter.KindImage:
		return t.image(file.Data, contentType)
	default:
		return t.video(ctx, file.Data, contentType)
	}
}

// detect returns the content type used for the upload. The declared type
// wins; a sniffed type of the other media kind is rejected.
func detect(file mediarouter.File) (string, mediarouter.MediaKind, error) {
	sniffed := baseType(mimetype.Detect(file.Data).String())
	declared := baseType(file.ContentType)

	contentType := declared
	if contentType == "" {
		contentType = sniffed
	}

	kind, ok := mediarouter.KindFromMIME(contentType)
	if !ok {
		return "", "", &mediarouter.TransformError{
			Op:  "detect type",
			Err: fmt.Errorf("%w: %s", mediarouter.ErrUnsupportedMediaType, contentType),
		}
	}

	if sniffedKind, ok := mediarouter.KindFromMIME(sniffed); ok && sniffedKind != kind {
		return "", "", &mediarouter.TransformError{
			Op:  "detect type",
			Err: fmt.Errorf("declared %s but content looks like %s", contentType, sniffed),
		}
	}

	return contentType, kind, nil
}

func baseType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(contentType)
}
