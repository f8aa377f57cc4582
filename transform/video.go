package transform

import (
	"context"
	"errors"
	"image"
	"math"

	mediarouter "github.com/shoraid/go-media-router"
)

// ErrNoFrame is returned by a VideoProber when no frame exists at the requested offset.
var ErrNoFrame = errors.New("transform: no frame at offset")

// VideoInfo is the stream metadata of a video.
type VideoInfo struct {
	Width    int
	Height   int
	Duration float64 // seconds
}

// VideoProber reads video metadata and rasterizes single frames.
type VideoProber interface {
	Probe(ctx context.Context, data []byte) (VideoInfo, error)
	Frame(ctx context.Context, data []byte, offset float64) (image.Image, error)
}

// ThumbnailOffset returns where the poster frame is taken: preferred seconds
// in, but never past 100 ms before the end of short clips.
func ThumbnailOffset(duration, preferred float64) float64 {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0
	}
	return math.Min(preferred, math.Max(0, duration-0.1))
}

func (t *Transformer) video(ctx context.Context, data []byte, contentType string) (*mediarouter.Artifacts, error) {
	if t.prober == nil {
		return nil, &mediarouter.TransformError{Op: "probe video", Err: errors.New("no video prober configured")}
	}

	info, err := t.prober.Probe(ctx, data)
	if err != nil {
		return nil, &mediarouter.TransformError{Op: "probe video", Err: err}
	}

	offset := ThumbnailOffset(info.Duration, t.opts.ThumbnailOffset)
	frame, err := t.prober.Frame(ctx, data, offset)
	if errors.Is(err, ErrNoFrame) && offset > 0 {
		t.log.Debug().Float64("offset", offset).Msg("no frame at offset, retrying at start")
		frame, err = t.prober.Frame(ctx, data, 0)
	}
	if err != nil {
		return nil, &mediarouter.TransformError{Op: "extract frame", Err: err}
	}

	thumb, err := encodeJPEG(frame, t.opts.ThumbnailQuality)
	if err != nil {
		return nil, &mediarouter.TransformError{Op: "encode thumbnail", Err: err}
	}

	width, height := info.Width, info.Height
	if width == 0 || height == 0 {
		b := frame.Bounds()
		width, height = b.Dx(), b.Dy()
	}

	duration := info.Duration
	return &mediarouter.Artifacts{
		Data:                 data,
		ContentType:          contentType,
		Width:                width,
		Height:               height,
		DurationSeconds:      &duration,
		Thumbnail:            thumb,
		ThumbnailContentType: "image/jpeg",
	}, nil
}
