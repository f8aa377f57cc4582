package transform

import (
	"bytes"
	"image"
	"image/jpeg"
	"math"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	mediarouter "github.com/shoraid/go-media-router"
)

func (t *Transformer) image(data []byte, contentType string) (*mediarouter.Artifacts, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &mediarouter.TransformError{Op: "decode image", Err: err}
	}

	art := &mediarouter.Artifacts{
		Data:        data,
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}

	if len(data) <= t.opts.ImageMaxBytes {
		return art, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &mediarouter.TransformError{Op: "decode image", Err: err}
	}

	w, h := fitWithin(cfg.Width, cfg.Height, t.opts.MaxWidth, t.opts.MaxHeight)
	encoded, err := encodeJPEG(scale(src, w, h), t.opts.JPEGQuality)
	if err != nil {
		return nil, &mediarouter.TransformError{Op: "encode image", Err: err}
	}

	if len(encoded) >= len(data) {
		t.log.Debug().
			Str("format", format).
			Int("original_bytes", len(data)).
			Int("encoded_bytes", len(encoded)).
			Msg("re-encoded image is not smaller, keeping original")
		return art, nil
	}

	t.log.Debug().
		Str("format", format).
		Int("original_bytes", len(data)).
		Int("encoded_bytes", len(encoded)).
		Int("width", w).
		Int("height", h).
		Msg("image re-encoded")

	art.Data = encoded
	art.ContentType = "image/jpeg"
	art.Reencoded = true
	return art, nil
}

// fitWithin scales w×h down to fit maxW×maxH keeping the aspect ratio. It never upscales.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}

	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(math.Round(float64(w)*ratio)))
	nh := max(1, int(math.Round(float64(h)*ratio)))
	return min(nw, maxW), min(nh, maxH)
}

// scale draws src onto a white w×h canvas. JPEG has no alpha channel.
func scale(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
