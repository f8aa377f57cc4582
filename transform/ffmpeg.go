package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
)

// FFmpegProber implements VideoProber with the ffprobe and ffmpeg binaries.
// The upload is spooled to a temporary file because both tools need to seek.
type FFmpegProber struct {
	FFprobePath string // defaults to "ffprobe" on PATH
	FFmpegPath  string // defaults to "ffmpeg" on PATH
	TempDir     string
}

type ffprobeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (p FFmpegProber) Probe(ctx context.Context, data []byte) (VideoInfo, error) {
	path, cleanup, err := p.spool(data)
	if err != nil {
		return VideoInfo{}, err
	}
	defer cleanup()

	out, err := run(ctx, p.binary(p.FFprobePath, "ffprobe"),
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return VideoInfo{}, err
	}

	return parseProbe(out)
}

func parseProbe(out []byte) (VideoInfo, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return VideoInfo{}, errors.New("no video stream")
	}

	info := VideoInfo{Width: parsed.Streams[0].Width, Height: parsed.Streams[0].Height}
	if parsed.Format.Duration != "" {
		d, err := strconv.ParseFloat(parsed.Format.Duration, 64)
		if err != nil {
			return VideoInfo{}, fmt.Errorf("parse duration %q: %w", parsed.Format.Duration, err)
		}
		info.Duration = d
	}
	return info, nil
}

func (p FFmpegProber) Frame(ctx context.Context, data []byte, offset float64) (image.Image, error) {
	path, cleanup, err := p.spool(data)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	out, err := run(ctx, p.binary(p.FFmpegPath, "ffmpeg"),
		"-v", "error",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoFrame
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

func (p FFmpegProber) binary(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func (p FFmpegProber) spool(data []byte) (string, func(), error) {
	f, err := os.CreateTemp(p.TempDir, "mediarouter-video-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	return f.Name(), cleanup, nil
}

func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
