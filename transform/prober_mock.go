package transform

import (
	"context"
	"image"
)

// MockVideoProber is a mock implementation of VideoProber.
type MockVideoProber struct {
	MockProbe func(ctx context.Context, data []byte) (VideoInfo, error)
	MockFrame func(ctx context.Context, data []byte, offset float64) (image.Image, error)
}

// Probe calls the MockProbe function.
func (m *MockVideoProber) Probe(ctx context.Context, data []byte) (VideoInfo, error) {
	if m.MockProbe != nil {
		return m.MockProbe(ctx, data)
	}
	return VideoInfo{}, nil
}

// Frame calls the MockFrame function.
func (m *MockVideoProber) Frame(ctx context.Context, data []byte, offset float64) (image.Image, error) {
	if m.MockFrame != nil {
		return m.MockFrame(ctx, data, offset)
	}
	return image.NewRGBA(image.Rect(0, 0, 16, 9)), nil
}
