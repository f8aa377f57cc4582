package mediarouter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "user-9/1700000000000000001.png", ObjectKey("user-9", "1700000000000000001", "png"))
	assert.Equal(t, "thumbnails/user-9/1700000000000000001_thumb.jpg", ThumbnailKey("user-9", "1700000000000000001"))
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		contentType string
		reencoded   bool
		expected    string
	}{
		{name: "should use jpg for re-encoded images", fileName: "photo.png", contentType: "image/png", reencoded: true, expected: "jpg"},
		{name: "should keep lower-cased file extension", fileName: "Clip.MOV", contentType: "video/quicktime", expected: "mov"},
		{name: "should derive extension from mime type", fileName: "upload", contentType: "image/webp", expected: "webp"},
		{name: "should ignore suspicious extensions", fileName: "a.p/ng", contentType: "video/mp4", expected: "mp4"},
		{name: "should fall back to bin", fileName: "", contentType: "application/x-unknown-thing", expected: "bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Extension(tt.fileName, tt.contentType, tt.reencoded))
		})
	}
}

func TestValidOwnerID(t *testing.T) {
	tests := []struct {
		owner    string
		expected bool
	}{
		{owner: "user-1", expected: true},
		{owner: "4f1e9a2c-7b1d-4c55-9a31-0d8c1f2e3b4a", expected: true},
		{owner: "", expected: false},
		{owner: "   ", expected: false},
		{owner: "a/b", expected: false},
		{owner: `a\b`, expected: false},
		{owner: "..", expected: false},
		{owner: "a..b", expected: false},
		{owner: "user.name_01", expected: true},
		{owner: "user@example.com", expected: false},
		{owner: "a b", expected: false},
		{owner: "ünïcode", expected: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("owner %q", tt.owner), func(t *testing.T) {
			assert.Equal(t, tt.expected, validOwnerID(tt.owner))
		})
	}
}

func TestKindFromMIME(t *testing.T) {
	kind, ok := KindFromMIME("image/png")
	assert.True(t, ok)
	assert.Equal(t, KindImage, kind)

	kind, ok = KindFromMIME("video/mp4")
	assert.True(t, ok)
	assert.Equal(t, KindVideo, kind)

	_, ok = KindFromMIME("application/pdf")
	assert.False(t, ok)
}

func TestMediaRecord_Keys(t *testing.T) {
	thumb := "thumbnails/o/1_thumb.jpg"
	record := MediaRecord{ObjectKey: "o/1.mp4", ThumbnailKey: &thumb}

	assert.Equal(t, []string{"o/1.mp4", thumb}, record.Keys())

	record.ThumbnailKey = nil
	assert.Equal(t, []string{"o/1.mp4"}, record.Keys())
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "should be empty for nil", err: nil, expected: ""},
		{
			name:     "should explain transform failures",
			err:      &UploadError{Stage: StageTransforming, Err: &TransformError{Op: "decode image", Err: errors.New("eof")}},
			expected: "The file could not be read. Please check it and try again.",
		},
		{
			name:     "should explain upload failures",
			err:      &UploadError{Stage: StageUploading, Provider: Storage1, Err: errors.New("timeout")},
			expected: "Upload failed. Please try again.",
		},
		{
			name:     "should explain metadata failures",
			err:      &UploadError{Stage: StageSavingMetadata, Provider: Storage2, Err: errors.New("db")},
			expected: "The media could not be saved. Please try again.",
		},
		{name: "should map not found", err: fmt.Errorf("get: %w", ErrRecordNotFound), expected: "Media not found."},
		{name: "should hide unknown errors", err: errors.New("secret dsn leaked"), expected: "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UserMessage(tt.err))
		})
	}
}

func TestParseProviderID(t *testing.T) {
	tests := []struct {
		value     string
		expected  ProviderID
		expectErr bool
	}{
		{value: "1", expected: Storage1},
		{value: "storage3", expected: Storage3},
		{value: "4", expected: Storage4},
		{value: "5", expectErr: true},
		{value: "abc", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseProviderID(tt.value)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrInvalidProvider)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
