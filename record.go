package mediarouter

import (
	"strings"
	"time"
)

// MediaKind is derived from the declared MIME type at upload time.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// KindFromMIME maps a MIME type to its media kind. ok is false for anything
// that is neither an image nor a video.
func KindFromMIME(mimeType string) (kind MediaKind, ok bool) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage, true
	case strings.HasPrefix(mt, "video/"):
		return KindVideo, true
	}
	return "", false
}

// MediaRecord is the durable metadata row describing one uploaded asset.
type MediaRecord struct {
	ID              string     `json:"id"`
	MediaID         string     `json:"media_id"`
	OwnerID         string     `json:"owner_id"`
	ObjectKey       string     `json:"object_key"`
	ThumbnailKey    *string    `json:"thumbnail_key,omitempty"`
	Kind            MediaKind  `json:"media_kind"`
	ByteSize        int64      `json:"byte_size"`
	MimeType        string     `json:"mime_type"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	ProviderID      ProviderID `json:"provider_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Keys returns the object keys backing the record, primary file first.
func (r *MediaRecord) Keys() []string {
	keys := []string{r.ObjectKey}
	if r.ThumbnailKey != nil && *r.ThumbnailKey != "" {
		keys = append(keys, *r.ThumbnailKey)
	}
	return keys
}

// ProviderUsage aggregates stored bytes per provider slot.
type ProviderUsage struct {
	ProviderID ProviderID `json:"provider_id"`
	Objects    int64      `json:"objects"`
	Bytes      int64      `json:"bytes"`
}

// File is a raw user-selected file before transformation.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Artifacts are the upload-ready outputs of a transform.
type Artifacts struct {
	Data        []byte
	ContentType string
	Reencoded   bool

	Width           int
	Height          int
	DurationSeconds *float64

	Thumbnail            []byte
	ThumbnailContentType string
}
