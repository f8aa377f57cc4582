package mediarouter

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const thumbnailPrefix = "thumbnails"

var extRegex = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

// ownerRegex matches the key segment characters every driver accepts.
var ownerRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ObjectKey builds the key of a primary file: "<ownerId>/<mediaId>.<ext>".
func ObjectKey(ownerID, mediaID, ext string) string {
	return fmt.Sprintf("%s/%s.%s", ownerID, mediaID, ext)
}

// ThumbnailKey builds the key of a video poster: "thumbnails/<ownerId>/<mediaId>_thumb.jpg".
func ThumbnailKey(ownerID, mediaID string) string {
	return fmt.Sprintf("%s/%s/%s_thumb.jpg", thumbnailPrefix, ownerID, mediaID)
}

// Extension picks the file extension for an uploaded body. Re-encoded images
// are always jpg; otherwise the original file name wins over the MIME type.
func Extension(fileName, contentType string, reencoded bool) string {
	if reencoded {
		return "jpg"
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if extRegex.MatchString(ext) {
		return ext
	}

	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}

	return "bin"
}

// validOwnerID accepts owner ids that form a single safe key segment.
func validOwnerID(ownerID string) bool {
	switch {
	case !ownerRegex.MatchString(ownerID):
		return false
	case ownerID == "." || strings.Contains(ownerID, ".."):
		return false
	}
	return true
}
