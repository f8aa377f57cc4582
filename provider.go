package mediarouter

import (
	"fmt"
	"strconv"
	"strings"
)

// ProviderID identifies one of the four storage provider slots.
type ProviderID int

const (
	Storage1 ProviderID = iota + 1
	Storage2
	Storage3
	Storage4
)

// Primary is the slot guaranteed to be configured in every deployment.
const Primary = Storage1

// AllProviders lists every slot in order.
var AllProviders = []ProviderID{Storage1, Storage2, Storage3, Storage4}

// Valid reports whether p names one of the four slots.
func (p ProviderID) Valid() bool {
	return p >= Storage1 && p <= Storage4
}

func (p ProviderID) String() string {
	if !p.Valid() {
		return fmt.Sprintf("storage(%d)", int(p))
	}
	return "storage" + strconv.Itoa(int(p))
}

// ParseProviderID accepts "storage2", "2" or "Storage2".
func ParseProviderID(s string) (ProviderID, error) {
	raw := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "storage")
	n, err := strconv.Atoi(raw)
	if err != nil || !ProviderID(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProvider, s)
	}
	return ProviderID(n), nil
}

// DriverKind selects the backend implementation for a slot.
type DriverKind string

const (
	DriverS3    DriverKind = "s3"
	DriverMinio DriverKind = "minio"
	DriverLocal DriverKind = "local"
)

// Visibility controls whether objects are served by direct or signed URLs.
type Visibility string

const (
	VisibilityPrivate Visibility = "private" // Files are private, need signed URL to access
	VisibilityPublic  Visibility = "public"  // Files are publicly accessible via direct URL
)

// DefaultBucket is used when a slot does not name its bucket.
const DefaultBucket = "media"

// ProviderConfig holds the connection settings of one slot.
// For DriverLocal, Endpoint is the base directory and no credentials are needed.
type ProviderConfig struct {
	Kind          DriverKind
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
	Visibility    Visibility
}

// Available reports whether the slot is complete enough to build a client.
func (c ProviderConfig) Available() bool {
	if strings.TrimSpace(c.Endpoint) == "" {
		return false
	}
	if c.Kind == DriverLocal {
		return true
	}
	return strings.TrimSpace(c.AccessKey) != "" && strings.TrimSpace(c.SecretKey) != ""
}

// BucketName returns the configured bucket or DefaultBucket.
func (c ProviderConfig) BucketName() string {
	if b := strings.TrimSpace(c.Bucket); b != "" {
		return b
	}
	return DefaultBucket
}
