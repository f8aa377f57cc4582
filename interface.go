package mediarouter

import (
	"context"
	"io"
	"time"
)

// StorageDriver defines the basic contract for any storage backend (S3, MinIO, Local, etc.).
// Implementations must handle uploading, reading, deleting, checking existence,
// and generating URLs (public or signed).
type StorageDriver interface {
	// Bucket returns the bucket or container the driver writes into.
	Bucket() string

	// Delete removes a file identified by its key from storage.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks whether a file with the given key exists in storage.
	Exists(ctx context.Context, key string) (exists bool, err error)

	// Get reads the whole file stored under key.
	// Returns ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// GetSignedURL generates a temporary, time-limited URL for accessing a file.
	// Typically used for private storage where you need controlled access.
	GetSignedURL(ctx context.Context, key string, expiry time.Duration) (url string, err error)

	// PublicURL returns the direct URL for the file. It never performs a network call
	// and does not check that the object exists.
	PublicURL(key string) string

	// Put uploads size bytes from body to the given key, overwriting any existing object.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// DriverFactory builds the driver of one provider slot.
type DriverFactory func(ctx context.Context, id ProviderID, cfg ProviderConfig) (StorageDriver, error)

// MetadataStore persists MediaRecords. Each call is transactional at the single-row level.
type MetadataStore interface {
	// Insert stores a new record, assigning its ID and CreatedAt.
	Insert(ctx context.Context, record *MediaRecord) error

	// Get returns ErrRecordNotFound when no record has the given id.
	Get(ctx context.Context, id string) (*MediaRecord, error)

	// UpdateDetails changes the user editable fields of a record.
	UpdateDetails(ctx context.Context, id, title, description string) (*MediaRecord, error)

	// Delete returns ErrRecordNotFound when no record has the given id.
	Delete(ctx context.Context, id string) error

	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]MediaRecord, error)

	// UsageByProvider aggregates object counts and bytes per provider slot.
	UsageByProvider(ctx context.Context) ([]ProviderUsage, error)
}

// Transformer turns a raw file into upload-ready artifacts without touching the network.
// Failures must match ErrTransformFailed.
type Transformer interface {
	Transform(ctx context.Context, file File) (*Artifacts, error)
}

// ProviderSelector picks the slot a new upload lands on. candidates is never empty.
type ProviderSelector interface {
	Select(ctx context.Context, candidates []ProviderID) (ProviderID, error)
}

// OrphanReporter records objects left in storage without a MediaRecord.
type OrphanReporter interface {
	Report(ctx context.Context, orphan Orphan) error
}
