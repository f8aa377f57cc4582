package mediarouter

import (
	"context"
	"fmt"
	"time"
)

// GetMediaURL resolves the public URL of a stored object. No network call is
// made and the object is not checked for existence.
func (s *Service) GetMediaURL(ctx context.Context, objectKey string, providerID ProviderID) (string, error) {
	p, err := s.registry.Provider(ctx, providerID)
	if err != nil {
		return "", err
	}
	return p.PublicURL(objectKey), nil
}

// GetSignedMediaURL returns a temporary URL for objects on private buckets.
func (s *Service) GetSignedMediaURL(ctx context.Context, objectKey string, providerID ProviderID, expiry time.Duration) (string, error) {
	p, err := s.registry.Provider(ctx, providerID)
	if err != nil {
		return "", err
	}
	return p.SignedURL(ctx, objectKey, expiry)
}

// GetMedia loads a record by its id.
func (s *Service) GetMedia(ctx context.Context, id string) (*MediaRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty record id", ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}

// FetchObject reads the primary file of a record from the provider that holds it.
func (s *Service) FetchObject(ctx context.Context, record *MediaRecord) ([]byte, error) {
	p, err := s.registry.Provider(ctx, record.ProviderID)
	if err != nil {
		return nil, err
	}
	return p.GetObject(ctx, record.ObjectKey)
}

// ListMedia returns a page of the owner's records, newest first.
func (s *Service) ListMedia(ctx context.Context, ownerID string, limit, offset int) ([]MediaRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListByOwner(ctx, ownerID, limit, offset)
}

// UpdateDetails changes the title and description of a record.
func (s *Service) UpdateDetails(ctx context.Context, id, title, description string) (*MediaRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty record id", ErrInvalidInput)
	}
	return s.store.UpdateDetails(ctx, id, title, description)
}

// StorageUsage reports object counts and bytes per provider slot.
func (s *Service) StorageUsage(ctx context.Context) ([]ProviderUsage, error) {
	return s.store.UsageByProvider(ctx)
}
