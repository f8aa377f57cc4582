// Package memory is an in-process MetadataStore for tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	mediarouter "github.com/shoraid/go-media-router"
)

// Store implements mediarouter.MetadataStore with a map.
type Store struct {
	mu      sync.RWMutex
	records map[string]mediarouter.MediaRecord
	now     func() time.Time

	// InsertErr, when set, is returned by the next Insert calls.
	InsertErr error
}

var _ mediarouter.MetadataStore = (*Store)(nil)

func New() *Store {
	return &Store{
		records: make(map[string]mediarouter.MediaRecord),
		now:     time.Now,
	}
}

func (s *Store) Insert(_ context.Context, record *mediarouter.MediaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.InsertErr != nil {
		return s.InsertErr
	}

	record.ID = uuid.NewString()
	record.CreatedAt = s.now().UTC()
	s.records[record.ID] = clone(*record)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*mediarouter.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, mediarouter.ErrRecordNotFound
	}
	out := clone(r)
	return &out, nil
}

func (s *Store) UpdateDetails(_ context.Context, id, title, description string) (*mediarouter.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, mediarouter.ErrRecordNotFound
	}
	r.Title = title
	r.Description = description
	s.records[id] = r

	out := clone(r)
	return &out, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return mediarouter.ErrRecordNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *Store) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]mediarouter.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []mediarouter.MediaRecord
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			owned = append(owned, clone(r))
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].MediaID > owned[j].MediaID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if offset >= len(owned) {
		return []mediarouter.MediaRecord{}, nil
	}
	owned = owned[offset:]
	if limit > 0 && limit < len(owned) {
		owned = owned[:limit]
	}
	return owned, nil
}

func (s *Store) UsageByProvider(_ context.Context) ([]mediarouter.ProviderUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProvider := make(map[mediarouter.ProviderID]*mediarouter.ProviderUsage)
	for _, r := range s.records {
		u, ok := byProvider[r.ProviderID]
		if !ok {
			u = &mediarouter.ProviderUsage{ProviderID: r.ProviderID}
			byProvider[r.ProviderID] = u
		}
		u.Objects += int64(len(r.Keys()))
		u.Bytes += r.ByteSize
	}

	usage := make([]mediarouter.ProviderUsage, 0, len(byProvider))
	for _, id := range mediarouter.AllProviders {
		if u, ok := byProvider[id]; ok {
			usage = append(usage, *u)
		}
	}
	return usage, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func clone(r mediarouter.MediaRecord) mediarouter.MediaRecord {
	if r.ThumbnailKey != nil {
		k := *r.ThumbnailKey
		r.ThumbnailKey = &k
	}
	if r.DurationSeconds != nil {
		d := *r.DurationSeconds
		r.DurationSeconds = &d
	}
	return r
}
