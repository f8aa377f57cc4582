package mediarouter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shoraid/go-media-router/metrics"
)

// Registry holds the configuration of the four provider slots and lazily
// builds one driver per slot on first use. It is safe for concurrent use.
type Registry struct {
	configs map[ProviderID]ProviderConfig
	factory DriverFactory

	mu      sync.Mutex
	clients map[ProviderID]*Provider
}

// NewRegistry creates a Registry. The primary slot must be available;
// any other slot may be missing or incomplete.
func NewRegistry(configs map[ProviderID]ProviderConfig, factory DriverFactory) (*Registry, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: missing driver factory", ErrInvalidConfig)
	}

	copied := make(map[ProviderID]ProviderConfig, len(configs))
	for id, cfg := range configs {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, id)
		}
		copied[id] = cfg
	}

	if primary, ok := copied[Primary]; !ok || !primary.Available() {
		return nil, fmt.Errorf("%w: primary provider %s is not configured", ErrInvalidConfig, Primary)
	}

	return &Registry{
		configs: copied,
		factory: factory,
		clients: make(map[ProviderID]*Provider, len(copied)),
	}, nil
}

// Available reports whether the slot has a complete configuration.
func (r *Registry) Available(id ProviderID) bool {
	cfg, ok := r.configs[id]
	return ok && cfg.Available()
}

// AvailableSecondaries lists the available non-primary slots in slot order.
func (r *Registry) AvailableSecondaries() []ProviderID {
	var ids []ProviderID
	for _, id := range AllProviders {
		if id != Primary && r.Available(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Resolve maps a requested slot to the slot that will serve it: unavailable
// secondaries are replaced by the primary slot.
func (r *Registry) Resolve(id ProviderID) (ProviderID, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidProvider, id)
	}
	if !r.Available(id) {
		return Primary, nil
	}
	return id, nil
}

// Provider returns the client of the given slot, constructing it on first use.
// Check Provider.ID for the slot that actually serves the request.
func (r *Registry) Provider(ctx context.Context, id ProviderID) (*Provider, error) {
	resolved, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.clients[resolved]; ok {
		return p, nil
	}

	driver, err := r.factory(ctx, resolved, r.configs[resolved])
	if err != nil {
		return nil, &ProviderError{Provider: resolved, Op: "connect", Err: err}
	}

	p := &Provider{id: resolved, driver: driver}
	r.clients[resolved] = p
	return p, nil
}

// Provider wraps the driver of one slot and tags every failure with the slot.
type Provider struct {
	id     ProviderID
	driver StorageDriver
}

// NewProvider wraps a driver as the given slot.
func NewProvider(id ProviderID, driver StorageDriver) *Provider {
	return &Provider{id: id, driver: driver}
}

// ID returns the slot this provider serves.
func (p *Provider) ID() ProviderID {
	return p.id
}

// Bucket returns the bucket or container name of the slot.
func (p *Provider) Bucket() string {
	return p.driver.Bucket()
}

// PutObject uploads data under key, overwriting any existing object.
func (p *Provider) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()
	err := p.driver.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	return p.observe("put", key, start, err)
}

// GetObject reads the object stored under key.
func (p *Provider) GetObject(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	body, err := p.driver.Get(ctx, key)
	if err != nil {
		return nil, p.observe("get", key, start, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, p.observe("get", key, start, err)
	}

	return data, p.observe("get", key, start, nil)
}

// DeleteObjects removes the given keys concurrently. Every key is attempted
// even when another one fails; the failures are joined.
func (p *Provider) DeleteObjects(ctx context.Context, keys ...string) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	for _, key := range keys {
		g.Go(func() error {
			start := time.Now()
			if err := p.observe("delete", key, start, p.driver.Delete(ctx, key)); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

// Exists checks whether key is present on the slot.
func (p *Provider) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	exists, err := p.driver.Exists(ctx, key)
	return exists, p.observe("exists", key, start, err)
}

// PublicURL builds the direct URL of key without any network call.
func (p *Provider) PublicURL(key string) string {
	return p.driver.PublicURL(key)
}

// SignedURL returns a temporary URL for key on private buckets.
func (p *Provider) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	start := time.Now()
	url, err := p.driver.GetSignedURL(ctx, key, expiry)
	return url, p.observe("presign", key, start, err)
}

func (p *Provider) observe(op, key string, start time.Time, err error) error {
	metrics.RecordStorageOperation(p.id.String(), op, err, time.Since(start).Seconds())
	if err != nil {
		return &ProviderError{Provider: p.id, Op: op, Key: key, Err: err}
	}
	return nil
}
