package mediarouter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/shoraid/go-media-router/mediaid"
	"github.com/shoraid/go-media-router/metrics"
)

var tracer = otel.Tracer("github.com/shoraid/go-media-router")

// Service sequences uploads, retrievals and deletions across the provider slots.
type Service struct {
	registry    *Registry
	store       MetadataStore
	transformer Transformer
	selector    ProviderSelector
	orphans     OrphanReporter
	newID       func() string
	log         zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithSelector replaces the default ClockSelector.
func WithSelector(selector ProviderSelector) Option {
	return func(s *Service) { s.selector = selector }
}

// WithOrphanReporter replaces the default LogOrphanReporter.
func WithOrphanReporter(reporter OrphanReporter) Option {
	return func(s *Service) { s.orphans = reporter }
}

// WithIDGenerator replaces mediaid.New.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.log = logger }
}

// NewService wires the orchestrators to their collaborators.
func NewService(registry *Registry, store MetadataStore, transformer Transformer, opts ...Option) (*Service, error) {
	if registry == nil || store == nil || transformer == nil {
		return nil, fmt.Errorf("%w: registry, store and transformer are required", ErrInvalidConfig)
	}

	s := &Service{
		registry:    registry,
		store:       store,
		transformer: transformer,
		selector:    ClockSelector{},
		newID:       mediaid.New,
		log:         log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With().Str("component", "media-router").Logger()
	if s.orphans == nil {
		s.orphans = LogOrphanReporter{Log: s.log}
	}

	return s, nil
}

// Registry exposes the provider registry the service routes through.
func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) reportOrphan(ctx context.Context, orphan Orphan) {
	if orphan.DetectedAt.IsZero() {
		orphan.DetectedAt = time.Now().UTC()
	}
	metrics.RecordOrphan(orphan.ProviderID.String(), string(orphan.Reason), len(orphan.Keys))
	if err := s.orphans.Report(ctx, orphan); err != nil {
		s.log.Error().
			Err(err).
			Str("provider", orphan.ProviderID.String()).
			Strs("keys", orphan.Keys).
			Msg("failed to report orphaned objects")
	}
}
